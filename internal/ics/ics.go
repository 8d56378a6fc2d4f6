// Package ics renders a tour's ordered stop list as an iCalendar feed
// that sales reps can import into their calendar.
package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"tour-planner/internal/models"
)

const (
	stopDuration   = 30 * time.Minute
	travelEstimate = 30 * time.Minute
)

// GenerateTour creates one event per stop, starting at 08:00 on the
// given date. Visits get a flat duration with a flat travel estimate
// in between; real driving times are not modeled.
func GenerateTour(tour *models.Tour, stops []models.Stop, startDate time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//tour-planner//Tour Export//EN")

	current := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 8, 0, 0, 0, time.UTC)
	stamp := time.Now().UTC()

	for i, stop := range stops {
		if i > 0 {
			current = current.Add(travelEstimate)
		}

		event := cal.AddEvent(fmt.Sprintf("%s@tour-planner", stop.ID))
		event.SetDtStampTime(stamp)
		event.SetStartAt(current)
		event.SetEndAt(current.Add(stopDuration))
		event.SetSummary(eventTitle(stop))
		event.SetLocation(eventLocation(stop))
		event.SetDescription(eventDescription(stop))
		event.SetStatus(ical.ObjectStatusConfirmed)

		if loc, ok := stop.Location(); ok {
			event.SetGeo(loc.Lat, loc.Lng)
		}

		current = current.Add(stopDuration)
	}

	return cal.Serialize()
}

func eventTitle(stop models.Stop) string {
	switch {
	case stop.Kind == models.StopKindCustomer && stop.Customer != nil:
		return "Visit: " + stop.Customer.Name
	case stop.Kind == models.StopKindAnchor && stop.Anchor != nil:
		return "Hotel: " + stop.Anchor.Name
	}
	return "Tour Stop"
}

func eventLocation(stop models.Stop) string {
	switch {
	case stop.Kind == models.StopKindCustomer && stop.Customer != nil && stop.Customer.Address != nil:
		return *stop.Customer.Address
	case stop.Kind == models.StopKindAnchor && stop.Anchor != nil:
		return stop.Anchor.Address
	}
	return ""
}

func eventDescription(stop models.Stop) string {
	switch {
	case stop.Kind == models.StopKindCustomer && stop.Customer != nil:
		phone := "N/A"
		if stop.Customer.Phone != nil {
			phone = *stop.Customer.Phone
		}
		category := ""
		if stop.Customer.Category != nil {
			category = *stop.Customer.Category
		}
		return fmt.Sprintf("Customer: %s\nPhone: %s\nCategory: %s", stop.Customer.Name, phone, category)
	case stop.Kind == models.StopKindAnchor && stop.Anchor != nil:
		return "Stay at " + stop.Anchor.Name
	}
	return ""
}
