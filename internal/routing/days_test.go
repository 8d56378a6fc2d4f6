package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-planner/internal/models"
)

func TestSplitDaysEmpty(t *testing.T) {
	assert.Empty(t, SplitDays(nil))
}

func TestSplitDaysNoAnchorsSingleDay(t *testing.T) {
	stops := []models.Stop{
		customerStop("s1", "A", 1, 1),
		customerStop("s2", "B", 2, 2),
	}

	days := SplitDays(stops)
	require.Len(t, days, 1)
	assert.Equal(t, []string{"s1", "s2"}, stopIDs(days[0]))
}

func TestSplitDaysAnchorClosesDay(t *testing.T) {
	stops := []models.Stop{
		customerStop("s1", "A", 1, 1),
		anchorStop("h1", "Hotel One", 0, 0),
		customerStop("s2", "B", 2, 2),
		customerStop("s3", "C", 3, 3),
		anchorStop("h2", "Hotel Two", 10, 10),
	}

	days := SplitDays(stops)
	require.Len(t, days, 2)
	assert.Equal(t, []string{"s1", "h1"}, stopIDs(days[0]))
	assert.Equal(t, []string{"s2", "s3", "h2"}, stopIDs(days[1]))
}

func TestSplitDaysTrailingRunIsFinalDay(t *testing.T) {
	stops := []models.Stop{
		customerStop("s1", "A", 1, 1),
		anchorStop("h1", "Hotel", 0, 0),
		customerStop("s2", "B", 2, 2),
	}

	days := SplitDays(stops)
	require.Len(t, days, 2)
	assert.Equal(t, []string{"s2"}, stopIDs(days[1]))
}

func TestSplitDaysConsecutiveAnchors(t *testing.T) {
	stops := []models.Stop{
		anchorStop("h1", "Hotel One", 0, 0),
		anchorStop("h2", "Hotel Two", 1, 1),
	}

	days := SplitDays(stops)
	require.Len(t, days, 2)
	assert.Equal(t, []string{"h1"}, stopIDs(days[0]))
	assert.Equal(t, []string{"h2"}, stopIDs(days[1]))
}
