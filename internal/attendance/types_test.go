package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayOfTruncatesToMidnight(t *testing.T) {
	loc, err := time.LoadLocation("Africa/Nairobi")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	at := time.Date(2025, 9, 1, 8, 31, 42, 999, loc)
	day := DayOf(at)

	assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, loc), day)
	assert.Equal(t, loc, day.Location())
}

func TestDayOfIsStableWithinADay(t *testing.T) {
	morning := time.Date(2025, 9, 1, 0, 0, 1, 0, time.UTC)
	night := time.Date(2025, 9, 1, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, DayOf(morning), DayOf(night))
}
