package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func at(h, m int) datatypes.Time { return datatypes.NewTime(h, m, 0, 0) }

func rng(sh, sm, eh, em int) Range { return Range{Start: at(sh, sm), End: at(eh, em)} }

func starts(slots []Range) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = Clock(s.Start)
	}
	return out
}

func TestOverlaps(t *testing.T) {
	base := rng(10, 0, 11, 0)
	cases := []struct {
		name  string
		other Range
		want  bool
	}{
		{"identical", rng(10, 0, 11, 0), true},
		{"overlaps start", rng(9, 30, 10, 30), true},
		{"overlaps end", rng(10, 30, 11, 30), true},
		{"contained", rng(10, 15, 10, 45), true},
		{"contains", rng(9, 0, 12, 0), true},
		{"touches before", rng(9, 0, 10, 0), false},
		{"touches after", rng(11, 0, 12, 0), false},
		{"disjoint", rng(13, 0, 14, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(base, tc.other))
			assert.Equal(t, tc.want, Overlaps(tc.other, base))
		})
	}
}

func TestGenerateSlots(t *testing.T) {
	slots := GenerateSlots(rng(9, 0, 12, 0), time.Hour, 30*time.Minute)
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30", "11:00"}, starts(slots))
	for _, s := range slots {
		assert.Equal(t, time.Hour, s.Duration())
	}

	t.Run("aligns to the step", func(t *testing.T) {
		slots := GenerateSlots(rng(9, 15, 11, 0), 30*time.Minute, 30*time.Minute)
		assert.Equal(t, []string{"09:30", "10:00", "10:30"}, starts(slots))
	})

	t.Run("window shorter than duration", func(t *testing.T) {
		assert.Empty(t, GenerateSlots(rng(9, 0, 9, 45), time.Hour, 30*time.Minute))
	})

	t.Run("invalid input", func(t *testing.T) {
		assert.Nil(t, GenerateSlots(rng(12, 0, 9, 0), time.Hour, 30*time.Minute))
		assert.Nil(t, GenerateSlots(rng(9, 0, 12, 0), 0, 30*time.Minute))
	})
}

func TestAvailableSlots(t *testing.T) {
	windows := []Range{rng(9, 0, 12, 0)}
	busy := []Range{rng(10, 0, 11, 0)}

	slots := AvailableSlots(windows, busy, time.Hour, 30*time.Minute)
	assert.Equal(t, []string{"09:00", "11:00"}, starts(slots))

	for _, s := range slots {
		for _, b := range busy {
			assert.False(t, Overlaps(s, b), "slot %s overlaps busy %s", s, b)
		}
		assert.True(t, windows[0].Contains(s))
	}
}

func TestAvailableSlotsMergesOverlappingWindows(t *testing.T) {
	windows := []Range{rng(10, 0, 12, 0), rng(9, 0, 11, 0)}
	slots := AvailableSlots(windows, nil, time.Hour, time.Hour)
	assert.Equal(t, []string{"09:00", "10:00", "11:00"}, starts(slots))
}

func TestAvailableSlotsFullyBooked(t *testing.T) {
	slots := AvailableSlots([]Range{rng(9, 0, 10, 0)}, []Range{rng(9, 0, 10, 0)}, time.Hour, 30*time.Minute)
	assert.Empty(t, slots)
}

func TestParseClockAndDate(t *testing.T) {
	c, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, "09:30", Clock(c))

	c, err = ParseClock("17:05:00")
	require.NoError(t, err)
	assert.Equal(t, "17:05", Clock(c))

	_, err = ParseClock("25:00")
	assert.Error(t, err)

	d, err := ParseDate("2030-01-07")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, time.Time(d).Weekday())

	_, err = ParseDate("07/01/2030")
	assert.Error(t, err)
}
