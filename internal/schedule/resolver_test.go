package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wacampaign/campaign-scheduler/internal/domain"
)

var brt = time.FixedZone("BRT", -3*60*60)

// 2026-10-19 is a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2026, time.October, day, hour, minute, 0, 0, brt)
}

func startDate(day int) time.Time {
	return time.Date(2026, time.October, day, 0, 0, 0, 0, time.UTC)
}

func TestParseSlots_SortsAndDeduplicates(t *testing.T) {
	slots, err := ParseSlots([]string{"15:00", "09:00", "9:00", "12:30"})
	require.NoError(t, err)

	got := make([]string, len(slots))
	for i, s := range slots {
		got[i] = s.String()
	}
	assert.Equal(t, []string{"09:00", "12:30", "15:00"}, got)
}

func TestParseSlots_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		slots []string
	}{
		{"empty", nil},
		{"bad hour", []string{"24:00"}},
		{"bad minute", []string{"10:60"}},
		{"no colon", []string{"1000"}},
		{"too many", []string{"00:00", "01:00", "02:00", "03:00", "04:00", "05:00", "06:00", "07:00", "08:00", "09:00", "10:00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSlots(tt.slots)
			assert.ErrorIs(t, err, ErrInvalidSchedule)
		})
	}
}

func TestResolveNext_DailyPicksNextSlotInOrder(t *testing.T) {
	slots := []string{"15:00", "09:00", "12:00"}

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before first slot", at(19, 7, 0), at(19, 9, 0)},
		{"between first and second", at(19, 9, 2), at(19, 12, 0)},
		{"between second and third", at(19, 13, 0), at(19, 15, 0)},
		{"exactly on a slot is not strictly after", at(19, 12, 0), at(19, 15, 0)},
		{"after last slot rolls to tomorrow", at(19, 15, 1), at(20, 9, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := ResolveNext(domain.FrequencyDaily, slots, nil, startDate(1), tt.now)
			require.NoError(t, err)
			require.NotNil(t, next)
			assert.True(t, tt.want.Equal(*next), "want %s, got %s", tt.want, *next)
		})
	}
}

func TestResolveNext_DailyScenarioFiresAtNineThenThree(t *testing.T) {
	next, err := ResolveNext(domain.FrequencyDaily, []string{"09:00", "15:00"}, []int{0, 1, 2, 3, 4, 5, 6}, startDate(1), at(19, 9, 2))
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.True(t, at(19, 15, 0).Equal(*next))
}

func TestResolveNext_DailyWithRestrictedDays(t *testing.T) {
	// Monday after the last slot, only Fridays allowed.
	next, err := ResolveNext(domain.FrequencyDaily, []string{"10:00"}, []int{5}, startDate(1), at(19, 11, 0))
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.True(t, at(23, 10, 0).Equal(*next))
	assert.Equal(t, time.Friday, next.Weekday())
}

func TestResolveNext_WeeklyNeverLeavesMask(t *testing.T) {
	mask := []int{1, 3} // Monday, Wednesday
	slots := []string{"08:30", "18:00"}

	for now := at(18, 0, 0); now.Before(at(18, 0, 0).AddDate(0, 0, 15)); now = now.Add(37 * time.Minute) {
		next, err := ResolveNext(domain.FrequencyWeekly, slots, mask, startDate(1), now)
		require.NoError(t, err)
		require.NotNil(t, next, "no next for %s", now)

		wd := next.Weekday()
		assert.True(t, wd == time.Monday || wd == time.Wednesday, "weekday %s outside mask for now=%s", wd, now)
		assert.True(t, next.After(now))
	}
}

func TestResolveNext_WeeklyRequiresMask(t *testing.T) {
	_, err := ResolveNext(domain.FrequencyWeekly, []string{"09:00"}, nil, startDate(1), at(19, 8, 0))
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestResolveNext_Once(t *testing.T) {
	slots := []string{"09:00", "15:00"}

	tests := []struct {
		name string
		now  time.Time
		want *time.Time
	}{
		{"day before start", at(18, 20, 0), ptr(at(19, 9, 0))},
		{"between slots on start date", at(19, 10, 0), ptr(at(19, 15, 0))},
		{"after last slot on start date", at(19, 16, 0), nil},
		{"day after start", at(20, 8, 0), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := ResolveNext(domain.FrequencyOnce, slots, nil, startDate(19), tt.now)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, next)
				return
			}
			require.NotNil(t, next)
			assert.True(t, tt.want.Equal(*next), "want %s, got %s", *tt.want, *next)
		})
	}
}

func TestResolveNext_FutureStartDate(t *testing.T) {
	next, err := ResolveNext(domain.FrequencyDaily, []string{"09:00"}, nil, startDate(21), at(19, 8, 0))
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.True(t, at(21, 9, 0).Equal(*next))
}

func TestResolveNext_UnknownFrequency(t *testing.T) {
	_, err := ResolveNext(domain.Frequency("hourly"), []string{"09:00"}, nil, startDate(1), at(19, 8, 0))
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestDate_AddDaysCrossesMonth(t *testing.T) {
	d := Date{Year: 2026, Month: time.October, Day: 30}
	assert.Equal(t, Date{Year: 2026, Month: time.November, Day: 2}, d.AddDays(3))
	assert.Equal(t, time.Monday, d.AddDays(3).Weekday())
}

func ptr(t time.Time) *time.Time { return &t }
