package schedule

import (
	"fmt"
	"time"

	"github.com/wacampaign/campaign-scheduler/internal/domain"
)

// maxSearchDays bounds the day-by-day search for the next allowed weekday.
const maxSearchDays = 8

// Schedule is the parsed, validated schedule of a campaign.
type Schedule struct {
	Frequency domain.Frequency
	Slots     []Slot
	Weekdays  Weekdays
	StartDate Date
}

// FromCampaign parses the schedule columns of c.
func FromCampaign(c *domain.Campaign) (Schedule, error) {
	slots, err := ParseSlots(c.Slots)
	if err != nil {
		return Schedule{}, err
	}

	weekdays, err := ParseWeekdays(c.WeekdayMask)
	if err != nil {
		return Schedule{}, err
	}

	s := Schedule{
		Frequency: c.Frequency,
		Slots:     slots,
		Weekdays:  weekdays,
		StartDate: DateOf(c.StartDate),
	}

	switch s.Frequency {
	case domain.FrequencyOnce, domain.FrequencyDaily:
	case domain.FrequencyWeekly:
		if weekdays.Empty() {
			return Schedule{}, fmt.Errorf("%w: weekly campaign needs at least one weekday", ErrInvalidSchedule)
		}
	default:
		return Schedule{}, fmt.Errorf("%w: unknown frequency %q", ErrInvalidSchedule, s.Frequency)
	}

	return s, nil
}

// Next returns the first slot instant strictly after now, evaluated on the
// wall clock of now's location. ok is false when the campaign never fires again.
func (s Schedule) Next(now time.Time) (next time.Time, ok bool) {
	loc := now.Location()
	today := DateOf(now)

	if s.Frequency == domain.FrequencyOnce {
		if s.StartDate.Before(today) {
			return time.Time{}, false
		}
		return firstSlotAfter(s.StartDate, s.Slots, now, loc)
	}

	day := today
	if today.Before(s.StartDate) {
		day = s.StartDate
	}

	for i := 0; i < maxSearchDays; i++ {
		d := day.AddDays(i)
		if !s.Weekdays.Allows(d.Weekday()) {
			continue
		}
		if t, ok := firstSlotAfter(d, s.Slots, now, loc); ok {
			return t, true
		}
	}

	return time.Time{}, false
}

func firstSlotAfter(d Date, slots []Slot, now time.Time, loc *time.Location) (time.Time, bool) {
	for _, slot := range slots {
		if t := d.At(slot, loc); t.After(now) {
			return t, true
		}
	}
	return time.Time{}, false
}

// ResolveNext is the functional form of Schedule.Next over raw schedule fields.
func ResolveNext(
	frequency domain.Frequency,
	slots []string,
	weekdayMask []int,
	startDate time.Time,
	now time.Time,
) (*time.Time, error) {
	s, err := FromCampaign(&domain.Campaign{
		Frequency:   frequency,
		Slots:       slots,
		WeekdayMask: weekdayMask,
		StartDate:   startDate,
	})
	if err != nil {
		return nil, err
	}

	next, ok := s.Next(now)
	if !ok {
		return nil, nil
	}
	return &next, nil
}
