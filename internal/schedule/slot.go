package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const maxSlotsPerDay = 10

var ErrInvalidSchedule = errors.New("invalid schedule")

// Slot is a time of day at which a campaign may fire.
type Slot struct {
	Hour   int
	Minute int
}

func (s Slot) String() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

func (s Slot) minutes() int {
	return s.Hour*60 + s.Minute
}

// ParseSlot parses an "HH:MM" wall clock value.
func ParseSlot(raw string) (Slot, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return Slot{}, fmt.Errorf("%w: slot %q is not HH:MM", ErrInvalidSchedule, raw)
	}

	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return Slot{}, fmt.Errorf("%w: slot %q has invalid hour", ErrInvalidSchedule, raw)
	}

	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return Slot{}, fmt.Errorf("%w: slot %q has invalid minute", ErrInvalidSchedule, raw)
	}

	return Slot{Hour: hour, Minute: minute}, nil
}

// ParseSlots parses, de-duplicates and sorts the slots of a campaign.
func ParseSlots(raw []string) ([]Slot, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: at least one slot is required", ErrInvalidSchedule)
	}

	seen := make(map[Slot]bool, len(raw))
	slots := make([]Slot, 0, len(raw))
	for _, r := range raw {
		slot, err := ParseSlot(r)
		if err != nil {
			return nil, err
		}
		if seen[slot] {
			continue
		}
		seen[slot] = true
		slots = append(slots, slot)
	}

	if len(slots) > maxSlotsPerDay {
		return nil, fmt.Errorf("%w: at most %d slots per day, got %d", ErrInvalidSchedule, maxSlotsPerDay, len(slots))
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].minutes() < slots[j].minutes() })

	return slots, nil
}

// Weekdays is a weekday mask indexed by time.Weekday (0 = Sunday).
type Weekdays [7]bool

func ParseWeekdays(days []int) (Weekdays, error) {
	var w Weekdays
	for _, d := range days {
		if d < 0 || d > 6 {
			return Weekdays{}, fmt.Errorf("%w: weekday %d out of range 0..6", ErrInvalidSchedule, d)
		}
		w[d] = true
	}
	return w, nil
}

func (w Weekdays) Empty() bool {
	for _, on := range w {
		if on {
			return false
		}
	}
	return true
}

// Allows reports whether day is allowed. An empty mask allows every day.
func (w Weekdays) Allows(day time.Weekday) bool {
	return w.Empty() || w[day]
}

// Date is a civil calendar date with no time zone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// AddDays moves the date by n calendar days.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC).Weekday()
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// At returns the instant of slot on this date in loc.
func (d Date) At(slot Slot, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, slot.Hour, slot.Minute, 0, 0, loc)
}
