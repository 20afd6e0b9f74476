package schedule

import (
	"time"

	"github.com/wacampaign/campaign-scheduler/internal/domain"
)

type Reason string

const (
	ReasonDue             Reason = "due"
	ReasonOutsideWindow   Reason = "outside_window"
	ReasonWeekdayExcluded Reason = "weekday_excluded"
	ReasonNotStartDate    Reason = "not_start_date"
	ReasonNotStarted      Reason = "not_started"
	ReasonAlreadyFired    Reason = "already_fired"
	ReasonInvalidSchedule Reason = "invalid_schedule"
	ReasonInactive        Reason = "inactive"
	ReasonExpired         Reason = "expired"
)

// Decision is the outcome of evaluating one campaign against one tick.
type Decision struct {
	Due    bool
	Slot   Slot
	Reason Reason
	Err    error
}

// CurrentSlot returns the latest slot whose clock time is at or before t on
// t's own date.
func CurrentSlot(slots []Slot, t time.Time) (Slot, bool) {
	today := DateOf(t)

	var current Slot
	found := false
	for _, slot := range slots {
		if t.Before(today.At(slot, t.Location())) {
			break
		}
		current = slot
		found = true
	}

	return current, found
}

// MatchSlot returns the slot whose firing window contains now. A window opens
// at the slot's clock time and closes tolerance later; a slot never matches
// early. When windows overlap the latest started slot wins.
func MatchSlot(slots []Slot, now time.Time, tolerance time.Duration) (Slot, bool) {
	slot, ok := CurrentSlot(slots, now)
	if !ok {
		return Slot{}, false
	}

	if now.Sub(DateOf(now).At(slot, now.Location())) > tolerance {
		return Slot{}, false
	}

	return slot, true
}

// AlreadyFiredForSlot returns the slot now belongs to when lastExecutionAt is
// on the same calendar day and belongs to that same slot. A later distinct
// slot on the same day is never reported as fired.
//
// It takes no tolerance: a slot stays fired until the next slot starts, so a
// tick landing after the firing window closed still sees it as fired.
func AlreadyFiredForSlot(lastExecutionAt *time.Time, slots []Slot, now time.Time) (Slot, bool) {
	if lastExecutionAt == nil {
		return Slot{}, false
	}

	current, ok := CurrentSlot(slots, now)
	if !ok {
		return Slot{}, false
	}

	last := lastExecutionAt.In(now.Location())
	if DateOf(last) != DateOf(now) {
		return Slot{}, false
	}

	previous, ok := CurrentSlot(slots, last)
	if !ok || previous != current {
		return Slot{}, false
	}

	return current, true
}

// Evaluate decides whether c should fire at now. now must already be in the
// scheduling time zone. ReasonExpired means the campaign will never fire
// again and should be completed.
func Evaluate(c *domain.Campaign, now time.Time, tolerance time.Duration) Decision {
	s, err := FromCampaign(c)
	if err != nil {
		return Decision{Reason: ReasonInvalidSchedule, Err: err}
	}

	today := DateOf(now)

	switch s.Frequency {
	case domain.FrequencyOnce:
		if s.StartDate.Before(today) {
			return Decision{Reason: ReasonExpired}
		}
		if today != s.StartDate {
			return Decision{Reason: ReasonNotStartDate}
		}
	default:
		if today.Before(s.StartDate) {
			return Decision{Reason: ReasonNotStarted}
		}
		if !s.Weekdays.Allows(today.Weekday()) {
			return Decision{Reason: ReasonWeekdayExcluded}
		}
	}

	if fired, ok := AlreadyFiredForSlot(c.LastExecutionAt, s.Slots, now); ok {
		return Decision{Slot: fired, Reason: ReasonAlreadyFired}
	}

	slot, ok := MatchSlot(s.Slots, now, tolerance)
	if !ok {
		if _, more := s.Next(now); !more {
			return Decision{Reason: ReasonExpired}
		}
		return Decision{Reason: ReasonOutsideWindow}
	}

	return Decision{Due: true, Slot: slot, Reason: ReasonDue}
}
