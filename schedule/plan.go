package schedule

import (
	"time"

	"paydue/db"
)

// Slot is one planned reminder firing. Slots are derived values: they are
// recomputed from the obligation row and "now" on every reconcile and never
// persisted.
type Slot struct {
	Index          int
	FireAt         time.Time
	UnitsRemaining int // drives message urgency only, never scheduling
}

func min(x, y int) int {
	if x < y {
		return x
	}
	return y
}

// Plan computes the ordered reminder slots for an obligation as seen at now.
// Pre-due slots start at the reminder window and repeat every IntervalUnits
// units; a slot makes it into the plan only if it fires strictly after now and
// strictly before the due instant. The due moment itself is covered by the
// reserved DueSlot. An obligation that is already due yields an empty plan;
// overdue handling is the recovery pass's job.
func Plan(o db.Obligation, now time.Time, unit time.Duration) []Slot {
	start := WindowStart(o.DueAt, o.LeadUnits, unit)
	count := min(o.LeadUnits, MaxPreDueSlots)

	var slots []Slot
	for i := 0; i < count; i++ {
		fireAt := start.Add(time.Duration(i*o.IntervalUnits) * unit)
		if !fireAt.Before(o.DueAt) {
			break
		}
		if !fireAt.After(now) {
			continue
		}

		slots = append(slots, Slot{
			Index:          i,
			FireAt:         fireAt,
			UnitsRemaining: o.LeadUnits - i,
		})
	}

	if o.DueAt.After(now) {
		slots = append(slots, Slot{Index: DueSlot, FireAt: o.DueAt, UnitsRemaining: 0})
	}

	return slots
}
