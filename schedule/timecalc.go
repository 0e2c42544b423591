package schedule

import "time"

// WindowStart returns the instant reminding begins: leadUnits whole units
// before the due instant. A zero lead degenerates to the due instant itself.
func WindowStart(dueAt time.Time, leadUnits int, unit time.Duration) time.Time {
	return dueAt.Add(-time.Duration(leadUnits) * unit)
}
