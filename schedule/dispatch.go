package schedule

import (
	"github.com/jmhodges/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"paydue/db"
)

var clk = clock.New()

// Dispatcher reacts to the two asynchronous inbound events: an alert firing
// and the user marking an obligation paid from inside an alert. Fires race
// manual pays; the race is settled here by re-reading the row, not by locking
// the schedule path.
type Dispatcher struct {
	states StateStore
	sched  *Scheduler
	notify Notifier
	logger *zap.SugaredLogger
}

func NewDispatcher(states StateStore, sched *Scheduler, notify Notifier, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		states: states,
		sched:  sched,
		notify: notify,
		logger: logger,
	}
}

// HandleFire shows the reminder unless the obligation was resolved between
// scheduling and firing, in which case the stale alert is suppressed.
func (d *Dispatcher) HandleFire(p Payload) error {
	state, err := d.states.ReadState(p.ObligationID, p.Kind)
	if err != nil {
		return errors.Wrap(err, "failed reading obligation state")
	}

	if state.Resolved() {
		d.logger.Infow("suppressing reminder for resolved obligation", "id", p.ObligationID)
		return nil
	}

	return d.notify.ShowReminder(p)
}

// HandleMarkPaid resolves the obligation and purges its remaining alert
// family. The state write goes first: once the row says resolved, a sibling
// alert that slips through before the cancels land is suppressed by
// HandleFire's re-read.
func (d *Dispatcher) HandleMarkPaid(obligationID int64, kind db.Kind) error {
	if err := d.states.SetResolved(obligationID, kind, clk.Now().UTC()); err != nil {
		return errors.Wrap(err, "failed resolving obligation")
	}

	if err := d.sched.CancelAll(obligationID); err != nil {
		return errors.Wrap(err, "failed cancelling pending reminders")
	}

	d.logger.Infow("obligation marked paid", "id", obligationID, "kind", kind.String())

	return d.notify.ConfirmPaid(obligationID)
}
