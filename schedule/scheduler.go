package schedule

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"paydue/db"
)

// Scheduler keeps the alert store in sync with obligation state. Reconcile is
// the single entry point for creation, edits and recovery alike: it wipes the
// obligation's whole alert family and schedules a fresh plan, so calling it
// again with the same inputs leaves the store in the same state.
type Scheduler struct {
	store  AlertStore
	unit   time.Duration
	logger *zap.SugaredLogger
}

func NewScheduler(store AlertStore, unit time.Duration, logger *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		store:  store,
		unit:   unit,
		logger: logger,
	}
}

// Reconcile cancels whatever was scheduled for the obligation and, if it is
// still live, schedules its current plan. Cancellation completes before any
// scheduling so a stale pre-edit alert can never survive alongside a post-edit
// one. A resolved obligation only gets the cancellation.
func (s *Scheduler) Reconcile(o db.Obligation, now time.Time) error {
	if !o.Resolved() {
		if o.IntervalUnits < 1 {
			return errors.Errorf("obligation %d has non-positive reminder interval %d", o.ID, o.IntervalUnits)
		}
		if o.LeadUnits < 0 {
			return errors.Errorf("obligation %d has negative reminder lead %d", o.ID, o.LeadUnits)
		}
	}

	if err := s.CancelAll(o.ID); err != nil {
		return err
	}

	if o.Resolved() {
		return nil
	}

	for _, slot := range Plan(o, now, s.unit) {
		p := Payload{
			ObligationID:   o.ID,
			Title:          o.Title,
			Amount:         o.Amount,
			Kind:           o.Kind,
			UnitsRemaining: slot.UnitsRemaining,
		}
		if err := s.store.ScheduleAt(AlertID(o.ID, slot.Index), slot.FireAt, p); err != nil {
			return errors.Wrapf(err, "failed scheduling alert %d", AlertID(o.ID, slot.Index))
		}
	}

	s.logger.Infow("reconciled obligation", "id", o.ID, "kind", o.Kind.String())
	return nil
}

// CancelAll cancels every identifier in the obligation's reserved range,
// whether or not it was ever scheduled. Used on pay and on delete, and by
// Reconcile to clear the previous plan.
func (s *Scheduler) CancelAll(obligationID int64) error {
	for i := 0; i < MaxPreDueSlots; i++ {
		if err := s.store.Cancel(AlertID(obligationID, i)); err != nil {
			return errors.Wrapf(err, "failed cancelling alert %d", AlertID(obligationID, i))
		}
	}
	if err := s.store.Cancel(AlertID(obligationID, DueSlot)); err != nil {
		return errors.Wrapf(err, "failed cancelling alert %d", AlertID(obligationID, DueSlot))
	}
	return nil
}
