package schedule

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Recovery rebuilds the alert state after a restart. Nothing about the
// schedule survives the process: every pending alert is rederived from the
// obligation rows and the clock, which works because Reconcile is a pure
// function of exactly those two inputs.
type Recovery struct {
	src    ObligationSource
	sched  *Scheduler
	notify Notifier
	unit   time.Duration
	logger *zap.SugaredLogger
}

func NewRecovery(src ObligationSource, sched *Scheduler, notify Notifier, unit time.Duration, logger *zap.SugaredLogger) *Recovery {
	return &Recovery{
		src:    src,
		sched:  sched,
		notify: notify,
		unit:   unit,
		logger: logger,
	}
}

// Run reconciles every live future obligation, then folds the overdue ones
// into a single summary notification. A reconcile failure is logged and
// skipped rather than aborting the pass, so one broken obligation does not
// cost the rest their reminders; it is still reported so the caller knows to
// rerun the pass later.
func (r *Recovery) Run(now time.Time) error {
	live, err := r.src.LiveObligations(now)
	if err != nil {
		return errors.Wrap(err, "failed loading live obligations")
	}

	r.logger.Infof("restoring reminders for %d obligations", len(live))

	failed := 0
	for _, o := range live {
		if err := r.sched.Reconcile(o, now); err != nil {
			r.logger.Errorw("failed restoring reminders; obligation will be retried next pass", "id", o.ID, "err", err)
			failed++
		}
	}

	overdue, err := r.src.OverdueObligations(now)
	if err != nil {
		return errors.Wrap(err, "failed loading overdue obligations")
	}

	if len(overdue) > 0 {
		items := make([]OverdueItem, 0, len(overdue))
		for _, o := range overdue {
			items = append(items, OverdueItem{
				Title:        o.Title,
				Amount:       o.Amount,
				Kind:         o.Kind,
				UnitsOverdue: int64(now.Sub(o.DueAt) / r.unit),
			})
		}

		if err := r.notify.ShowOverdueSummary(items); err != nil {
			return errors.Wrap(err, "failed showing overdue summary")
		}
	}

	if failed > 0 {
		return errors.Errorf("failed restoring reminders for %d of %d obligations", failed, len(live))
	}
	return nil
}
