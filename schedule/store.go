package schedule

import (
	"time"

	"github.com/shopspring/decimal"

	"paydue/db"
)

// Payload is what a fired alert carries to the dispatch handler.
type Payload struct {
	ObligationID   int64
	Title          string
	Amount         decimal.Decimal
	Kind           db.Kind
	UnitsRemaining int
}

// AlertStore is the host timer facility: it registers an alert to fire at an
// instant and cancels one by identifier. Cancelling an identifier that was
// never scheduled must be a no-op, not an error; CancelAll leans on that.
// The scheduler drives the store but does not own it; tests substitute an
// in-memory fake.
type AlertStore interface {
	ScheduleAt(id int64, at time.Time, p Payload) error
	Cancel(id int64) error
}

// ObligationSource supplies persisted obligations to the recovery pass.
type ObligationSource interface {
	LiveObligations(now time.Time) ([]db.Obligation, error)
	OverdueObligations(now time.Time) ([]db.Obligation, error)
}

// StateStore is the slice of persistence the dispatch handler needs: the
// re-read that catches a pay racing a fire, and the resolve write.
type StateStore interface {
	ReadState(id int64, kind db.Kind) (db.State, error)
	SetResolved(id int64, kind db.Kind, paidAt time.Time) error
}

// OverdueItem is one line of the aggregate overdue summary.
type OverdueItem struct {
	Title        string
	Amount       decimal.Decimal
	Kind         db.Kind
	UnitsOverdue int64
}

// Notifier renders user-visible alerts. ConfirmPaid is also expected to
// dismiss the reminder the user acted on.
type Notifier interface {
	ShowReminder(p Payload) error
	ShowOverdueSummary(items []OverdueItem) error
	ConfirmPaid(obligationID int64) error
}
