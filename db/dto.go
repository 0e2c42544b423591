package db

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind tells which table an obligation row lives in.
type Kind uint

const (
	KindRecurringExpense Kind = iota
	KindLoanInstallment
)

func (k Kind) String() string {
	if k == KindLoanInstallment {
		return "loan"
	}
	return "expense"
}

// State collapses the per-kind flags (is_paid for installments, is_active for
// recurring expenses) into one notion: does the obligation still need attention.
type State uint

const (
	StateLive State = iota
	StateResolved
)

func (s State) Resolved() bool {
	return s == StateResolved
}

// Obligation is a payment that becomes due: one loan installment or one
// recurring expense. IDs are drawn from a sequence shared by both tables, so
// an ID never appears in more than one table.
type Obligation struct {
	ID            int64
	Kind          Kind
	Title         string
	Amount        decimal.Decimal
	DueAt         time.Time
	LeadUnits     int       // how many units before DueAt reminding starts
	IntervalUnits int       // spacing between reminders, in the same units
	State         State
	PaidAt        time.Time // zero unless State is StateResolved
}

func (o Obligation) Resolved() bool {
	return o.State.Resolved()
}
