package db

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

/**
DB tables:
- loans:
	- loan ID: bigint - loan the installments belong to
	- name: text - display name of the loan
- loan_installments:
	- installment ID: bigint - obligation ID, default nextval('obligation_id_seq')
	- loan ID: bigint - owning loan
	- installment number: int4 - ordinal within the loan
	- amount: numeric - installment amount
	- due date: timestamptz - due instant
	- reminder lead: int4 - units before due date reminding starts
	- reminder interval: int4 - units between reminders
	- is paid: boolean - installment resolved
	- paid at: timestamptz - when it was resolved
- recurring_expenses:
	- expense ID: bigint - obligation ID, default nextval('obligation_id_seq')
	- name: text - display name
	- amount: numeric
	- due date: timestamptz
	- reminder lead: int4
	- reminder interval: int4
	- is active: boolean - false once resolved
	- paid at: timestamptz

Both ID columns default to nextval('obligation_id_seq'). Alert identifiers are
derived as obligationID*1000+slot, so the shared sequence is what keeps the
reserved ranges of the two kinds from ever overlapping.
*/

var (
	noCtx                  = context.Background()
	repeatableReadIsoLevel = pgx.TxOptions{IsoLevel: pgx.RepeatableRead}

	ErrNotFound = errors.New("obligation not found")
)

const (
	queryLiveLoans = `SELECT li.installment_id, l.name || ' - installment ' || li.installment_number,
li.amount, li.due_date, li.reminder_lead, li.reminder_interval
FROM loan_installments li JOIN loans l ON li.loan_id = l.loan_id
WHERE NOT li.is_paid AND li.due_date >= $1`

	queryLiveExpenses = `SELECT expense_id, name, amount, due_date, reminder_lead, reminder_interval
FROM recurring_expenses
WHERE is_active AND due_date >= $1`

	queryOverdueLoans = `SELECT li.installment_id, l.name || ' - installment ' || li.installment_number,
li.amount, li.due_date, li.reminder_lead, li.reminder_interval
FROM loan_installments li JOIN loans l ON li.loan_id = l.loan_id
WHERE NOT li.is_paid AND li.due_date < $1`

	queryOverdueExpenses = `SELECT expense_id, name, amount, due_date, reminder_lead, reminder_interval
FROM recurring_expenses
WHERE is_active AND due_date < $1`
)

// PgxIface is the slice of pgxpool.Pool the queries need; pgxmock implements
// it for tests.
type PgxIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Close()
}

type Database struct {
	Conn PgxIface
}

func NewDatabase(connStr string) (*Database, error) {
	// connection string should look like postgresql://localhost:5432/paydue?user=admn&password=passwd
	pool, err := pgxpool.New(noCtx, connStr)
	if err != nil {
		return nil, errors.Wrap(err, "failed connecting to database")
	}

	if err = pool.Ping(noCtx); err != nil {
		return nil, errors.Wrap(err, "failed pinging database")
	}

	return &Database{Conn: pool}, nil
}

// LiveObligations returns unresolved obligations of both kinds whose due
// instant has not passed yet.
func (d *Database) LiveObligations(now time.Time) ([]Obligation, error) {
	loans, err := d.queryObligations(queryLiveLoans, KindLoanInstallment, now)
	if err != nil {
		return nil, errors.Wrap(err, "failed querying live installments")
	}

	expenses, err := d.queryObligations(queryLiveExpenses, KindRecurringExpense, now)
	if err != nil {
		return nil, errors.Wrap(err, "failed querying live expenses")
	}

	return append(loans, expenses...), nil
}

// OverdueObligations returns unresolved obligations of both kinds whose due
// instant is already in the past.
func (d *Database) OverdueObligations(now time.Time) ([]Obligation, error) {
	loans, err := d.queryObligations(queryOverdueLoans, KindLoanInstallment, now)
	if err != nil {
		return nil, errors.Wrap(err, "failed querying overdue installments")
	}

	expenses, err := d.queryObligations(queryOverdueExpenses, KindRecurringExpense, now)
	if err != nil {
		return nil, errors.Wrap(err, "failed querying overdue expenses")
	}

	return append(loans, expenses...), nil
}

func (d *Database) queryObligations(query string, kind Kind, now time.Time) ([]Obligation, error) {
	rows, err := d.Conn.Query(noCtx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var obligations []Obligation
	for rows.Next() {
		o := Obligation{Kind: kind, State: StateLive}
		err = rows.Scan(&o.ID, &o.Title, &o.Amount, &o.DueAt, &o.LeadUnits, &o.IntervalUnits)
		if err != nil {
			return nil, errors.Wrap(err, "failed scanning obligation row")
		}
		obligations = append(obligations, o)
	}

	return obligations, rows.Err()
}

// ReadState reports whether the obligation still needs attention. Used by the
// dispatch path right before showing a reminder.
func (d *Database) ReadState(id int64, kind Kind) (State, error) {
	var resolved bool

	switch kind {
	case KindLoanInstallment:
		err := d.Conn.QueryRow(noCtx, `SELECT is_paid FROM loan_installments WHERE installment_id=$1`, id).Scan(&resolved)
		switch {
		case err == pgx.ErrNoRows:
			return StateLive, ErrNotFound
		case err != nil:
			return StateLive, errors.Wrap(err, "failed reading installment state")
		}

	default:
		var active bool
		err := d.Conn.QueryRow(noCtx, `SELECT is_active FROM recurring_expenses WHERE expense_id=$1`, id).Scan(&active)
		switch {
		case err == pgx.ErrNoRows:
			return StateLive, ErrNotFound
		case err != nil:
			return StateLive, errors.Wrap(err, "failed reading expense state")
		}
		resolved = !active
	}

	if resolved {
		return StateResolved, nil
	}
	return StateLive, nil
}

// SetResolved marks the obligation as handled: installments become paid,
// recurring expenses become inactive. Both record the resolve instant.
func (d *Database) SetResolved(id int64, kind Kind, paidAt time.Time) error {
	var err error

	// zero affected rows means it was already resolved or gone; both are fine
	switch kind {
	case KindLoanInstallment:
		_, err = d.Conn.Exec(noCtx, `UPDATE loan_installments SET is_paid=TRUE, paid_at=$1
WHERE installment_id=$2 AND NOT is_paid`, paidAt, id)
	default:
		_, err = d.Conn.Exec(noCtx, `UPDATE recurring_expenses SET is_active=FALSE, paid_at=$1
WHERE expense_id=$2 AND is_active`, paidAt, id)
	}

	if err != nil {
		return errors.Wrap(err, "failed marking obligation resolved")
	}
	return nil
}

// CreateRecurringExpense inserts a new active expense and returns its
// obligation ID.
func (d *Database) CreateRecurringExpense(name string, amount decimal.Decimal, dueAt time.Time, leadUnits, intervalUnits int) (int64, error) {
	var id int64
	err := d.Conn.QueryRow(noCtx, `INSERT INTO recurring_expenses(name, amount, due_date, reminder_lead, reminder_interval, is_active)
VALUES($1, $2, $3, $4, $5, TRUE) RETURNING expense_id`,
		name, amount, dueAt, leadUnits, intervalUnits).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "failed inserting recurring expense")
	}
	return id, nil
}

// CreateLoan inserts a loan with its installments, the first one due at
// firstDue and the rest spaced payEvery apart. Returns the installment
// obligations so the caller can reconcile reminders for each of them.
func (d *Database) CreateLoan(name string, installmentAmount decimal.Decimal, firstDue time.Time, installments int, payEvery time.Duration, leadUnits, intervalUnits int) ([]Obligation, error) {
	if installments < 1 {
		return nil, errors.New("loan needs at least one installment")
	}

	tx, err := d.Conn.BeginTx(noCtx, repeatableReadIsoLevel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(noCtx)

	var loanID int64
	err = tx.QueryRow(noCtx, `INSERT INTO loans(name) VALUES($1) RETURNING loan_id`, name).Scan(&loanID)
	if err != nil {
		return nil, errors.Wrap(err, "failed inserting loan")
	}

	created := make([]Obligation, 0, installments)
	dueAt := firstDue
	for i := 1; i <= installments; i++ {
		var id int64
		err = tx.QueryRow(noCtx, `INSERT INTO loan_installments(loan_id, installment_number, amount, due_date, reminder_lead, reminder_interval, is_paid)
VALUES($1, $2, $3, $4, $5, $6, FALSE) RETURNING installment_id`,
			loanID, i, installmentAmount, dueAt, leadUnits, intervalUnits).Scan(&id)
		if err != nil {
			return nil, errors.Wrapf(err, "failed inserting installment %d", i)
		}

		created = append(created, Obligation{
			ID:            id,
			Kind:          KindLoanInstallment,
			Title:         name + " - installment " + strconv.Itoa(i),
			Amount:        installmentAmount,
			DueAt:         dueAt,
			LeadUnits:     leadUnits,
			IntervalUnits: intervalUnits,
			State:         StateLive,
		})

		dueAt = dueAt.Add(payEvery)
	}

	if err = tx.Commit(noCtx); err != nil {
		return nil, errors.Wrap(err, "failed to commit")
	}

	return created, nil
}

// DeleteObligation removes the row. The caller must have cancelled the
// obligation's alert family first.
func (d *Database) DeleteObligation(id int64, kind Kind) error {
	var tag pgconn.CommandTag
	var err error

	switch kind {
	case KindLoanInstallment:
		tag, err = d.Conn.Exec(noCtx, `DELETE FROM loan_installments WHERE installment_id=$1`, id)
	default:
		tag, err = d.Conn.Exec(noCtx, `DELETE FROM recurring_expenses WHERE expense_id=$1`, id)
	}

	if err != nil {
		return errors.Wrap(err, "failed deleting obligation")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *Database) Close() {
	d.Conn.Close()
}
