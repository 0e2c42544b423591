package schedule

import (
	"strings"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"github.com/stretchr/testify/require"

	"paydue/db"
)

type fakeStates struct {
	log      *opLog
	states   map[int64]db.State
	paidAt   map[int64]time.Time
	readErr  error
	writeErr error
}

func newFakeStates(log *opLog) *fakeStates {
	return &fakeStates{
		log:    log,
		states: make(map[int64]db.State),
		paidAt: make(map[int64]time.Time),
	}
}

func (s *fakeStates) ReadState(id int64, kind db.Kind) (db.State, error) {
	if s.readErr != nil {
		return db.StateLive, s.readErr
	}
	return s.states[id], nil
}

func (s *fakeStates) SetResolved(id int64, kind db.Kind, paidAt time.Time) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.log.add("resolve %d", id)
	s.states[id] = db.StateResolved
	s.paidAt[id] = paidAt
	return nil
}

func newDispatcher(states *fakeStates, store *recordingStore, notify *fakeNotifier) *Dispatcher {
	sched := NewScheduler(store, time.Minute, testLogger())
	return NewDispatcher(states, sched, notify, testLogger())
}

func firedPayload(id int64, unitsRemaining int) Payload {
	o := liveObligation(id, base, 3, 1)
	return Payload{
		ObligationID:   o.ID,
		Title:          o.Title,
		Amount:         o.Amount,
		Kind:           o.Kind,
		UnitsRemaining: unitsRemaining,
	}
}

func TestHandleFireShowsReminderForLiveObligation(t *testing.T) {
	log := &opLog{}
	states := newFakeStates(log)
	notify := &fakeNotifier{log: log}
	d := newDispatcher(states, newRecordingStore(log), notify)

	require.NoError(t, d.HandleFire(firedPayload(7, 2)))

	require.Len(t, notify.reminders, 1)
	require.Equal(t, int64(7), notify.reminders[0].ObligationID)
	require.Equal(t, 2, notify.reminders[0].UnitsRemaining)
}

func TestHandleFireSuppressesResolvedObligation(t *testing.T) {
	log := &opLog{}
	states := newFakeStates(log)
	states.states[7] = db.StateResolved
	notify := &fakeNotifier{log: log}
	d := newDispatcher(states, newRecordingStore(log), notify)

	require.NoError(t, d.HandleFire(firedPayload(7, 0)))
	require.Empty(t, notify.reminders)
}

func TestHandleFireSurfacesReadFailure(t *testing.T) {
	log := &opLog{}
	states := newFakeStates(log)
	states.readErr = errTest
	d := newDispatcher(states, newRecordingStore(log), &fakeNotifier{log: log})

	require.Error(t, d.HandleFire(firedPayload(7, 0)))
}

func TestHandleMarkPaidResolvesAndPurgesFamily(t *testing.T) {
	fc := clock.NewFake()
	fc.Set(base)
	orig := clk
	clk = fc
	defer func() { clk = orig }()

	log := &opLog{}
	states := newFakeStates(log)
	store := newRecordingStore(log)
	notify := &fakeNotifier{log: log}
	d := newDispatcher(states, store, notify)

	// obligation has a pending family when the user presses the button
	sched := NewScheduler(store, time.Minute, testLogger())
	require.NoError(t, sched.Reconcile(liveObligation(7, base.Add(10*time.Minute), 3, 2), base))
	require.NotEmpty(t, store.scheduled)

	require.NoError(t, d.HandleMarkPaid(7, db.KindLoanInstallment))

	require.True(t, states.states[7].Resolved())
	require.Equal(t, base.UTC(), states.paidAt[7])
	require.Empty(t, store.scheduled)
	require.Equal(t, []int64{7}, notify.confirmed)
}

func TestHandleMarkPaidStateWriteBeforeCancel(t *testing.T) {
	log := &opLog{}
	states := newFakeStates(log)
	store := newRecordingStore(log)
	d := newDispatcher(states, store, &fakeNotifier{log: log})

	require.NoError(t, d.HandleMarkPaid(7, db.KindLoanInstallment))

	resolveAt, cancelAt := -1, -1
	for i, e := range log.entries {
		if e == "resolve 7" && resolveAt == -1 {
			resolveAt = i
		}
		if strings.HasPrefix(e, "cancel ") && cancelAt == -1 {
			cancelAt = i
		}
	}
	require.GreaterOrEqual(t, resolveAt, 0)
	require.GreaterOrEqual(t, cancelAt, 0)
	require.Less(t, resolveAt, cancelAt)

	// confirmation comes after the purge
	require.Equal(t, "confirm 7", log.entries[len(log.entries)-1])
}

func TestHandleMarkPaidWriteFailureSkipsCancel(t *testing.T) {
	log := &opLog{}
	states := newFakeStates(log)
	states.writeErr = errTest
	store := newRecordingStore(log)
	d := newDispatcher(states, store, &fakeNotifier{log: log})

	require.Error(t, d.HandleMarkPaid(7, db.KindLoanInstallment))
	require.Empty(t, log.withPrefix("cancel "))
}
