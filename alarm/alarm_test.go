package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"paydue/schedule"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService() *Service {
	return NewService(time.Second, zap.NewNop().Sugar())
}

func payload(id int64) schedule.Payload {
	return schedule.Payload{ObligationID: id, Title: "electricity"}
}

func collect(fired *[]int64) func(schedule.Payload) {
	return func(p schedule.Payload) {
		*fired = append(*fired, p.ObligationID)
	}
}

func TestFireDueDeliversInFireTimeOrder(t *testing.T) {
	s := newTestService()
	require.NoError(t, s.ScheduleAt(7001, base.Add(3*time.Minute), payload(3)))
	require.NoError(t, s.ScheduleAt(7000, base.Add(1*time.Minute), payload(1)))
	require.NoError(t, s.ScheduleAt(7999, base.Add(2*time.Minute), payload(2)))

	var fired []int64
	s.fireDue(base.Add(2*time.Minute), collect(&fired))

	require.Equal(t, []int64{1, 2}, fired)

	// the remaining alert fires once its time arrives
	fired = nil
	s.fireDue(base.Add(3*time.Minute), collect(&fired))
	require.Equal(t, []int64{3}, fired)
}

func TestFireDueNothingPending(t *testing.T) {
	s := newTestService()

	var fired []int64
	s.fireDue(base, collect(&fired))
	require.Empty(t, fired)
}

func TestCancelUnscheduledIsNoop(t *testing.T) {
	s := newTestService()
	require.NoError(t, s.Cancel(12345))
	require.NoError(t, s.Cancel(12345))
}

func TestCancelRemovesPendingAlert(t *testing.T) {
	s := newTestService()
	require.NoError(t, s.ScheduleAt(7000, base.Add(time.Minute), payload(7)))
	require.NoError(t, s.Cancel(7000))

	var fired []int64
	s.fireDue(base.Add(time.Hour), collect(&fired))
	require.Empty(t, fired)
}

func TestScheduleSameIDReplaces(t *testing.T) {
	s := newTestService()
	require.NoError(t, s.ScheduleAt(7000, base.Add(1*time.Minute), payload(1)))
	require.NoError(t, s.ScheduleAt(7000, base.Add(5*time.Minute), payload(2)))

	var fired []int64
	s.fireDue(base.Add(2*time.Minute), collect(&fired))
	require.Empty(t, fired)

	s.fireDue(base.Add(5*time.Minute), collect(&fired))
	require.Equal(t, []int64{2}, fired)
}

func TestStopHaltsPump(t *testing.T) {
	s := NewService(time.Millisecond, zap.NewNop().Sugar())
	fired := make(chan int64, 10)
	s.Run(func(p schedule.Payload) { fired <- p.ObligationID })

	require.NoError(t, s.ScheduleAt(7999, time.Now(), payload(7)))
	select {
	case id := <-fired:
		require.Equal(t, int64(7), id)
	case <-time.After(time.Second):
		t.Fatal("due alert was not delivered")
	}

	s.Stop()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, s.ScheduleAt(8000, time.Now(), payload(8)))
	select {
	case id := <-fired:
		t.Fatalf("alert %d delivered after Stop", id)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestCancelMiddleOfHeapKeepsOrder(t *testing.T) {
	s := newTestService()
	for i, at := range []time.Duration{5, 1, 4, 2, 3} {
		require.NoError(t, s.ScheduleAt(int64(i), base.Add(at*time.Minute), payload(int64(at))))
	}
	// drop the alert due at +3m (id 4)
	require.NoError(t, s.Cancel(4))

	var fired []int64
	s.fireDue(base.Add(time.Hour), collect(&fired))
	require.Equal(t, []int64{1, 2, 4, 5}, fired)
}
