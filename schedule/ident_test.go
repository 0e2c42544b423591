package schedule

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAlertIDReferenceValues(t *testing.T) {
	require.Equal(t, int64(7000), AlertID(7, 0))
	require.Equal(t, int64(7001), AlertID(7, 1))
	require.Equal(t, int64(7999), AlertID(7, DueSlot))
	require.Equal(t, int64(3999), AlertID(3, DueSlot))
}

func TestAlertIDRoundTrip(t *testing.T) {
	slots := make([]int, 0, MaxPreDueSlots+1)
	for i := 0; i < MaxPreDueSlots; i++ {
		slots = append(slots, i)
	}
	slots = append(slots, DueSlot)

	for _, obligationID := range []int64{1, 7, 42, 12345} {
		for _, slot := range slots {
			gotID, gotSlot := DecodeAlertID(AlertID(obligationID, slot))
			require.Equal(t, obligationID, gotID)
			require.Equal(t, slot, gotSlot)
		}
	}
}

func TestAlertIDRangesDisjoint(t *testing.T) {
	// adjacent obligations: the highest id of one range stays below the
	// lowest of the next
	require.Less(t, AlertID(7, DueSlot), AlertID(8, 0))
}
