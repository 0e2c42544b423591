package schedule

// Each obligation owns the alert identifier range
// [obligationID*1000, obligationID*1000+999]: slots 0..18 hold pre-due
// reminders, 999 is the due-moment reminder, the rest is reserved. The
// persistence layer draws obligation IDs from a single sequence, which is what
// keeps these ranges disjoint across obligation kinds.
const (
	alertIDSpan = 1000

	// MaxPreDueSlots caps the alert family size no matter how large the lead is.
	MaxPreDueSlots = 19

	// DueSlot is the reserved index of the due-moment reminder.
	DueSlot = 999
)

// AlertID maps (obligation, slot) to the identifier registered with the alert
// store. The mapping is a bijection; DecodeAlertID is its inverse.
func AlertID(obligationID int64, slot int) int64 {
	return obligationID*alertIDSpan + int64(slot)
}

// DecodeAlertID recovers the obligation ID and slot index an alert identifier
// was derived from.
func DecodeAlertID(id int64) (obligationID int64, slot int) {
	return id / alertIDSpan, int(id % alertIDSpan)
}
