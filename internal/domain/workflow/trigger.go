package workflow

// Trigger is an action that may move a claim or bill to another state
type Trigger string

const (
	TriggerVerify      Trigger = "VERIFY"
	TriggerReject      Trigger = "REJECT"
	TriggerMarkPaid    Trigger = "MARK_PAID"
	TriggerMarkOverdue Trigger = "MARK_OVERDUE"
	TriggerCancel      Trigger = "CANCEL"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
