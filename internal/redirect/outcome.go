package redirect

// Status is the terminal state of one candidate.
type Status string

// Candidate statuses.
const (
	StatusDelivered    Status = "delivered"
	StatusBot          Status = "bot"
	StatusSelf         Status = "self"
	StatusActive       Status = "active"
	StatusIgnored      Status = "ignored"
	StatusBlocked      Status = "blocked"
	StatusNotFound     Status = "not_found"
	StatusLookupFailed Status = "lookup_failed"
	StatusSendFailed   Status = "send_failed"
	StatusRuleError    Status = "rule_error"
	StatusCancelled    Status = "cancelled"
)

// Outcome reports what happened to one candidate recipient.
type Outcome struct {
	UserID uint64
	Status Status
	Err    error
}

// Delivered counts the outcomes that produced a notification.
func Delivered(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == StatusDelivered {
			n++
		}
	}
	return n
}
