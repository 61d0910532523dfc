package events

// Topic constants for domain events.
const (
	TopicBillCommitted = "bill.committed"
)

// DefaultTopics returns the topics notifiers subscribe to by default.
func DefaultTopics() []string {
	return []string{TopicBillCommitted}
}
