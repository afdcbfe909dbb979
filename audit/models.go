package audit

import "time"

// TimelineEvent captures an immutable business event for an issue.
type TimelineEvent struct {
	ID        int64
	IssueID   string
	Type      string
	ActorID   *string
	Payload   []byte
	CreatedAt time.Time
}

// Outbox message states.
const (
	OutboxPending   = "pending"
	OutboxClaimed   = "claimed"
	OutboxProcessed = "processed"
	OutboxDead      = "dead"
)

// OutboxMessage represents a transactional outbox entry awaiting delivery
// to the downstream notification sink.
type OutboxMessage struct {
	ID        int64
	Topic     string
	Payload   []byte
	Status    string
	Attempts  int
	CreatedAt time.Time
}
