package interfaces

import "context"

// EventPublisher delivers ledger events to an external bus. Publishing is
// advisory: the ledger logs failures and never fails an operation over them.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event any) error
}
