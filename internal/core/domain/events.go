package domain

import "context"

type EventType int

const (
	EventTypeUndefined EventType = iota
	EventTypeTransferInitiated
	EventTypeInputBurned
	EventTypeReleaseRequested
	EventTypeInputReleased
	EventTypeOutputSwapped
	EventTypeLockRequested
	EventTypeOutputLocked
	EventTypeMintRequested
	EventTypeOutputMinted
	EventTypeTransferReverted
	EventTypeMappingRegistered
	EventTypeRateUpdated
	EventTypeLiquidityAdded
	EventTypeMintingHalted
	EventTypeMintingResumed
)

type Event interface {
	GetTopic() string
	GetType() EventType
}

type EventRepository interface {
	Save(ctx context.Context, topic string, id string, events []Event) error
	RegisterEventsHandler(topic string, handler func(events []Event))
	ClearRegisteredHandlers(topics ...string)
	Close()
}
