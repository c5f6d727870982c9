package watermilldb

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	log "github.com/sirupsen/logrus"
	"github.com/strait-labs/straitd/internal/core/domain"
)

type subscriber struct {
	topic   string
	handler func(events []domain.Event)
}

type eventRepository struct {
	publisher message.Publisher

	// history of serialized events, topic -> id -> ordered payloads
	history     map[string]map[string][][]byte
	historyLock *sync.RWMutex

	subscribers    map[string][]subscriber // topic -> subscribers
	subscriberLock *sync.Mutex
}

func NewWatermillEventRepository(publisher message.Publisher) domain.EventRepository {
	return &eventRepository{
		publisher:      publisher,
		history:        make(map[string]map[string][][]byte),
		historyLock:    &sync.RWMutex{},
		subscribers:    make(map[string][]subscriber),
		subscriberLock: &sync.Mutex{},
	}
}

func (e *eventRepository) ClearRegisteredHandlers(topics ...string) {
	e.subscriberLock.Lock()
	defer e.subscriberLock.Unlock()

	if len(topics) == 0 {
		e.subscribers = make(map[string][]subscriber)
		return
	}

	for _, topic := range topics {
		delete(e.subscribers, topic)
	}
}

func (e *eventRepository) Close() {
	//nolint:errcheck
	e.publisher.Close()
}

func (e *eventRepository) RegisterEventsHandler(
	topic string, handler func(events []domain.Event),
) {
	e.subscriberLock.Lock()
	defer e.subscriberLock.Unlock()

	if _, ok := e.subscribers[topic]; !ok {
		e.subscribers[topic] = make([]subscriber, 0)
	}

	e.subscribers[topic] = append(e.subscribers[topic], subscriber{
		topic:   topic,
		handler: handler,
	})
}

func (e *eventRepository) Save(
	ctx context.Context, topic string, id string, events []domain.Event,
) error {
	payloads := serializeEvents(events)

	e.historyLock.Lock()
	if _, ok := e.history[topic]; !ok {
		e.history[topic] = make(map[string][][]byte)
	}
	e.history[topic][id] = append(e.history[topic][id], payloads...)
	e.historyLock.Unlock()

	if err := e.publish(topic, payloads); err != nil {
		return err
	}
	// dispatch events to subscribers
	if err := e.dispatch(topic, id); err != nil {
		log.WithError(err).Error("failed to dispatch saved events")
	}

	return nil
}

func (e *eventRepository) dispatch(topic string, id string) error {
	// get all events for the topic filtered by id
	events, err := e.getAllEvents(topic, id)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}

	// run the handlers in go routines
	e.subscriberLock.Lock()
	defer e.subscriberLock.Unlock()
	for _, subscriber := range e.subscribers[topic] {
		go subscriber.handler(events)
	}
	return nil
}

// getAllEvents returns all historical events of a topic filtered by the id
// they were saved under, in save order.
func (e *eventRepository) getAllEvents(topic, id string) ([]domain.Event, error) {
	e.historyLock.RLock()
	defer e.historyLock.RUnlock()

	records := e.history[topic][id]

	events := make([]domain.Event, 0, len(records))
	for _, record := range records {
		event, err := deserializeEvent(record)
		if err != nil {
			log.WithError(err).Warnf("failed to deserialize event: %s", string(record))
			continue
		}
		events = append(events, event)
	}

	return events, nil
}

func (e *eventRepository) publish(topic string, payloads [][]byte) error {
	watermillMessages := make([]*message.Message, 0, len(payloads))
	for _, payload := range payloads {
		watermillMessages = append(
			watermillMessages,
			message.NewMessage(watermill.NewUUID(), payload),
		)
	}
	return e.publisher.Publish(topic, watermillMessages...)
}

func serializeEvents(events []domain.Event) [][]byte {
	payloads := make([][]byte, 0, len(events))
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		payloads = append(payloads, payload)
	}
	return payloads
}

func deserializeEvent(buf []byte) (domain.Event, error) {
	var eventType struct {
		Type domain.EventType
	}

	if err := json.Unmarshal(buf, &eventType); err != nil {
		return nil, err
	}

	switch eventType.Type {
	case domain.EventTypeTransferInitiated:
		var event = domain.TransferInitiated{}
		if err := json.Unmarshal(buf, &event); err == nil {
			return event, nil
		}
	case domain.EventTypeInputBurned:
		var event = domain.InputBurned{}
		if err := json.Unmarshal(buf, &event); err == nil {
			return event, nil
		}
	case domain.EventTypeReleaseRequested:
		var event = domain.ReleaseRequested{}
		if err := json.Unmarshal(buf, &event); err == nil {
			return event, nil
		}
	case domain.EventTypeInputReleased:
		var event = domain.InputReleased{}
		if err := json.Unmarshal(buf, &event); err == nil {
			return event, nil
		}
	case domain.EventTypeOutputSwapped:
		var event = domain.OutputSwapped{}
		if err := json.Unmarshal(buf, &event); err == nil {
			return event, nil
		}
	case domain.EventTypeLockRequested:
		var event = domain.LockRequested{}
		if err := json.Unmarshal(buf, &event); err == nil {
			return event, nil
		}
	case domain.EventTypeOutputLocked:
		var event = domain.OutputLocked{}
		if err := json.Unmarshal(buf, &event); err == nil {
			return event, nil
		}
	case domain.EventTypeMintRequested:
		var event = domain.MintRequested{}
		if err := json.Unmarshal(buf, &event); err == nil {
			return event, nil
		}
	case domain.EventTypeOutputMinted:
		var event = domain.OutputMinted{}
		if err := json.Unmarshal(buf, &event); err == nil {
			return event, nil
		}
	case domain.EventTypeTransferReverted:
		var event = domain.TransferReverted{}
		if err := json.Unmarshal(buf, &event); err == nil {
			return event, nil
		}
	case domain.EventTypeMappingRegistered:
		var event = domain.MappingRegistered{}
		if err := json.Unmarshal(buf, &event); err == nil {
			return event, nil
		}
	case domain.EventTypeRateUpdated:
		var event = domain.RateUpdated{}
		if err := json.Unmarshal(buf, &event); err == nil {
			return event, nil
		}
	case domain.EventTypeLiquidityAdded:
		var event = domain.LiquidityAdded{}
		if err := json.Unmarshal(buf, &event); err == nil {
			return event, nil
		}
	case domain.EventTypeMintingHalted:
		var event = domain.MintingHalted{}
		if err := json.Unmarshal(buf, &event); err == nil {
			return event, nil
		}
	case domain.EventTypeMintingResumed:
		var event = domain.MintingResumed{}
		if err := json.Unmarshal(buf, &event); err == nil {
			return event, nil
		}
	}

	return nil, fmt.Errorf("unknown event")
}
