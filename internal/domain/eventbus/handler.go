package eventbus

import (
	"context"
	"time"

	"vision-relay-go/internal/utils"
)

// Recorder persists events. storage.EventRepository implements it.
type Recorder interface {
	Save(ctx context.Context, eventType, batchID string, payload any) error
}

const recordTimeout = 5 * time.Second

// EventHandler logs analysis events and optionally records them.
type EventHandler struct {
	logger   *utils.Logger
	recorder Recorder
}

func NewEventHandler(logger *utils.Logger, recorder Recorder) *EventHandler {
	return &EventHandler{logger: logger, recorder: recorder}
}

func (h *EventHandler) HandleItem(eventType string, data ItemEventData) {
	if data.Error != "" {
		h.logger.WarnTag("EVENTS", "batch %s item %d failed (%s): %s",
			data.BatchID, data.Index, data.ErrorKind, data.Error)
	} else {
		h.logger.DebugTag("EVENTS", "batch %s item %d analysed by %s/%s in %dms",
			data.BatchID, data.Index, data.Provider, data.Model, data.DurationMs)
	}
	h.record(eventType, data.BatchID, data)
}

func (h *EventHandler) HandleBatch(data BatchEventData) {
	h.logger.InfoTag("EVENTS", "batch %s finished: %d/%d succeeded in %dms",
		data.BatchID, data.Succeeded, data.Items, data.DurationMs)
	h.record(EventBatchCompleted, data.BatchID, data)
}

func (h *EventHandler) record(eventType, batchID string, payload any) {
	if h.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := h.recorder.Save(ctx, eventType, batchID, payload); err != nil {
		h.logger.ErrorTag("EVENTS", "persist %s failed: %v", eventType, err)
	}
}

// SetupEventHandlers subscribes handler to every analysis topic on bus.
func SetupEventHandlers(bus Subscriber, handler *EventHandler) error {
	subscriptions := map[string]interface{}{
		EventItemCompleted: func(data ItemEventData) {
			handler.HandleItem(EventItemCompleted, data)
		},
		EventItemFailed: func(data ItemEventData) {
			handler.HandleItem(EventItemFailed, data)
		},
		EventBatchCompleted: func(data BatchEventData) {
			handler.HandleBatch(data)
		},
	}
	for topic, fn := range subscriptions {
		if err := bus.Subscribe(topic, fn); err != nil {
			return err
		}
	}
	return nil
}
