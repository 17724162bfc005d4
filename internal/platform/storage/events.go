package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"vision-relay-go/internal/platform/errors"
)

// EventRepository persists analysis events.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// EventFilter narrows List. Zero values match everything; Limit defaults to 100.
type EventFilter struct {
	EventType string
	BatchID   string
	Limit     int
}

func (r *EventRepository) Save(ctx context.Context, eventType, batchID string, payload any) error {
	data, err := sonic.Marshal(payload)
	if err != nil {
		return errors.Wrap(errors.KindStorage, "events.save", "encode event payload", err)
	}
	record := &DomainEvent{
		EventType: eventType,
		BatchID:   batchID,
		Data:      datatypes.JSON(data),
		CreatedAt: time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "events.save", "insert event", err)
	}
	return nil
}

// List returns matching events, newest first.
func (r *EventRepository) List(ctx context.Context, filter EventFilter) ([]DomainEvent, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	q := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit)
	if filter.EventType != "" {
		q = q.Where("event_type = ?", filter.EventType)
	}
	if filter.BatchID != "" {
		q = q.Where("batch_id = ?", filter.BatchID)
	}
	var events []DomainEvent
	if err := q.Find(&events).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "events.list", "query events", err)
	}
	return events, nil
}
