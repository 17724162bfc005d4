package storage

import (
	"time"

	"gorm.io/datatypes"
)

// CredentialRecord is one named provider credential set.
type CredentialRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	ProviderID string    `gorm:"type:varchar(64);not null" json:"provider_id"`
	APIKey     string    `gorm:"not null" json:"-"`
	BaseURL    string    `json:"base_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (CredentialRecord) TableName() string {
	return "credential_records"
}

// DomainEvent is a persisted analysis event.
type DomainEvent struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	EventType string         `gorm:"index;not null" json:"event_type"`
	BatchID   string         `gorm:"index" json:"batch_id"`
	Data      datatypes.JSON `gorm:"not null" json:"data"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

func (DomainEvent) TableName() string {
	return "domain_events"
}
