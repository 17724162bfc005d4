package credential

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"vision-relay-go/internal/platform/storage"
)

type sqliteStore struct {
	db *gorm.DB
}

// NewSQLite builds a store over the credential_records table.
func NewSQLite(db *gorm.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Put(ctx context.Context, creds Credentials) error {
	if err := validate(creds); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing storage.CredentialRecord
		err := tx.Where("name = ?", creds.Name).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&storage.CredentialRecord{
				Name:       creds.Name,
				ProviderID: creds.ProviderID,
				APIKey:     creds.APIKey,
				BaseURL:    creds.BaseURL,
			}).Error
		case err != nil:
			return err
		}
		existing.ProviderID = creds.ProviderID
		existing.APIKey = creds.APIKey
		existing.BaseURL = creds.BaseURL
		return tx.Save(&existing).Error
	})
}

func (s *sqliteStore) Get(ctx context.Context, name string) (Credentials, error) {
	var record storage.CredentialRecord
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Credentials{}, ErrNotConfigured
	}
	if err != nil {
		return Credentials{}, err
	}
	creds := Credentials{
		Name:       record.Name,
		ProviderID: record.ProviderID,
		APIKey:     record.APIKey,
		BaseURL:    record.BaseURL,
	}
	if !creds.Configured() {
		return Credentials{}, ErrNotConfigured
	}
	return creds, nil
}

func (s *sqliteStore) Remove(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Where("name = ?", name).Delete(&storage.CredentialRecord{}).Error
}

func (s *sqliteStore) List(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.db.WithContext(ctx).Model(&storage.CredentialRecord{}).Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (s *sqliteStore) Stats(ctx context.Context) (map[string]any, error) {
	var total, configured int64
	if err := s.db.WithContext(ctx).Model(&storage.CredentialRecord{}).Count(&total).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&storage.CredentialRecord{}).
		Where("api_key <> ''").Count(&configured).Error; err != nil {
		return nil, err
	}
	return map[string]any{
		"type":       DriverSQLite,
		"total":      total,
		"configured": configured,
	}, nil
}

func (s *sqliteStore) Close(context.Context) error {
	return nil
}
