package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/PaddleBilling/app/models"
)

// EventStore records webhook deliveries and is the deduplication authority.
type EventStore interface {
	// RecordIfNew inserts the delivery unless its provider event id is already
	// stored. created reports whether this call inserted the row.
	RecordIfNew(ctx context.Context, providerEventID, eventType string, payload Payload) (bool, *models.PaddleEvent, error)
	// Find loads a stored delivery by provider event id.
	Find(ctx context.Context, providerEventID string) (*models.PaddleEvent, error)
}

type gormEventStore struct {
	db *gorm.DB
}

// NewEventStore creates an event store backed by GORM.
func NewEventStore(db *gorm.DB) EventStore {
	return &gormEventStore{db: db}
}

func (s *gormEventStore) RecordIfNew(ctx context.Context, providerEventID, eventType string, payload Payload) (bool, *models.PaddleEvent, error) {
	raw, err := payload.Marshal()
	if err != nil {
		return false, nil, fmt.Errorf("encode payload: %w", err)
	}

	event := &models.PaddleEvent{
		PaddleEventID: NormalizeEventID(providerEventID, raw),
		EventType:     NormalizeEventType(eventType),
		Payload:       datatypes.JSON(raw),
	}

	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "paddle_event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil && !isDuplicateKeyError(tx.Error) {
		return false, nil, tx.Error
	}

	created := tx.Error == nil && tx.RowsAffected > 0
	stored, err := s.Find(ctx, event.PaddleEventID)
	if err != nil {
		return false, nil, err
	}
	return created, stored, nil
}

func (s *gormEventStore) Find(ctx context.Context, providerEventID string) (*models.PaddleEvent, error) {
	var stored models.PaddleEvent
	err := s.db.WithContext(ctx).
		Where("paddle_event_id = ?", strings.TrimSpace(providerEventID)).
		First(&stored).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &stored, nil
}

// NormalizeEventID trims the provider id. Deliveries without one are keyed by
// a hash of their payload so identical redeliveries still collapse.
func NormalizeEventID(providerEventID string, rawPayload []byte) string {
	id := strings.TrimSpace(providerEventID)
	if id != "" {
		return id
	}
	sum := sha256.Sum256(rawPayload)
	return "hash:" + hex.EncodeToString(sum[:])
}

func NormalizeEventType(eventType string) string {
	t := strings.TrimSpace(eventType)
	if t == "" {
		return models.PaddleEventUnknown
	}
	return t
}
