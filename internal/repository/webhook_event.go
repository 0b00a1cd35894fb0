package repository

import (
	"context"
	"stillwave-marketplace/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WebhookEventRepository is the idempotency ledger. BeginProcessing is an
// atomic insert-or-no-op keyed by the processor's event id, so two
// concurrent deliveries of the same event cannot both observe "never
// seen". A row that previously finished as "processed" is a duplicate;
// "failed" and stale "processing" rows are re-claimed for another run.
type WebhookEventRepository interface {
	BeginProcessing(ctx context.Context, event *model.WebhookEvent) (duplicate bool, err error)
	MarkProcessed(ctx context.Context, eventID string) error
	MarkFailed(ctx context.Context, eventID, errorMessage string) error
	Get(ctx context.Context, eventID string) (*model.WebhookEvent, error)
}

type webhookEventRepoImpl struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepoImpl{
		db: db,
	}
}

func (r *webhookEventRepoImpl) BeginProcessing(ctx context.Context, event *model.WebhookEvent) (bool, error) {
	event.Status = model.EventStatusProcessing
	event.ErrorMessage = ""
	event.ProcessedAt = nil

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(event)

	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 1 {
		// First sighting of this event id.
		return false, nil
	}

	existing, err := r.Get(ctx, event.EventID)
	if err != nil {
		return false, err
	}
	if existing.Status == model.EventStatusProcessed {
		return true, nil
	}

	// Previous attempt failed or crashed mid-handler; claim it again.
	err = r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("event_id = ?", event.EventID).
		Updates(map[string]interface{}{
			"status":        model.EventStatusProcessing,
			"error_message": "",
			"updated_at":    time.Now(),
		}).Error

	return false, err
}

func (r *webhookEventRepoImpl) MarkProcessed(ctx context.Context, eventID string) error {
	return r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status":       model.EventStatusProcessed,
			"processed_at": time.Now(),
			"updated_at":   time.Now(),
		}).Error
}

func (r *webhookEventRepoImpl) MarkFailed(ctx context.Context, eventID, errorMessage string) error {
	return r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status":        model.EventStatusFailed,
			"error_message": errorMessage,
			"updated_at":    time.Now(),
		}).Error
}

func (r *webhookEventRepoImpl) Get(ctx context.Context, eventID string) (*model.WebhookEvent, error) {
	var event model.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&event).Error
	if err != nil {
		return nil, err
	}

	return &event, nil
}
