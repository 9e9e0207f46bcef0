package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/validtech/valid_backend/utils"
	"gorm.io/gorm"
)

// NotificationRecord is the outbox row for an email-style side effect.
// Producers write it in the same transaction as the triggering row; the
// dispatcher publishes it after commit.
type NotificationRecord struct {
	ID               int              `gorm:"primaryKey;autoIncrement;index:idx_notification_dispatch,priority:3" json:"id"`
	Kind             NotificationKind `gorm:"size:40;not null;index" json:"kind"`
	Recipient        string           `gorm:"size:255;not null" json:"recipient"`
	Payload          string           `gorm:"type:text" json:"payload"`
	ReferenceId      string           `gorm:"size:36;index" json:"reference_id"`
	PublishStatus    string           `gorm:"size:20;index;not null;default:'PENDING';index:idx_notification_dispatch,priority:1" json:"publish_status"`
	PublishedAt      *time.Time       `json:"published_at"`
	MessageId        *string          `gorm:"size:255" json:"message_id"`
	PublishAttempts  int              `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time       `gorm:"index;index:idx_notification_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time       `gorm:"index" json:"locked_at"`
	LockedBy         *string          `gorm:"size:100" json:"locked_by"`
	LastPublishError *string          `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string           `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (NotificationRecord) TableName() string { return "notification_outbox" }

// EnqueueNotification writes the outbox row inside the caller's transaction.
func EnqueueNotification(tx *gorm.DB, kind NotificationKind, recipient string, referenceId string, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	rec := NotificationRecord{
		Kind:          kind,
		Recipient:     recipient,
		Payload:       string(b),
		ReferenceId:   referenceId,
		PublishStatus: OutboxPublishStatusPending,
	}
	if cid, ok := utils.GetCorrelationIdFromContext(tx.Statement.Context); ok {
		rec.CorrelationId = cid
	}
	return tx.Create(&rec).Error
}

// NotificationStatusCounts groups the outbox by publish status.
func NotificationStatusCounts(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		PublishStatus string
		Count         int64
	}
	err := dbWith(ctx).Model(&NotificationRecord{}).
		Select("publish_status, COUNT(*) AS count").
		Group("publish_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.PublishStatus] = r.Count
	}
	return counts, nil
}

// RequeueDeadNotifications moves DEAD rows back to PENDING with a fresh attempt budget.
func RequeueDeadNotifications(ctx context.Context) (int64, error) {
	res := dbWith(ctx).Model(&NotificationRecord{}).
		Where("publish_status = ?", OutboxPublishStatusDead).
		Updates(map[string]interface{}{
			"publish_status":     OutboxPublishStatusPending,
			"publish_attempts":   0,
			"next_attempt_at":    nil,
			"last_publish_error": nil,
		})
	return res.RowsAffected, res.Error
}
