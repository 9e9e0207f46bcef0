package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/validtech/valid_backend/utils"
	"gorm.io/gorm"
)

// History is the admin change log for accounts, deployments and connectors.
type History struct {
	ID            string        `gorm:"primaryKey;size:36" json:"id"`
	ActionType    HistoryAction `gorm:"size:1;not null" json:"action_type"`
	Before        string        `gorm:"type:text" json:"before"`
	After         string        `gorm:"type:text" json:"after"`
	Description   string        `gorm:"type:text;not null" json:"description"`
	ReferenceID   string        `gorm:"size:36;index:idx_history_ref,priority:2" json:"reference_id"`
	ReferenceType string        `gorm:"size:50;index:idx_history_ref,priority:1" json:"reference_type"`
	AccountId     *string       `gorm:"size:36;index" json:"account_id"`
	ActorId       string        `gorm:"size:36" json:"actor_id"`
	ActorName     string        `gorm:"size:100" json:"actor_name"`
	CreatedAt     time.Time     `gorm:"index" json:"created_at"`
}

func (History) TableName() string { return "admin_histories" }

func (h History) GetCursor() (time.Time, string) { return h.CreatedAt, h.ID }

func (h *History) BeforeCreate(tx *gorm.DB) error {
	stampNew(&h.ID, &h.CreatedAt)
	return nil
}

func createHistory(tx *gorm.DB,
	actionType HistoryAction,
	referenceId string,
	referenceType string,
	accountId *string,
	before interface{},
	after interface{},
	description string) error {

	ctx := tx.Statement.Context
	history := History{
		ActionType:    actionType,
		Description:   description,
		ReferenceID:   referenceId,
		ReferenceType: referenceType,
		AccountId:     accountId,
		ActorName:     utils.ActorName(ctx),
	}
	if id, ok := utils.GetProfileIdFromContext(ctx); ok {
		history.ActorId = id
	}
	if before != nil {
		b, _ := json.Marshal(before)
		history.Before = string(b)
	}
	if after != nil {
		a, _ := json.Marshal(after)
		history.After = string(a)
	}
	return tx.Create(&history).Error
}

type HistoryFilter struct {
	ReferenceType string  `form:"reference_type"`
	ReferenceId   string  `form:"reference_id"`
	First         *int    `form:"first"`
	After         *string `form:"after"`
}

func ListHistories(ctx context.Context, f HistoryFilter) (*Connection[History], error) {
	dbCtx := dbWith(ctx).Model(&History{})
	if f.ReferenceType != "" {
		dbCtx = dbCtx.Where("reference_type = ?", f.ReferenceType)
	}
	if f.ReferenceId != "" {
		dbCtx = dbCtx.Where("reference_id = ?", f.ReferenceId)
	}
	return FetchPageCompositeCursor[History](dbCtx, PageSize(f.First), f.After)
}
