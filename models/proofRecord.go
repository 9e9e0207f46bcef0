package models

import (
	"context"
	"errors"
	"time"

	"github.com/validtech/valid_backend/utils"
	"gorm.io/gorm"
)

var ErrProofRecordImmutable = errors.New("proof records are append-only")

type ProofRecord struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	AccountId    string     `gorm:"size:36;not null;index" json:"account_id"`
	DeploymentId string     `gorm:"size:36;not null;index" json:"deployment_id"`
	Verdict      Verdict    `gorm:"size:10;not null;index" json:"verdict"`
	Scores       ScoreMap   `gorm:"type:text" json:"scores"`
	Flags        StringList `gorm:"type:text" json:"flags"`
	InputHash    string     `gorm:"size:64;not null" json:"input_hash"`
	OutputHash   string     `gorm:"size:64;not null" json:"output_hash"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
}

func (ProofRecord) TableName() string { return "account_proof_records" }

func (p ProofRecord) GetCursor() (time.Time, string) { return p.CreatedAt, p.ID }

func (p *ProofRecord) BeforeCreate(tx *gorm.DB) error {
	stampNew(&p.ID, &p.CreatedAt)
	if !p.Verdict.IsValid() {
		return utils.InvalidInput("invalid verdict")
	}
	return nil
}

func (p *ProofRecord) BeforeUpdate(tx *gorm.DB) error {
	return ErrProofRecordImmutable
}

func (p *ProofRecord) BeforeDelete(tx *gorm.DB) error {
	return ErrProofRecordImmutable
}

type ProofRecordFilter struct {
	AccountId    string  `form:"account_id"`
	DeploymentId string  `form:"deployment_id"`
	Verdict      string  `form:"verdict"`
	First        *int    `form:"first"`
	After        *string `form:"after"`
}

func ListProofRecords(ctx context.Context, f ProofRecordFilter) (*Connection[ProofRecord], error) {
	dbCtx := dbWith(ctx).Model(&ProofRecord{})
	if f.AccountId != "" {
		dbCtx = dbCtx.Where("account_id = ?", f.AccountId)
	}
	if f.DeploymentId != "" {
		dbCtx = dbCtx.Where("deployment_id = ?", f.DeploymentId)
	}
	if f.Verdict != "" {
		dbCtx = dbCtx.Where("verdict = ?", f.Verdict)
	}
	return FetchPageCompositeCursor[ProofRecord](dbCtx, PageSize(f.First), f.After)
}
