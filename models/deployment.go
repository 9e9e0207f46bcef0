package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/validtech/valid_backend/utils"
	"gorm.io/gorm"
)

const MaxDeploymentTTLSeconds = 86400

// lens names, in display order
var LensNames = []string{"identity", "document", "liveness", "sanctions", "fraud", "device", "consent"}

type Lenses struct {
	Identity  bool `gorm:"column:lens_identity;not null;default:false" json:"identity"`
	Document  bool `gorm:"column:lens_document;not null;default:false" json:"document"`
	Liveness  bool `gorm:"column:lens_liveness;not null;default:false" json:"liveness"`
	Sanctions bool `gorm:"column:lens_sanctions;not null;default:false" json:"sanctions"`
	Fraud     bool `gorm:"column:lens_fraud;not null;default:false" json:"fraud"`
	Device    bool `gorm:"column:lens_device;not null;default:false" json:"device"`
	Consent   bool `gorm:"column:lens_consent;not null;default:false" json:"consent"`
}

// Enabled returns the names of the switched-on lenses in LensNames order.
func (l Lenses) Enabled() []string {
	flags := []bool{l.Identity, l.Document, l.Liveness, l.Sanctions, l.Fraud, l.Device, l.Consent}
	var names []string
	for i, on := range flags {
		if on {
			names = append(names, LensNames[i])
		}
	}
	return names
}

type Deployment struct {
	ID                 string        `gorm:"primaryKey;size:36" json:"id"`
	AccountId          string        `gorm:"size:36;not null;index" json:"account_id"`
	Name               string        `gorm:"size:150;not null" json:"name"`
	Lenses             Lenses        `gorm:"embedded" json:"lenses"`
	ConsensusThreshold int           `gorm:"not null" json:"consensus_threshold"`
	TTLSeconds         int           `gorm:"column:ttl_seconds;not null" json:"ttl_seconds"`
	DefaultAction      DefaultAction `gorm:"size:10;not null" json:"default_action"`
	CreatedAt          time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

func (Deployment) TableName() string { return "account_deployments" }

func (d Deployment) GetCursor() (time.Time, string) { return d.CreatedAt, d.ID }

func (d *Deployment) BeforeCreate(tx *gorm.DB) error {
	stampNew(&d.ID, &d.CreatedAt)
	return nil
}

type NewDeployment struct {
	Name               string        `json:"name" binding:"required"`
	Lenses             Lenses        `json:"lenses"`
	ConsensusThreshold int           `json:"consensus_threshold"`
	TTLSeconds         int           `json:"ttl_seconds"`
	DefaultAction      DefaultAction `json:"default_action"`
}

func (input *NewDeployment) validate() error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return utils.InvalidInput("name is required")
	}
	enabled := len(input.Lenses.Enabled())
	if enabled == 0 {
		return utils.InvalidInput("at least one lens must be enabled")
	}
	if input.ConsensusThreshold < 1 || input.ConsensusThreshold > enabled {
		return utils.InvalidInputf("consensus threshold must be between 1 and %d", enabled)
	}
	if input.TTLSeconds < 1 || input.TTLSeconds > MaxDeploymentTTLSeconds {
		return utils.InvalidInputf("ttl seconds must be between 1 and %d", MaxDeploymentTTLSeconds)
	}
	if input.DefaultAction == "" {
		input.DefaultAction = DefaultActionPurge
	}
	if !input.DefaultAction.IsValid() {
		return utils.InvalidInput("default action must be PURGE, RETAIN or ESCALATE")
	}
	return nil
}

func CreateDeployment(ctx context.Context, accountId string, input *NewDeployment) (*Deployment, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[Account](ctx, accountId); err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, utils.InvalidInput("account not found")
		}
		return nil, err
	}

	deployment := Deployment{
		AccountId:          accountId,
		Name:               input.Name,
		Lenses:             input.Lenses,
		ConsensusThreshold: input.ConsensusThreshold,
		TTLSeconds:         input.TTLSeconds,
		DefaultAction:      input.DefaultAction,
	}
	err := dbWith(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&deployment).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionCreate, deployment.ID, "deployments", &accountId, nil, deployment, "Deployment "+deployment.Name+" created.")
	})
	if err != nil {
		return nil, err
	}
	return &deployment, nil
}

func GetDeployment(ctx context.Context, id string) (*Deployment, error) {
	return GetResource[Deployment](ctx, id)
}

func ListDeployments(ctx context.Context, accountId string) ([]*Deployment, error) {
	return utils.FetchAllModels[Deployment](ctx, "created_at DESC, id DESC", "account_id = ?", accountId)
}

// DeleteDeployment removes the deployment; its proof records stay as audit history.
func DeleteDeployment(ctx context.Context, id string) (*Deployment, error) {
	deployment, err := GetDeployment(ctx, id)
	if err != nil {
		return nil, err
	}
	err = dbWith(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(deployment).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionDelete, deployment.ID, "deployments", &deployment.AccountId, deployment, nil, "Deployment "+deployment.Name+" deleted.")
	})
	if err != nil {
		return nil, err
	}
	return deployment, nil
}
