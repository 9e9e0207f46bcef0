package models

import (
	"context"
	"strings"
	"time"

	"github.com/validtech/valid_backend/utils"
	"gorm.io/gorm"
)

type Account struct {
	ID               string           `gorm:"primaryKey;size:36" json:"id"`
	Name             string           `gorm:"size:150;not null;index" json:"name"`
	Industry         string           `gorm:"size:100" json:"industry"`
	Location         string           `gorm:"size:150" json:"location"`
	Status           AccountStatus    `gorm:"size:20;not null;default:'prospect';index" json:"status"`
	DataClasses      StringList       `gorm:"type:text" json:"data_classes"`
	UseCases         StringList       `gorm:"type:text" json:"use_cases"`
	OutputPreference OutputPreference `gorm:"size:30;not null;default:'verdict_only'" json:"output_preference"`
	TotalRuns        int              `gorm:"not null;default:0" json:"total_runs"`
	LastVerdict      *Verdict         `gorm:"size:10" json:"last_verdict"`
	LastRunAt        *time.Time       `json:"last_run_at"`
	CreatedAt        time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (Account) TableName() string { return "enterprise_accounts" }

func (a Account) GetCursor() (time.Time, string) { return a.CreatedAt, a.ID }

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	stampNew(&a.ID, &a.CreatedAt)
	return nil
}

type NewAccount struct {
	Name             string           `json:"name" binding:"required"`
	Industry         string           `json:"industry"`
	Location         string           `json:"location"`
	Status           AccountStatus    `json:"status"`
	DataClasses      []string         `json:"data_classes"`
	UseCases         []string         `json:"use_cases"`
	OutputPreference OutputPreference `json:"output_preference"`
}

// overview tab
type UpdateAccountOverview struct {
	Name     *string        `json:"name"`
	Industry *string        `json:"industry"`
	Location *string        `json:"location"`
	Status   *AccountStatus `json:"status"`
}

// intake tab
type UpdateAccountIntake struct {
	DataClasses      []string         `json:"data_classes"`
	UseCases         []string         `json:"use_cases"`
	OutputPreference OutputPreference `json:"output_preference" binding:"required"`
}

type AccountFilter struct {
	Status string  `form:"status"`
	Query  string  `form:"q"`
	First  *int    `form:"first"`
	After  *string `form:"after"`
}

func cleanList(in []string) StringList {
	out := make(StringList, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return utils.UniqueSlice(out)
}

func (input *NewAccount) validate() error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return utils.InvalidInput("name is required")
	}
	if input.Status == "" {
		input.Status = AccountStatusProspect
	}
	if !input.Status.IsValid() {
		return utils.InvalidInput("invalid account status")
	}
	if input.OutputPreference == "" {
		input.OutputPreference = OutputPreferenceVerdictOnly
	}
	if !input.OutputPreference.IsValid() {
		return utils.InvalidInput("invalid output preference")
	}
	return nil
}

func CreateAccount(ctx context.Context, input *NewAccount) (*Account, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	account := Account{
		Name:             input.Name,
		Industry:         strings.TrimSpace(input.Industry),
		Location:         strings.TrimSpace(input.Location),
		Status:           input.Status,
		DataClasses:      cleanList(input.DataClasses),
		UseCases:         cleanList(input.UseCases),
		OutputPreference: input.OutputPreference,
	}

	err := dbWith(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionCreate, account.ID, "accounts", &account.ID, nil, account, "Account "+account.Name+" created.")
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func GetAccount(ctx context.Context, id string) (*Account, error) {
	return GetResource[Account](ctx, id)
}

func ListAccounts(ctx context.Context, f AccountFilter) (*Connection[Account], error) {
	dbCtx := dbWith(ctx).Model(&Account{})
	if f.Status != "" {
		dbCtx = dbCtx.Where("status = ?", f.Status)
	}
	if strings.TrimSpace(f.Query) != "" {
		dbCtx = dbCtx.Where("LOWER(name) LIKE ?", likePattern(f.Query))
	}
	return FetchPageCompositeCursor[Account](dbCtx, PageSize(f.First), f.After)
}

func UpdateAccountOverviewTab(ctx context.Context, id string, input *UpdateAccountOverview) (*Account, error) {
	updates := map[string]interface{}{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, utils.InvalidInput("name is required")
		}
		updates["name"] = name
	}
	if input.Industry != nil {
		updates["industry"] = strings.TrimSpace(*input.Industry)
	}
	if input.Location != nil {
		updates["location"] = strings.TrimSpace(*input.Location)
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, utils.InvalidInput("invalid account status")
		}
		updates["status"] = *input.Status
	}
	return updateAccount(ctx, id, updates, "overview")
}

func UpdateAccountIntakeTab(ctx context.Context, id string, input *UpdateAccountIntake) (*Account, error) {
	if !input.OutputPreference.IsValid() {
		return nil, utils.InvalidInput("invalid output preference")
	}
	updates := map[string]interface{}{
		"data_classes":      cleanList(input.DataClasses),
		"use_cases":         cleanList(input.UseCases),
		"output_preference": input.OutputPreference,
	}
	return updateAccount(ctx, id, updates, "intake")
}

func updateAccount(ctx context.Context, id string, updates map[string]interface{}, tab string) (*Account, error) {
	oldAccount, err := GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return oldAccount, nil
	}

	var account Account
	err = dbWith(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Account{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).First(&account).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionUpdate, id, "accounts", &account.ID, oldAccount, account, "Account "+account.Name+" "+tab+" updated.")
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}
