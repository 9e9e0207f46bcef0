package models

import (
	"context"
	"time"

	"github.com/validtech/valid_backend/utils"
	"gorm.io/gorm"
)

type NewDemoRun struct {
	DeploymentId string `json:"deployment_id" binding:"required"`
	Input        string `json:"input" binding:"required"`
}

// DemoOutcome is what the scorer produced for one demo cockpit run.
type DemoOutcome struct {
	Verdict    Verdict
	Scores     ScoreMap
	Flags      []string
	InputHash  string
	OutputHash string
	RanAt      time.Time
}

type DemoRunResult struct {
	ProofRecord *ProofRecord `json:"proof_record"`
	Account     *Account     `json:"account"`
}

// LoadDemoTarget resolves the account and checks the deployment belongs to it.
func LoadDemoTarget(ctx context.Context, accountId, deploymentId string) (*Account, *Deployment, error) {
	account, err := GetAccount(ctx, accountId)
	if err != nil {
		return nil, nil, err
	}
	deployment, err := GetDeployment(ctx, deploymentId)
	if err != nil {
		return nil, nil, err
	}
	if deployment.AccountId != account.ID {
		return nil, nil, utils.InvalidInput("deployment does not belong to account")
	}
	return account, deployment, nil
}

// RecordDemoRun appends the proof record and bumps the account counters in
// one transaction, serialized per account.
func RecordDemoRun(ctx context.Context, account *Account, deployment *Deployment, outcome DemoOutcome) (*DemoRunResult, error) {
	release, err := utils.AccountLock(ctx, account.ID, "DemoRun", "models", "RecordDemoRun")
	if err != nil {
		return nil, err
	}
	defer release()

	ranAt := outcome.RanAt
	if ranAt.IsZero() {
		ranAt = time.Now().UTC()
	}
	record := ProofRecord{
		AccountId:    account.ID,
		DeploymentId: deployment.ID,
		Verdict:      outcome.Verdict,
		Scores:       outcome.Scores,
		Flags:        cleanList(outcome.Flags),
		InputHash:    outcome.InputHash,
		OutputHash:   outcome.OutputHash,
		CreatedAt:    ranAt,
	}

	var updated Account
	err = dbWith(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		if err := tx.Model(&Account{}).Where("id = ?", account.ID).Updates(map[string]interface{}{
			"total_runs":   gorm.Expr("total_runs + 1"),
			"last_verdict": string(outcome.Verdict),
			"last_run_at":  ranAt,
		}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", account.ID).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &DemoRunResult{ProofRecord: &record, Account: &updated}, nil
}
