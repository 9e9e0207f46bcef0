package workflow

import (
	"context"

	"github.com/validtech/valid_backend/config"
	"github.com/validtech/valid_backend/models"
	"github.com/validtech/valid_backend/scoring"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("valid-backend/workflow")

// ProcessDemoRun scores the input against the deployment's lenses and
// records the proof record plus the account counters.
func ProcessDemoRun(ctx context.Context, scorer scoring.Scorer, accountId string, input *models.NewDemoRun) (*models.DemoRunResult, error) {
	ctx, span := tracer.Start(ctx, "ProcessDemoRun")
	defer span.End()
	span.SetAttributes(
		attribute.String("account_id", accountId),
		attribute.String("deployment_id", input.DeploymentId),
	)

	account, deployment, err := models.LoadDemoTarget(ctx, accountId, input.DeploymentId)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	outcome, err := scorer.Score(ctx, deployment, input.Input)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("verdict", string(outcome.Verdict)))

	result, err := models.RecordDemoRun(ctx, account, deployment, outcome)
	if err != nil {
		config.LogError(config.GetLogger(), "DemoRunWorkflow", "ProcessDemoRun", "record demo run", map[string]string{
			"account_id":    accountId,
			"deployment_id": input.DeploymentId,
		}, err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	config.DemoRuns.WithLabelValues(string(outcome.Verdict)).Inc()
	return result, nil
}
