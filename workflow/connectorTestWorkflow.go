package workflow

import (
	"context"
	"time"

	"github.com/validtech/valid_backend/config"
	"github.com/validtech/valid_backend/models"
	"github.com/validtech/valid_backend/scoring"
)

// TestConnector runs the tester and stores the outcome on the connector row.
func TestConnector(ctx context.Context, tester scoring.Tester, connectorId string) (*models.Connector, error) {
	connector, err := models.GetConnector(ctx, connectorId)
	if err != nil {
		return nil, err
	}
	result := tester.Test(ctx, connector)

	outcome := "failed"
	if result.OK {
		outcome = "connected"
	}
	config.ConnectorTests.WithLabelValues(result.Mode, outcome).Inc()

	return models.RecordConnectorTest(ctx, connector.ID, result.OK, result.Message, time.Now().UTC())
}
