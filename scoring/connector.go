package scoring

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/validtech/valid_backend/config"
	"github.com/validtech/valid_backend/models"
)

// SimulatedSuccessRate is the share of simulated connector tests that pass.
const SimulatedSuccessRate = 0.7

type TestResult struct {
	OK      bool
	Message string
	Mode    string
}

// Tester checks whether a connector endpoint is reachable.
type Tester interface {
	Test(ctx context.Context, connector *models.Connector) TestResult
}

// NewTester picks the tester for CONNECTOR_TEST_MODE.
func NewTester() Tester {
	if config.ConnectorTestMode() == config.ConnectorTestModeLive {
		return NewHTTPTester(nil)
	}
	return NewSimulatedTester(nil)
}

type SimulatedTester struct {
	mu    sync.Mutex
	float func() float64
}

func NewSimulatedTester(float func() float64) *SimulatedTester {
	if float == nil {
		float = rand.New(rand.NewSource(time.Now().UnixNano())).Float64
	}
	return &SimulatedTester{float: float}
}

func (t *SimulatedTester) Test(ctx context.Context, connector *models.Connector) TestResult {
	t.mu.Lock()
	draw := t.float()
	t.mu.Unlock()
	if draw < SimulatedSuccessRate {
		return TestResult{OK: true, Message: "Connection verified (simulated)", Mode: config.ConnectorTestModeSimulated}
	}
	return TestResult{OK: false, Message: "Endpoint did not respond (simulated)", Mode: config.ConnectorTestModeSimulated}
}

// HTTPTester sends a HEAD request to the endpoint. Any response below 500
// counts as reachable; auth failures still prove the host is there.
type HTTPTester struct {
	client *http.Client
}

func NewHTTPTester(client *http.Client) *HTTPTester {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPTester{client: client}
}

func (t *HTTPTester) Test(ctx context.Context, connector *models.Connector) TestResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, connector.EndpointUrl, nil)
	if err != nil {
		return TestResult{OK: false, Message: err.Error(), Mode: config.ConnectorTestModeLive}
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return TestResult{OK: false, Message: err.Error(), Mode: config.ConnectorTestModeLive}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return TestResult{OK: false, Message: fmt.Sprintf("endpoint returned %d", resp.StatusCode), Mode: config.ConnectorTestModeLive}
	}
	return TestResult{OK: true, Message: fmt.Sprintf("endpoint returned %d", resp.StatusCode), Mode: config.ConnectorTestModeLive}
}
