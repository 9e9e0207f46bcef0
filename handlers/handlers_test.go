package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/validtech/valid_backend/config"
	"github.com/validtech/valid_backend/middlewares"
	"github.com/validtech/valid_backend/models"
	"github.com/validtech/valid_backend/scoring"
	"github.com/validtech/valid_backend/testsupport"
	"github.com/validtech/valid_backend/utils"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryStore) Put(ctx context.Context, object string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[object] = data
	return nil
}

func (m *memoryStore) Get(ctx context.Context, object string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[object]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	return data, nil
}

type fixedTester struct{ ok bool }

func (f fixedTester) Test(ctx context.Context, connector *models.Connector) scoring.TestResult {
	if f.ok {
		return scoring.TestResult{OK: true, Message: "reachable", Mode: "simulated"}
	}
	return scoring.TestResult{OK: false, Message: "unreachable", Mode: "simulated"}
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	h      *Handlers
	ctx    context.Context
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	testsupport.UseSQLite(t, models.AllModels()...)
	testsupport.UseMiniredis(t)

	h := &Handlers{
		Scorer:    scoring.NewSeededScorer(func() float64 { return 0.9 }, func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }),
		Tester:    fixedTester{ok: true},
		Documents: &memoryStore{},
		Now:       time.Now,
	}
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware(), middlewares.SessionMiddleware(), middlewares.LoaderMiddleware())
	h.Register(r)
	return &testServer{t: t, router: r, h: h, ctx: utils.SetIsAdminInContext(context.Background(), true)}
}

func (s *testServer) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(email, password string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/auth/login", gin.H{"email": email, "password": password}, "")
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var info struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &info))
	require.NotEmpty(s.t, info.Token)
	return info.Token
}

func (s *testServer) adminToken() string {
	s.t.Helper()
	_, err := models.CreateAdministrator(s.ctx, "ops@valid.test", "admin password", "Ops Desk")
	require.NoError(s.t, err)
	return s.login("ops@valid.test", "admin password")
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestAuthFlow(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/api/auth/signup", gin.H{"email": "Dana@Acme.test", "password": "correct horse", "full_name": "Dana Lee"}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NotContains(t, w.Body.String(), "correct horse")

	require.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/auth/login", gin.H{"email": "dana@acme.test", "password": "wrong"}, "").Code)

	token := s.login("dana@acme.test", "correct horse")
	w = s.do(http.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "dana@acme.test")

	w = s.do(http.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"logged_out":true}`, w.Body.String())

	require.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/auth/me", nil, token).Code)
}

func TestLoginWithoutSessionStore(t *testing.T) {
	s := newServer(t)
	_, err := models.SignUp(s.ctx, &models.NewProfile{Email: "dana@acme.test", Password: "correct horse", FullName: "Dana Lee"})
	require.NoError(t, err)
	testsupport.NoRedis(t)

	w := s.do(http.MethodPost, "/api/auth/login", gin.H{"email": "dana@acme.test", "password": "correct horse"}, "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAccessCheck(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodGet, "/api/access/investor", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"allowed":false,"reason":"sign_in_required"}`, w.Body.String())

	require.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/access/board", nil, "").Code)

	_, err := models.SignUp(s.ctx, &models.NewProfile{Email: "dana@acme.test", Password: "correct horse", FullName: "Dana Lee"})
	require.NoError(t, err)
	token := s.login("dana@acme.test", "correct horse")

	w = s.do(http.MethodGet, "/api/access/investor", nil, token)
	require.JSONEq(t, `{"allowed":false,"reason":"approval_required"}`, w.Body.String())
	require.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/gated/investor", nil, token).Code)

	w = s.do(http.MethodPost, "/api/access/investor/requests", nil, token)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	admin := s.adminToken()
	w = s.do(http.MethodGet, "/api/admin/access-requests", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "investor")

	w = s.do(http.MethodGet, "/api/gated/investor", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "valid-investor-deck.pdf")
}

func TestAdminAccountLifecycle(t *testing.T) {
	s := newServer(t)
	admin := s.adminToken()

	w := s.do(http.MethodPost, "/api/admin/accounts", gin.H{"name": "Acme Bank", "industry": "banking"}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	account := decode[models.Account](t, w)

	w = s.do(http.MethodGet, "/api/admin/accounts?q=acme", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), account.ID)

	w = s.do(http.MethodPut, "/api/admin/accounts/"+account.ID+"/intake", gin.H{"data_classes": []string{"pii"}, "output_preference": "verdict_only"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, models.StringList{"pii"}, decode[models.Account](t, w).DataClasses)

	require.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/admin/accounts/missing", nil, admin).Code)

	w = s.do(http.MethodPost, "/api/admin/accounts/"+account.ID+"/deployments", gin.H{
		"name":                "KYC",
		"lenses":              gin.H{"identity": true, "liveness": true},
		"consensus_threshold": 3,
		"ttl_seconds":         60,
	}, admin)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/admin/accounts/"+account.ID+"/deployments", gin.H{
		"name":                "KYC",
		"lenses":              gin.H{"identity": true, "liveness": true},
		"consensus_threshold": 2,
		"ttl_seconds":         60,
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	deployment := decode[models.Deployment](t, w)

	w = s.do(http.MethodPost, "/api/admin/accounts/"+account.ID+"/demo-runs", gin.H{"deployment_id": deployment.ID, "input": "passport scan"}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	result := decode[models.DemoRunResult](t, w)
	require.Equal(t, models.VerdictOK, result.ProofRecord.Verdict)
	require.Equal(t, 1, result.Account.TotalRuns)

	w = s.do(http.MethodGet, "/api/admin/proof-records?verdict=OK", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[ProofRecordPage](t, w)
	require.Len(t, page.Edges, 1)
	require.Equal(t, "Acme Bank", page.Edges[0].Node.AccountName)
	require.Equal(t, "KYC", page.Edges[0].Node.DeploymentName)

	require.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/admin/proof-records?verdict=MAYBE", nil, admin).Code)

	w = s.do(http.MethodGet, "/api/admin/accounts/"+account.ID+"/proof-records", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[ProofRecordPage](t, w).Edges, 1)

	w = s.do(http.MethodPost, "/api/admin/accounts/"+account.ID+"/connectors", gin.H{
		"name":         "Core ledger",
		"kind":         "source_of_truth",
		"endpoint_url": "https://ledger.acme.test/health",
		"auth_type":    "api_key",
		"auth_ref":     "projects/acme/secrets/ledger",
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	connector := decode[models.Connector](t, w)

	w = s.do(http.MethodPost, "/api/admin/connectors/"+connector.ID+"/test", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, models.ConnectorStatusConnected, decode[models.Connector](t, w).Status)

	w = s.do(http.MethodGet, "/api/admin/overview", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	overview := decode[models.AdminOverview](t, w)
	require.EqualValues(t, 1, overview.Accounts)
	require.EqualValues(t, 1, overview.ProofRecords)

	w = s.do(http.MethodGet, "/api/admin/history?reference_type=account&reference_id="+account.ID, nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestProofRecordsOutliveDeployment(t *testing.T) {
	s := newServer(t)
	admin := s.adminToken()
	account, err := models.CreateAccount(s.ctx, &models.NewAccount{Name: "Acme Bank"})
	require.NoError(t, err)
	deployment, err := models.CreateDeployment(s.ctx, account.ID, &models.NewDeployment{
		Name:               "KYC",
		Lenses:             models.Lenses{Identity: true},
		ConsensusThreshold: 1,
		TTLSeconds:         60,
	})
	require.NoError(t, err)

	w := s.do(http.MethodPost, "/api/admin/accounts/"+account.ID+"/demo-runs", gin.H{"deployment_id": deployment.ID, "input": "passport scan"}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"flags":[]`)

	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/api/admin/deployments/"+deployment.ID, nil, admin).Code)

	w = s.do(http.MethodGet, "/api/admin/accounts/"+account.ID+"/proof-records", nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"deployment_name":""`)
	page := decode[ProofRecordPage](t, w)
	require.Len(t, page.Edges, 1)
	require.Equal(t, deployment.ID, page.Edges[0].Node.DeploymentId)
	require.Equal(t, "Acme Bank", page.Edges[0].Node.AccountName)
	require.Empty(t, page.Edges[0].Node.DeploymentName)
	require.NotNil(t, page.Edges[0].Node.Flags)
}

func TestStoreFailureIsServerError(t *testing.T) {
	s := newServer(t)
	admin := s.adminToken()
	account, err := models.CreateAccount(s.ctx, &models.NewAccount{Name: "Acme Bank"})
	require.NoError(t, err)

	err = config.GetDB().Callback().Create().Before("gorm:create").Register("test:fail_deployments", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == "account_deployments" {
			_ = tx.AddError(errors.New("disk full"))
		}
	})
	require.NoError(t, err)

	body := gin.H{"name": "KYC", "lenses": gin.H{"identity": true}, "consensus_threshold": 1, "ttl_seconds": 60}
	w := s.do(http.MethodPost, "/api/admin/accounts/"+account.ID+"/deployments", body, admin)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"error":"internal error"}`, w.Body.String())

	body["consensus_threshold"] = 5
	w = s.do(http.MethodPost, "/api/admin/accounts/"+account.ID+"/deployments", body, admin)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "consensus threshold")
}

func TestLoginDisabledProfile(t *testing.T) {
	s := newServer(t)
	profile, err := models.SignUp(s.ctx, &models.NewProfile{Email: "dana@acme.test", Password: "correct horse", FullName: "Dana Lee"})
	require.NoError(t, err)
	_, err = models.UpdateProfileAccessFlags(s.ctx, profile.ID, &models.UpdateProfileAccess{IsActive: utils.NewFalse()})
	require.NoError(t, err)

	w := s.do(http.MethodPost, "/api/auth/login", gin.H{"email": "dana@acme.test", "password": "correct horse"}, "")
	require.Equal(t, http.StatusForbidden, w.Code)
	require.JSONEq(t, `{"error":"profile is disabled"}`, w.Body.String())

	w = s.do(http.MethodPost, "/api/auth/login", gin.H{"email": "dana@acme.test", "password": "wrong password"}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"error":"invalid email or password"}`, w.Body.String())
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newServer(t)
	require.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/admin/accounts", nil, "").Code)

	_, err := models.SignUp(s.ctx, &models.NewProfile{Email: "dana@acme.test", Password: "correct horse", FullName: "Dana Lee"})
	require.NoError(t, err)
	token := s.login("dana@acme.test", "correct horse")
	require.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/admin/accounts", nil, token).Code)
}

func TestPortalIsScopedToAccount(t *testing.T) {
	s := newServer(t)

	var accounts []*models.Account
	for _, name := range []string{"Acme Bank", "Globex"} {
		account, err := models.CreateAccount(s.ctx, &models.NewAccount{Name: name})
		require.NoError(t, err)
		deployment, err := models.CreateDeployment(s.ctx, account.ID, &models.NewDeployment{
			Name:               name + " KYC",
			Lenses:             models.Lenses{Identity: true},
			ConsensusThreshold: 1,
			TTLSeconds:         60,
		})
		require.NoError(t, err)
		_, err = models.RecordDemoRun(s.ctx, account, deployment, models.DemoOutcome{Verdict: models.VerdictOK})
		require.NoError(t, err)
		accounts = append(accounts, account)
	}

	p, err := models.SignUp(s.ctx, &models.NewProfile{Email: "partner@acme.test", Password: "correct horse", FullName: "Pat Partner"})
	require.NoError(t, err)
	token := s.login("partner@acme.test", "correct horse")
	require.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/portal/account", nil, token).Code)

	_, err = models.UpdateProfileAccessFlags(s.ctx, p.ID, &models.UpdateProfileAccess{
		PartnerAccessApproved: utils.NewTrue(),
		PortalAccountId:       &accounts[0].ID,
	})
	require.NoError(t, err)

	w := s.do(http.MethodGet, "/api/portal/account", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, accounts[0].ID, decode[models.Account](t, w).ID)

	w = s.do(http.MethodGet, "/api/portal/proof-records?account_id="+accounts[1].ID, nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[ProofRecordPage](t, w)
	require.Len(t, page.Edges, 1)
	require.Equal(t, accounts[0].ID, page.Edges[0].Node.AccountId)
	require.Equal(t, "Acme Bank KYC", page.Edges[0].Node.DeploymentName)
}

func intakeBody() gin.H {
	return gin.H{
		"event_name":          "Summer Fest",
		"event_date":          "2026-07-04T18:00:00Z",
		"venue":               "Pier 70",
		"city":                "San Francisco",
		"expected_attendance": 5000,
		"contact_name":        "Sam Rivera",
		"contact_email":       "sam@example.com",
		"contact_phone":       "(650) 253-0000",
		"pass_types":          []gin.H{{"name": "GA", "price": "45", "quantity": 4000}},
		"promoter_split":      60,
		"venue_split":         30,
		"platform_split":      10,
		"payout_method":       "paypal",
		"paypal_email":        "payouts@example.com",
	}
}

func TestSubmitIntake(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/api/ghost-pass/intakes", intakeBody(), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[map[string]string](t, w)["id"]
	require.NotEmpty(t, id)

	body := intakeBody()
	body["contact_email"] = "nope"
	body["platform_split"] = 20
	w = s.do(http.MethodPost, "/api/ghost-pass/intakes", body, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	errs := decode[map[string]map[string]string](t, w)["errors"]
	require.Equal(t, "email", errs["contact_email"])
	require.Equal(t, "sum100", errs["splits"])

	admin := s.adminToken()
	w = s.do(http.MethodGet, "/api/admin/intakes/"+id, nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Summer Fest")
}

func TestPricingQuote(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/api/pricing/quote", gin.H{"input": gin.H{"users": 10, "queries_per_day": 10, "risk": "low"}}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var q struct {
		Tier         string `json:"tier"`
		TotalMonthly string `json:"total_monthly"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	require.Equal(t, "starter", q.Tier)
	require.Equal(t, "199", q.TotalMonthly)

	require.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/pricing/quote", "not an object", "").Code)
}

func TestPricingDocumentDownload(t *testing.T) {
	s := newServer(t)
	req := gin.H{
		"input":    gin.H{"users": 10, "queries_per_day": 10, "risk": "low"},
		"customer": gin.H{"name": "Dana Lee", "company": "Acme Bank"},
	}

	w := s.do(http.MethodPost, "/api/pricing/proposal", req, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, `attachment; filename="valid-proposal-starter.txt"`, w.Header().Get("Content-Disposition"))
	require.Contains(t, w.Body.String(), "Acme Bank")
	proposal := w.Body.String()

	link := w.Header().Get("X-Document-Url")
	require.True(t, strings.HasPrefix(link, "/api/documents/"), link)
	w = s.do(http.MethodGet, link, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, proposal, w.Body.String())

	w = s.do(http.MethodPost, "/api/pricing/quote.xlsx", req, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, contentTypeXLSX, w.Header().Get("Content-Type"))

	require.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/documents/garbage", nil, "").Code)

	s.h.Now = func() time.Time { return time.Now().Add(-time.Hour) }
	w = s.do(http.MethodPost, "/api/pricing/order-form", req, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, w.Header().Get("X-Document-Url"), nil, "").Code)
}

func TestPricingWithoutDocumentStore(t *testing.T) {
	s := newServer(t)
	s.h.Documents = nil

	w := s.do(http.MethodPost, "/api/pricing/order-form", gin.H{"input": gin.H{"users": 1, "queries_per_day": 1}}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Empty(t, w.Header().Get("X-Document-Url"))
	require.Contains(t, w.Body.String(), "Prospective customer")

	token, err := utils.DocumentLinkGenerate("pricing/x.txt", contentTypeText, time.Now())
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/documents/"+token, nil, "").Code)
}

func TestDocumentDownloadStaysUnderPricing(t *testing.T) {
	s := newServer(t)
	store := &memoryStore{}
	require.NoError(t, store.Put(s.ctx, "sponsors/contoso.png", []byte("logo"), "image/png"))
	s.h.Documents = store

	token, err := utils.DocumentLinkGenerate("sponsors/contoso.png", "image/png", time.Now())
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/documents/"+token, nil, "").Code)

	token, err = utils.DocumentLinkGenerate("pricing/../sponsors/contoso.png", "image/png", time.Now())
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/documents/"+token, nil, "").Code)
}

func TestListSponsors(t *testing.T) {
	s := newServer(t)
	_, err := models.UpsertSponsors(s.ctx, []models.NewSponsor{
		{Name: "Northwind", Tier: "gold", SortOrder: 2},
		{Name: "Contoso", Tier: "platinum", SortOrder: 1},
	})
	require.NoError(t, err)

	w := s.do(http.MethodGet, "/api/sponsors", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	sponsors := decode[[]models.Sponsor](t, w)
	require.Len(t, sponsors, 2)
	require.Equal(t, "Contoso", sponsors[0].Name)
}
