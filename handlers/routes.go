package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/validtech/valid_backend/middlewares"
	"github.com/validtech/valid_backend/models"
	"github.com/validtech/valid_backend/pricing"
	"github.com/validtech/valid_backend/scoring"
)

// Handlers carries the pluggable collaborators of the REST surface.
type Handlers struct {
	Scorer    scoring.Scorer
	Tester    scoring.Tester
	Documents DocumentStore
	Catalog   *pricing.Catalog
	Now       func() time.Time
}

func New() *Handlers {
	return &Handlers{
		Scorer:    scoring.NewRandomScorer(),
		Tester:    scoring.NewTester(),
		Documents: NewDocumentStore(),
		Catalog:   pricing.DefaultCatalog(),
		Now:       time.Now,
	}
}

func (h *Handlers) now() time.Time {
	if h.Now == nil {
		return time.Now().UTC()
	}
	return h.Now().UTC()
}

// Register mounts every route under /api. Session resolution and loaders are
// expected to run before these handlers.
func (h *Handlers) Register(r gin.IRouter) {
	if h.Catalog == nil {
		h.Catalog = pricing.DefaultCatalog()
	}
	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/signup", signUpHandler())
	auth.POST("/login", loginHandler())
	auth.POST("/logout", middlewares.RequireSession(), logoutHandler())
	auth.GET("/me", middlewares.RequireSession(), meHandler())

	api.GET("/access/:area", accessCheckHandler())
	api.POST("/access/:area/requests", middlewares.RequireSession(), requestAccessHandler())
	api.GET("/gated/investor", middlewares.RequireAccess(models.AccessAreaInvestor), gatedContentHandler(models.AccessAreaInvestor))
	api.GET("/gated/partner", middlewares.RequireAccess(models.AccessAreaPartner), gatedContentHandler(models.AccessAreaPartner))

	pricingGroup := api.Group("/pricing")
	pricingGroup.POST("/quote", h.quoteHandler())
	pricingGroup.POST("/proposal", h.documentHandler("proposal", "txt", contentTypeText, pricing.RenderProposal))
	pricingGroup.POST("/order-form", h.documentHandler("order-form", "txt", contentTypeText, pricing.RenderOrderForm))
	pricingGroup.POST("/quote.xlsx", h.documentHandler("quote", "xlsx", contentTypeXLSX, pricing.ExportQuoteXLSX))
	api.GET("/documents/:token", h.documentDownloadHandler())

	api.POST("/ghost-pass/intakes", submitIntakeHandler())
	api.GET("/sponsors", listSponsorsHandler())

	portal := api.Group("/portal", middlewares.RequireAccess(models.AccessAreaPartner))
	portal.GET("/account", portalAccountHandler())
	portal.GET("/proof-records", portalProofRecordsHandler())

	admin := api.Group("/admin", middlewares.RequireAdmin())
	admin.GET("/overview", overviewHandler())

	admin.GET("/accounts", listAccountsHandler())
	admin.POST("/accounts", createAccountHandler())
	admin.GET("/accounts/:id", getAccountHandler())
	admin.PUT("/accounts/:id", updateAccountOverviewHandler())
	admin.PUT("/accounts/:id/intake", updateAccountIntakeHandler())

	admin.GET("/accounts/:id/deployments", listDeploymentsHandler())
	admin.POST("/accounts/:id/deployments", createDeploymentHandler())
	admin.DELETE("/deployments/:id", deleteDeploymentHandler())

	admin.GET("/accounts/:id/connectors", listConnectorsHandler())
	admin.POST("/accounts/:id/connectors", createConnectorHandler())
	admin.DELETE("/connectors/:id", deleteConnectorHandler())
	admin.POST("/connectors/:id/test", h.testConnectorHandler())

	admin.GET("/proof-records", listProofRecordsHandler())
	admin.GET("/accounts/:id/proof-records", listAccountProofRecordsHandler())
	admin.POST("/accounts/:id/demo-runs", h.demoRunHandler())

	admin.GET("/profiles", listProfilesHandler())
	admin.PUT("/profiles/:id/access", updateProfileAccessHandler())
	admin.GET("/access-requests", listAccessRequestsHandler())
	admin.GET("/history", listHistoryHandler())

	admin.GET("/intakes", listIntakesHandler())
	admin.GET("/intakes/:id", getIntakeHandler())

	admin.GET("/notifications", notificationStatusHandler())
	admin.POST("/notifications/requeue", requeueNotificationsHandler())
}
