package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/validtech/valid_backend/config"
	"github.com/validtech/valid_backend/models"
	"github.com/validtech/valid_backend/testsupport"
	"github.com/validtech/valid_backend/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setup(t *testing.T) context.Context {
	t.Helper()
	testsupport.UseSQLite(t, models.AllModels()...)
	testsupport.UseMiniredis(t)
	return utils.SetIsAdminInContext(context.Background(), true)
}

func login(t *testing.T, ctx context.Context, email string) (*models.Profile, string) {
	t.Helper()
	p, err := models.SignUp(ctx, &models.NewProfile{Email: email, Password: "correct horse", FullName: "Dana Lee"})
	require.NoError(t, err)
	info, err := models.Login(ctx, email, "correct horse")
	require.NoError(t, err)
	return p, info.Token
}

func router() *gin.Engine {
	r := gin.New()
	r.Use(CorrelationMiddleware(), SessionMiddleware(), LoaderMiddleware())
	r.GET("/me", func(c *gin.Context) {
		p := CurrentProfile(c)
		if p == nil {
			c.JSON(http.StatusOK, gin.H{"anonymous": true})
			return
		}
		accountId, _ := utils.GetAccountIdFromContext(c.Request.Context())
		isAdmin, _ := utils.GetIsAdminFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"email": p.Email, "account_id": accountId, "is_admin": isAdmin})
	})
	r.GET("/session", RequireSession(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/investor", RequireAccess(models.AccessAreaInvestor), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func get(r http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionMiddleware(t *testing.T) {
	ctx := setup(t)
	_, token := login(t, ctx, "dana@acme.test")
	r := router()

	w := get(r, "/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"anonymous":true}`, w.Body.String())
	require.NotEmpty(t, w.Header().Get(CorrelationHeader))

	w = get(r, "/me", map[string]string{"token": token})
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"email":"dana@acme.test","account_id":"","is_admin":false}`, w.Body.String())

	w = get(r, "/me", map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, w.Code)

	w = get(r, "/me", map[string]string{"token": "stale-token"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionMiddlewareScopesPartner(t *testing.T) {
	ctx := setup(t)
	account, err := models.CreateAccount(ctx, &models.NewAccount{Name: "Acme"})
	require.NoError(t, err)
	p, token := login(t, ctx, "partner@acme.test")
	_, err = models.UpdateProfileAccessFlags(ctx, p.ID, &models.UpdateProfileAccess{
		PartnerAccessApproved: utils.NewTrue(),
		PortalAccountId:       &account.ID,
	})
	require.NoError(t, err)

	w := get(router(), "/me", map[string]string{"token": token})
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"email":"partner@acme.test","account_id":"`+account.ID+`","is_admin":false}`, w.Body.String())
}

func TestRequireGuards(t *testing.T) {
	ctx := setup(t)
	p, token := login(t, ctx, "dana@acme.test")
	r := router()
	auth := map[string]string{"token": token}

	require.Equal(t, http.StatusUnauthorized, get(r, "/session", nil).Code)
	require.Equal(t, http.StatusNoContent, get(r, "/session", auth).Code)

	require.Equal(t, http.StatusUnauthorized, get(r, "/admin", nil).Code)
	require.Equal(t, http.StatusForbidden, get(r, "/admin", auth).Code)

	require.Equal(t, http.StatusUnauthorized, get(r, "/investor", nil).Code)
	w := get(r, "/investor", auth)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "approval_required")

	_, err := models.UpdateProfileAccessFlags(ctx, p.ID, &models.UpdateProfileAccess{InvestorAccessApproved: utils.NewTrue()})
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, get(r, "/investor", auth).Code)

	admin, err := models.CreateAdministrator(ctx, "ops@valid.test", "super secret", "Ops")
	require.NoError(t, err)
	info, err := models.Login(ctx, admin.Email, "super secret")
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, get(r, "/admin", map[string]string{"token": info.Token}).Code)
	require.Equal(t, http.StatusNoContent, get(r, "/investor", map[string]string{"token": info.Token}).Code)
}

func TestLoadersBatchLookups(t *testing.T) {
	ctx := setup(t)
	a, err := models.CreateAccount(ctx, &models.NewAccount{Name: "Acme"})
	require.NoError(t, err)
	b, err := models.CreateAccount(ctx, &models.NewAccount{Name: "Globex"})
	require.NoError(t, err)

	ctx = WithLoaders(ctx, NewLoaders(config.GetDB()))
	accounts, errs := GetAccounts(ctx, []string{b.ID, "missing", a.ID})
	for _, e := range errs {
		require.NoError(t, e)
	}
	require.Len(t, accounts, 3)
	require.Equal(t, "Globex", accounts[0].Name)
	require.Nil(t, accounts[1])
	require.Equal(t, "Acme", accounts[2].Name)

	deployments, errs := GetDeployments(ctx, []string{"missing"})
	require.Empty(t, errs)
	require.Equal(t, []*models.Deployment{nil}, deployments)
}

func TestRateLimiter(t *testing.T) {
	mr := testsupport.UseMiniredis(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	r := gin.New()
	r.Use(NewRateLimiter(client, 2, time.Minute).RateLimitMiddleware)
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	require.Equal(t, http.StatusNoContent, get(r, "/", nil).Code)
	require.Equal(t, http.StatusNoContent, get(r, "/", nil).Code)
	require.Equal(t, http.StatusTooManyRequests, get(r, "/", nil).Code)

	mr.FastForward(2 * time.Minute)
	require.Equal(t, http.StatusNoContent, get(r, "/", nil).Code)
}
