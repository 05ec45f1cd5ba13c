package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appallocation "github.com/coopay/backend/internal/application/allocation"
	appsettlement "github.com/coopay/backend/internal/application/settlement"
	"github.com/coopay/backend/internal/domain/allocation"
	"github.com/coopay/backend/internal/domain/fee"
	"github.com/coopay/backend/internal/domain/identity"
	"github.com/coopay/backend/internal/domain/settlement"
	"github.com/coopay/backend/internal/infrastructure/notification"
	"github.com/coopay/backend/internal/infrastructure/payment"
	"github.com/coopay/backend/internal/interfaces/http/handler"
	"github.com/coopay/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup_NestedGroups(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	var order []string
	tag := func(name string) gin.HandlerFunc {
		return func(c *gin.Context) {
			order = append(order, name)
			c.Next()
		}
	}
	r.Use(tag("api"))

	group := NewDomainGroup("test", "/test").Use(tag("group"))
	group.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	sub := group.Group("inner", "/inner").Use(tag("inner"))
	sub.PUT("/item", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.Register(group)
	r.Setup()

	assert.Equal(t, "test", group.Name())
	assert.Equal(t, "/test", group.Prefix())

	w := do(engine, http.MethodGet, "/api/v1/test/ping", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, []string{"api", "group"}, order)

	order = nil
	w = do(engine, http.MethodPut, "/api/v1/test/inner/item", "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"api", "group", "inner"}, order)
}

type fakeCore struct {
	cfg allocation.Config
}

func (f *fakeCore) Settle(_ context.Context, ref string) (*appsettlement.Result, error) {
	return &appsettlement.Result{Reference: ref, Status: settlement.IntentStatusCompleted}, nil
}

func (f *fakeCore) Reconcile(_ context.Context, ref string) (*appsettlement.Result, error) {
	return &appsettlement.Result{Reference: ref, Status: settlement.IntentStatusCompleted}, nil
}

func (f *fakeCore) Status(_ context.Context, ref string) (*appsettlement.Result, error) {
	return &appsettlement.Result{Reference: ref, Status: settlement.IntentStatusPending}, nil
}

func (f *fakeCore) Quote(amount decimal.Decimal) (fee.Calculation, error) {
	return fee.Compute(amount)
}

func (f *fakeCore) InitializeCooperativeRegistration(context.Context, appsettlement.CooperativeRegistration) (*appsettlement.Checkout, error) {
	return nil, errors.New("not used")
}

func (f *fakeCore) InitializeMemberRegistration(context.Context, appsettlement.MemberRegistration) (*appsettlement.Checkout, error) {
	return nil, errors.New("not used")
}

func (f *fakeCore) InitializeContribution(context.Context, appsettlement.ContributionRequest) (*appsettlement.Checkout, error) {
	return &appsettlement.Checkout{Reference: "CTB-1", AuthorizationURL: "https://checkout.paystack.com/x"}, nil
}

func (f *fakeCore) Current(context.Context) (allocation.Config, error) {
	return f.cfg, nil
}

func (f *fakeCore) Update(_ context.Context, shares allocation.Shares, by string) (allocation.Config, error) {
	next := f.cfg
	next.Version++
	next.Shares = shares
	next.UpdatedBy = by
	return next, nil
}

func (f *fakeCore) History(context.Context, int) ([]allocation.Config, error) {
	return []allocation.Config{f.cfg}, nil
}

func (f *fakeCore) Report(context.Context, appallocation.ReportQuery) (*appallocation.Report, error) {
	return &appallocation.Report{}, nil
}

func (f *fakeCore) ListByReference(context.Context, string) ([]notification.LogEntry, error) {
	return nil, nil
}

type tokenTable map[string]*identity.Principal

func (t tokenTable) Authenticate(token string) (*identity.Principal, error) {
	if p, ok := t[token]; ok {
		return p, nil
	}
	return nil, errors.New("unknown token")
}

type rejectingParser struct{}

func (rejectingParser) SignatureHeader() string { return "X-Paystack-Signature" }

func (rejectingParser) ParseWebhook([]byte, string) (*payment.WebhookEvent, error) {
	return nil, payment.ErrInvalidSignature
}

type noHub struct{}

func (noHub) Serve(http.ResponseWriter, *http.Request, identity.Principal) error {
	return errors.New("no upgrade in tests")
}

func newTestEngine(t *testing.T, limiter *middleware.RateLimiter) *gin.Engine {
	t.Helper()
	core := &fakeCore{cfg: allocation.Config{
		Version: 1,
		Shares: allocation.Shares{
			ApexFunds:               decimal.NewFromInt(40),
			PlatformFunds:           decimal.NewFromInt(20),
			CooperativeShare:        decimal.NewFromInt(20),
			LeaderShare:             decimal.NewFromInt(15),
			ParentOrganizationShare: decimal.NewFromInt(5),
		},
		CreatedAt: time.Now(),
	}}

	engine, err := NewEngine(EngineConfig{CORS: middleware.DefaultCORSConfig(), MaxBodySize: 1 << 20})
	require.NoError(t, err)

	Register(engine, Handlers{
		Payment:   handler.NewPaymentHandler(core, core, handler.RedirectURLs{Success: "https://app/ok", Failure: "https://app/fail", Pending: "https://app/wait"}),
		Webhook:   handler.NewWebhookHandler(rejectingParser{}, core),
		Admin:     handler.NewAdminHandler(core, core, core),
		Dashboard: handler.NewDashboardHandler(noHub{}),
		Health:    handler.NewHealthHandler("test", nil),
	}, Security{
		Authenticator: tokenTable{
			"super":  {AccountID: uuid.New(), Role: identity.RoleSuperAdmin},
			"apex":   {AccountID: uuid.New(), Role: identity.RoleApex},
			"member": {AccountID: uuid.New(), Role: identity.RoleMember},
		},
		InitLimiter: limiter,
	})
	return engine
}

func do(engine http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRegister_Routes(t *testing.T) {
	engine := newTestEngine(t, nil)

	registered := make(map[string]bool)
	for _, route := range engine.Routes() {
		registered[route.Method+" "+route.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"GET /api/v1/payments/fees/quote",
		"GET /api/v1/payments/callback",
		"POST /api/v1/payments/webhook/paystack",
		"POST /api/v1/payments/:reference/verify",
		"GET /api/v1/payments/:reference",
		"POST /api/v1/payments/cooperatives",
		"POST /api/v1/payments/members",
		"POST /api/v1/payments/contributions",
		"GET /api/v1/admin/allocation-config",
		"PUT /api/v1/admin/allocation-config",
		"GET /api/v1/admin/allocation-config/history",
		"GET /api/v1/admin/allocation-report",
		"POST /api/v1/admin/settlements/:reference/reconcile",
		"GET /api/v1/admin/settlements/:reference/notifications",
		"GET /api/v1/ws/dashboard",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

func TestRegister_PublicPaymentRoutes(t *testing.T) {
	engine := newTestEngine(t, nil)

	w := do(engine, http.MethodGet, "/api/v1/payments/fees/quote?amount=1000", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = do(engine, http.MethodGet, "/api/v1/payments/CTB-1", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "PENDING")

	w = do(engine, http.MethodPost, "/api/v1/payments/webhook/paystack", "", `{"event":"charge.success"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(engine, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegister_AdminAuthorization(t *testing.T) {
	engine := newTestEngine(t, nil)
	shares := `{"apex_funds":"40","platform_funds":"20","cooperative_share":"20","leader_share":"15","parent_organization_share":"5"}`

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       string
		wantStatus int
	}{
		{name: "no token", method: http.MethodGet, path: "/api/v1/admin/allocation-config", wantStatus: http.StatusUnauthorized},
		{name: "bad token", method: http.MethodGet, path: "/api/v1/admin/allocation-config", token: "forged", wantStatus: http.StatusUnauthorized},
		{name: "member cannot read", method: http.MethodGet, path: "/api/v1/admin/allocation-config", token: "member", wantStatus: http.StatusForbidden},
		{name: "apex reads", method: http.MethodGet, path: "/api/v1/admin/allocation-config", token: "apex", wantStatus: http.StatusOK},
		{name: "apex cannot update", method: http.MethodPut, path: "/api/v1/admin/allocation-config", token: "apex", body: shares, wantStatus: http.StatusForbidden},
		{name: "super admin updates", method: http.MethodPut, path: "/api/v1/admin/allocation-config", token: "super", body: shares, wantStatus: http.StatusOK},
		{name: "apex cannot reconcile", method: http.MethodPost, path: "/api/v1/admin/settlements/CTB-1/reconcile", token: "apex", wantStatus: http.StatusForbidden},
		{name: "super admin reconciles", method: http.MethodPost, path: "/api/v1/admin/settlements/CTB-1/reconcile", token: "super", wantStatus: http.StatusOK},
		{name: "apex reads notifications", method: http.MethodGet, path: "/api/v1/admin/settlements/CTB-1/notifications", token: "apex", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(engine, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestRegister_DashboardAcceptsQueryToken(t *testing.T) {
	engine := newTestEngine(t, nil)

	w := do(engine, http.MethodGet, "/api/v1/ws/dashboard", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// authenticated, so the request reaches the hub
	w = do(engine, http.MethodGet, "/api/v1/ws/dashboard?access_token=apex", "", "")
	assert.NotEqual(t, http.StatusUnauthorized, w.Code)
}

func TestRegister_CheckoutRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, time.Minute)
	defer limiter.Close()
	engine := newTestEngine(t, limiter)

	body := `{"member_id":"` + uuid.NewString() + `","amount":"5000"}`
	first := do(engine, http.MethodPost, "/api/v1/payments/contributions", "", body)
	require.NotEqual(t, http.StatusTooManyRequests, first.Code)

	second := do(engine, http.MethodPost, "/api/v1/payments/contributions", "", body)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// quotes are not throttled
	w := do(engine, http.MethodGet, "/api/v1/payments/fees/quote?amount=1000", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
