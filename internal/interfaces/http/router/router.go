// Package router assembles the gin engine: the global middleware chain and
// the versioned route groups of the payment API.
package router

import (
	"net/http"

	"github.com/coopay/backend/internal/domain/identity"
	"github.com/coopay/backend/internal/infrastructure/logger"
	"github.com/coopay/backend/internal/interfaces/http/handler"
	"github.com/coopay/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Use adds middleware to the versioned API group
func (r *Router) Use(mw ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, mw...)
	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	if len(r.middleware) > 0 {
		api.Use(r.middleware...)
	}
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// DomainGroup is a prefix with its own middleware, routes and subgroups
type DomainGroup struct {
	name       string
	prefix     string
	middleware []gin.HandlerFunc
	routes     []routeDefinition
	subgroups  []*DomainGroup
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a new domain-specific route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

// Handle registers a route for any method
func (dg *DomainGroup) Handle(method, path string, handlers ...gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: method, path: path, handlers: handlers})
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodGet, path, handlers...)
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodPost, path, handlers...)
}

// PUT registers a PUT route
func (dg *DomainGroup) PUT(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodPut, path, handlers...)
}

// Group creates a sub-group within this domain
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	subgroup := NewDomainGroup(name, prefix)
	dg.subgroups = append(dg.subgroups, subgroup)
	return subgroup
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}
	for _, route := range dg.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}
	for _, subgroup := range dg.subgroups {
		subgroup.RegisterRoutes(group)
	}
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Prefix returns the group prefix
func (dg *DomainGroup) Prefix() string {
	return dg.prefix
}

// EngineConfig configures the global middleware chain
type EngineConfig struct {
	Logger         *zap.Logger
	CORS           middleware.CORSConfig
	MaxBodySize    int64
	TrustedProxies []string
	ServiceName    string
	Tracing        bool
	Profiling      bool
	// Meter records HTTP metrics; nil disables them
	Meter metric.Meter
}

// NewEngine creates a gin engine with the global middleware chain in order:
// request id, recovery, access log, security headers, CORS, body limit,
// tracing, metrics, profiling labels.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(cfg.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	metrics, err := middleware.HTTPMetrics(cfg.Meter)
	if err != nil {
		return nil, err
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS(cfg.CORS))
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	engine.Use(middleware.Tracing(cfg.ServiceName, cfg.Tracing))
	engine.Use(middleware.SpanAttributes())
	engine.Use(metrics)
	engine.Use(middleware.Profiling(cfg.Profiling))

	return engine, nil
}

// Handlers groups the HTTP handlers the API exposes
type Handlers struct {
	Payment   *handler.PaymentHandler
	Webhook   *handler.WebhookHandler
	Admin     *handler.AdminHandler
	Dashboard *handler.DashboardHandler
	Health    *handler.HealthHandler
}

// Security holds the inputs of the authentication and throttling middleware
type Security struct {
	Authenticator middleware.Authenticator
	// InitLimiter throttles checkout initialization per client IP; nil disables it
	InitLimiter *middleware.RateLimiter
	Logger      *zap.Logger
}

// adminReaders may read configuration, reports and notification logs
var adminReaders = []identity.Role{identity.RoleSuperAdmin, identity.RoleApex}

// Register mounts the health endpoint and the /api/v1 route groups
func Register(engine *gin.Engine, h Handlers, sec Security) {
	if h.Health != nil {
		engine.GET("/health", h.Health.Health)
	}

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Register(PaymentRoutes(h.Payment, h.Webhook, sec.InitLimiter))
	r.Register(AdminRoutes(h.Admin, sec))
	r.Register(DashboardRoutes(h.Dashboard, sec))
	r.Setup()
}

// PaymentRoutes are public: checkout initialization, the fee quote, the
// gateway redirect and webhook, and polling
func PaymentRoutes(p *handler.PaymentHandler, w *handler.WebhookHandler, limiter *middleware.RateLimiter) *DomainGroup {
	payments := NewDomainGroup("payments", "/payments")
	payments.GET("/fees/quote", p.QuoteFee)
	payments.GET("/callback", p.Callback)
	payments.POST("/webhook/paystack", w.HandlePaystack)
	payments.POST("/:reference/verify", p.Verify)
	payments.GET("/:reference", p.GetStatus)

	checkout := payments.Group("checkout", "")
	if limiter != nil {
		checkout.Use(middleware.RateLimit(limiter))
	}
	checkout.POST("/cooperatives", p.InitializeCooperativeRegistration)
	checkout.POST("/members", p.InitializeMemberRegistration)
	checkout.POST("/contributions", p.InitializeContribution)
	return payments
}

// AdminRoutes require a bearer token; writes are reserved to SUPER_ADMIN
func AdminRoutes(a *handler.AdminHandler, sec Security) *DomainGroup {
	admin := NewDomainGroup("admin", "/admin").Use(middleware.JWTAuth(middleware.JWTConfig{
		Authenticator: sec.Authenticator,
		Logger:        sec.Logger,
	}))

	readers := middleware.RequireRole(adminReaders...)
	superAdmin := middleware.RequireRole(identity.RoleSuperAdmin)

	admin.GET("/allocation-config", readers, a.GetAllocationConfig)
	admin.PUT("/allocation-config", superAdmin, a.UpdateAllocationConfig)
	admin.GET("/allocation-config/history", readers, a.AllocationHistory)
	admin.GET("/allocation-report", readers, a.AllocationReport)
	admin.POST("/settlements/:reference/reconcile", superAdmin, a.Reconcile)
	admin.GET("/settlements/:reference/notifications", readers, a.ListNotifications)
	return admin
}

// DashboardRoutes serve the refresh websocket. Browsers cannot set headers
// on a websocket handshake, so the token may come from the query string.
func DashboardRoutes(d *handler.DashboardHandler, sec Security) *DomainGroup {
	ws := NewDomainGroup("dashboard", "/ws").Use(middleware.JWTAuth(middleware.JWTConfig{
		Authenticator:   sec.Authenticator,
		AllowQueryToken: true,
		Logger:          sec.Logger,
	}))
	ws.GET("/dashboard", d.Connect)
	return ws
}
