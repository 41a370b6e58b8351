// Package httpserver exposes the store's REST surface: account and token
// endpoints under /users, the catalog under /products, and carts, checkout,
// sales, and invoices under /sales. Handlers stay thin; ownership rules and
// business errors live in the domain services.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lggm33/DUAD/internal/addresses"
	"github.com/lggm33/DUAD/internal/auth"
	"github.com/lggm33/DUAD/internal/carts"
	"github.com/lggm33/DUAD/internal/checkout"
	"github.com/lggm33/DUAD/internal/config"
	"github.com/lggm33/DUAD/internal/idempotency"
	"github.com/lggm33/DUAD/internal/invoices"
	"github.com/lggm33/DUAD/internal/logger"
	"github.com/lggm33/DUAD/internal/metrics"
	"github.com/lggm33/DUAD/internal/money"
	"github.com/lggm33/DUAD/internal/products"
	"github.com/lggm33/DUAD/internal/ratelimit"
	"github.com/lggm33/DUAD/internal/sales"
	"github.com/lggm33/DUAD/internal/token"
	"github.com/lggm33/DUAD/internal/users"
	"github.com/lggm33/DUAD/internal/versioning"
)

var (
	serverStartTime = time.Now()
)

// UserService is the slice of the user service the handlers consume.
type UserService interface {
	Register(ctx context.Context, req users.RegisterRequest, adminCaller bool) (users.User, error)
	Login(ctx context.Context, email, password string) (token.Pair, users.User, error)
	Refresh(ctx context.Context, principal auth.Principal) (string, error)
	RevokeToken(ctx context.Context, principal auth.Principal, typ token.Type) error
	GetByID(ctx context.Context, id int64) (users.User, error)
	Update(ctx context.Context, id int64, req users.UpdateRequest) (users.User, error)
	Delete(ctx context.Context, id int64) (users.User, error)
	MakeAdmin(ctx context.Context, id int64) (users.User, error)
}

// AddressService manages a user's delivery addresses. Ownership is enforced
// by the service itself from the caller's principal.
type AddressService interface {
	List(ctx context.Context, p auth.Principal, userID int64) ([]addresses.Address, error)
	Create(ctx context.Context, p auth.Principal, userID int64, req addresses.CreateRequest) (addresses.Address, error)
	Update(ctx context.Context, p auth.Principal, userID, addressID int64, req addresses.UpdateRequest) ([]addresses.Address, error)
	Delete(ctx context.Context, p auth.Principal, userID, addressID int64) (addresses.Address, error)
}

// ProductService serves the catalog.
type ProductService interface {
	List(ctx context.Context) ([]products.Product, error)
	GetByID(ctx context.Context, id int64) (products.Product, error)
	Create(ctx context.Context, req products.CreateRequest) (products.Product, error)
	Update(ctx context.Context, id int64, req products.UpdateRequest) (products.Product, error)
	Delete(ctx context.Context, id int64) (products.Product, error)
}

// CartService manages the caller's shopping cart. It doubles as the
// auth.CartResolver used by the cart ownership middleware.
type CartService interface {
	GetOrCreateActive(ctx context.Context, userID int64) (carts.Cart, error)
	GetByID(ctx context.Context, cartID, requesterID int64) (carts.Cart, error)
	ListForUser(ctx context.Context, userID int64, status carts.Status) ([]carts.Summary, error)
	AddProduct(ctx context.Context, userID int64, req carts.AddProductRequest) (carts.Line, error)
	UpdateQuantity(ctx context.Context, userID, productID int64, req carts.UpdateQuantityRequest) (*carts.Line, error)
	RemoveProduct(ctx context.Context, userID, productID int64) error
	Clear(ctx context.Context, userID int64) error
	ComputeTotal(ctx context.Context, userID int64) (carts.TotalReport, error)
	TransitionStatus(ctx context.Context, cartID int64, status carts.Status, requesterID int64) (carts.Cart, error)
	ValidateForCheckout(ctx context.Context, cartID int64) (carts.ValidationReport, error)
	CartOwner(ctx context.Context, cartID int64) (int64, error)
}

// CheckoutService converts a cart into a sale.
type CheckoutService interface {
	Checkout(ctx context.Context, userID int64, req checkout.Request) (checkout.Result, error)
}

// SaleService serves purchase history and the admin sales report. A zero
// requesterID skips ownership checks and is reserved for admin routes.
type SaleService interface {
	GetByID(ctx context.Context, saleID, requesterID int64) (sales.Sale, error)
	ListForUser(ctx context.Context, userID int64, from, to time.Time) ([]sales.Sale, error)
	UserSummary(ctx context.Context, userID int64) (sales.Summary, error)
	Detail(ctx context.Context, saleID, requesterID int64) (sales.Detail, error)
	UpdateTotal(ctx context.Context, saleID int64, req sales.UpdateRequest) (sales.Sale, error)
	AdminList(ctx context.Context, f sales.Filter, includeAnalytics bool) (sales.AdminListing, error)
}

// InvoiceService manages invoices. As with sales, requesterID zero means the
// caller is an admin and ownership is not checked.
type InvoiceService interface {
	Create(ctx context.Context, requesterID int64, req invoices.CreateRequest) (invoices.Invoice, error)
	GetByID(ctx context.Context, invoiceID, requesterID int64) (invoices.Invoice, error)
	Detailed(ctx context.Context, invoiceID, requesterID int64) (invoices.Detailed, error)
	ListForUser(ctx context.Context, userID int64, from, to time.Time) ([]invoices.Invoice, error)
	ListForSale(ctx context.Context, saleID, requesterID int64) ([]invoices.Invoice, error)
	UserSummary(ctx context.Context, userID int64) (invoices.UserSummary, error)
	Update(ctx context.Context, invoiceID, requesterID int64, req invoices.UpdateRequest) (invoices.Invoice, error)
	Delete(ctx context.Context, invoiceID, requesterID int64) (invoices.Invoice, error)
	Search(ctx context.Context, minTotal, maxTotal *money.Amount) ([]invoices.Invoice, error)
	Summary(ctx context.Context, invoiceID, requesterID int64) (invoices.Summary, error)
	AdminList(ctx context.Context, f invoices.Filter, includeAnalytics bool) (invoices.AdminListing, error)
}

// Services bundles the domain services the router exposes.
type Services struct {
	Users     UserService
	Addresses AddressService
	Products  ProductService
	Carts     CartService
	Checkout  CheckoutService
	Sales     SaleService
	Invoices  InvoiceService
}

// HealthProbes are the dependency pings run by the health endpoint. A nil
// probe is skipped. The database probe is the only one that degrades the
// reported status; cache reads fall back to the database when Redis is down.
type HealthProbes struct {
	Database func(ctx context.Context) error
	Cache    func(ctx context.Context) error
}

// Server wires handlers, middleware, and dependencies.
type Server struct {
	handlers
	router     chi.Router
	httpServer *http.Server
}

type handlers struct {
	cfg       *config.Config
	users     UserService
	addresses AddressService
	products  ProductService
	carts     CartService
	checkout  CheckoutService
	sales     SaleService
	invoices  InvoiceService
	probes    HealthProbes
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// New builds the HTTP server with configured router.
func New(cfg *config.Config, svcs Services, authn *auth.Authenticator, idempotencyStore idempotency.Store, metricsCollector *metrics.Metrics, probes HealthProbes, appLogger zerolog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		handlers: handlers{
			cfg:       cfg,
			users:     svcs.Users,
			addresses: svcs.Addresses,
			products:  svcs.Products,
			carts:     svcs.Carts,
			checkout:  svcs.Checkout,
			sales:     svcs.Sales,
			invoices:  svcs.Invoices,
			probes:    probes,
			metrics:   metricsCollector,
			logger:    appLogger,
		},
		router: router,
		httpServer: &http.Server{
			Addr:         cfg.Server.Address,
			ReadTimeout:  cfg.Server.ReadTimeout.Duration,
			WriteTimeout: cfg.Server.WriteTimeout.Duration,
			IdleTimeout:  cfg.Server.IdleTimeout.Duration,
			Handler:      router,
		},
	}

	ConfigureRouter(router, cfg, svcs, authn, idempotencyStore, metricsCollector, probes, appLogger)

	return s
}

// ConfigureRouter attaches the commerce routes to an existing router.
func ConfigureRouter(router chi.Router, cfg *config.Config, svcs Services, authn *auth.Authenticator, idempotencyStore idempotency.Store, metricsCollector *metrics.Metrics, probes HealthProbes, appLogger zerolog.Logger) {
	if router == nil {
		return
	}

	handler := handlers{
		cfg:       cfg,
		users:     svcs.Users,
		addresses: svcs.Addresses,
		products:  svcs.Products,
		carts:     svcs.Carts,
		checkout:  svcs.Checkout,
		sales:     svcs.Sales,
		invoices:  svcs.Invoices,
		probes:    probes,
		metrics:   metricsCollector,
		logger:    appLogger,
	}

	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		router.Use(cors.New(cors.Options{
			AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			ExposedHeaders:   []string{"Location", "X-API-Version"},
			AllowCredentials: false,
			MaxAge:           300,
		}).Handler)
	}

	// Security headers middleware (applied first for all responses)
	router.Use(securityHeadersMiddleware)

	// Structured logging middleware (BEFORE RequestID for context propagation)
	router.Use(logger.Middleware(appLogger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	// API version negotiation (resolves the version from Accept/X-API-Version)
	router.Use(versioning.Negotiation)

	// Unauthenticated rate limit tiers. The per-user tier needs a principal
	// in the context, so it is installed per group after the authenticator.
	rateLimitCfg := ratelimit.FromConfig(cfg.RateLimit, metricsCollector)
	router.Use(ratelimit.GlobalLimiter(rateLimitCfg))
	router.Use(ratelimit.IPLimiter(rateLimitCfg))

	userLimiter := ratelimit.UserLimiter(rateLimitCfg)

	// NOTE: Timeout middleware is applied selectively per route group below
	// to avoid imposing the checkout timeout on lightweight endpoints.

	// Apply route prefix if configured
	prefix := cfg.Server.RoutePrefix

	// Lightweight endpoints with 5s timeout (health checks, metrics)
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Second))
		r.Get(prefix+"/health", handler.health)
		// Prometheus metrics endpoint, protected by an optional bearer token
		r.With(metricsAuth(cfg.Server.MetricsToken)).Handle(prefix+"/metrics", promhttp.Handler())
	})

	// Credential endpoints with a tighter per-IP limit against brute force
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))
		r.Use(ratelimit.LoginLimiter(rateLimitCfg))
		r.With(authn.Optional).Post(prefix+"/users/register", handler.register)
		r.Post(prefix+"/users/login", handler.login)
	})

	// Refresh-token endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))
		r.Use(authn.RequireRefresh)
		r.Use(userLimiter)
		r.Post(prefix+"/users/refresh", handler.refresh)
		r.Post(prefix+"/users/logout", handler.logout)
	})

	// Standard API endpoints with 15s timeout
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))
		r.Use(authn.RequireAccess)
		r.Use(userLimiter)

		r.Post(prefix+"/users/logout-access", handler.logoutAccess)
		r.With(auth.RequireAdmin).Get(prefix+"/users/{user_id}", handler.getUser)
		r.With(auth.RequireOwnerOrAdmin("user_id")).Put(prefix+"/users/{user_id}", handler.updateUser)
		r.With(auth.RequireOwnerOrAdmin("user_id")).Delete(prefix+"/users/{user_id}", handler.deleteUser)
		r.With(auth.RequireAdmin).Post(prefix+"/users/{user_id}/make-admin", handler.makeAdmin)

		// Delivery addresses: the service authorizes against the principal,
		// so no ownership middleware here.
		r.Get(prefix+"/users/{user_id}/delivery-addresses", handler.listAddresses)
		r.Post(prefix+"/users/{user_id}/delivery-addresses", handler.createAddress)
		r.Put(prefix+"/users/{user_id}/delivery-addresses/{address_id}", handler.updateAddress)
		r.Delete(prefix+"/users/{user_id}/delivery-addresses/{address_id}", handler.deleteAddress)

		r.Get(prefix+"/products", handler.listProducts)
		r.Get(prefix+"/products/{product_id}", handler.getProduct)
		r.With(auth.RequireAdmin).Post(prefix+"/products", handler.createProduct)
		r.With(auth.RequireAdmin).Put(prefix+"/products/{product_id}", handler.updateProduct)
		r.With(auth.RequireAdmin).Delete(prefix+"/products/{product_id}", handler.deleteProduct)

		// Cart, purchase history, and invoice routes are customer-only.
		// Static segments (validate, total, add, ...) must not be swallowed
		// by the {cart_id} pattern; chi matches them first.
		r.Group(func(cr chi.Router) {
			cr.Use(auth.RequireCustomer)

			cr.Get(prefix+"/sales/cart", handler.getActiveCart)
			cr.Get(prefix+"/sales/cart/validate", handler.validateCart)
			cr.Get(prefix+"/sales/cart/total", handler.cartTotal)
			cr.Post(prefix+"/sales/cart/add", handler.addToCart)
			cr.Delete(prefix+"/sales/cart/clear", handler.clearCart)
			cr.Put(prefix+"/sales/cart/product/{product_id}", handler.updateCartProduct)
			cr.Delete(prefix+"/sales/cart/product/{product_id}", handler.removeCartProduct)
			cr.Get(prefix+"/sales/cart/{cart_id}", handler.getCart)
			cr.With(auth.RequireCartOwner(svcs.Carts, "cart_id")).Put(prefix+"/sales/cart/{cart_id}/status", handler.updateCartStatus)
			cr.Get(prefix+"/sales/carts", handler.listCarts)

			cr.Get(prefix+"/sales/sales", handler.listSales)
			cr.Get(prefix+"/sales/sales/{sale_id}", handler.getSale)
			cr.Get(prefix+"/sales/sales/{sale_id}/invoices", handler.listSaleInvoices)

			cr.Post(prefix+"/sales/invoices", handler.createInvoice)
			cr.Get(prefix+"/sales/invoices", handler.listInvoices)
			cr.Get(prefix+"/sales/invoices/{invoice_id}", handler.getInvoice)
			cr.Put(prefix+"/sales/invoices/{invoice_id}", handler.updateInvoice)
			cr.Delete(prefix+"/sales/invoices/{invoice_id}", handler.deleteInvoice)
		})

		// Administrative reporting and adjustments
		r.Group(func(ar chi.Router) {
			ar.Use(auth.RequireAdmin)

			ar.Get(prefix+"/sales/admin/sales", handler.adminListSales)
			ar.Get(prefix+"/sales/admin/sales/{sale_id}", handler.adminGetSale)
			ar.Put(prefix+"/sales/admin/sales/{sale_id}", handler.adminUpdateSale)

			ar.Get(prefix+"/sales/admin/invoices", handler.adminListInvoices)
			ar.Post(prefix+"/sales/admin/invoices", handler.adminCreateInvoice)
			ar.Get(prefix+"/sales/admin/invoices/search", handler.adminSearchInvoices)
			ar.Get(prefix+"/sales/admin/invoices/{invoice_id}", handler.adminGetInvoice)
			ar.Put(prefix+"/sales/admin/invoices/{invoice_id}", handler.adminUpdateInvoice)
			ar.Delete(prefix+"/sales/admin/invoices/{invoice_id}", handler.adminDeleteInvoice)
		})
	})

	// Checkout with 60s timeout: the stock-checked transaction plus invoice
	// generation and the archival hook can outlast the standard budget.
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(authn.RequireAccess)
		r.Use(userLimiter)
		r.Use(auth.RequireCustomer)
		if cfg.Idempotency.Enabled && idempotencyStore != nil {
			r.Use(idempotency.Middleware(idempotencyStore, cfg.Idempotency.TTL.Duration))
		}
		r.Post(prefix+"/sales/checkout", handler.createCheckout)
	})
}

// Router exposes the configured chi router, mainly for embedding.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
