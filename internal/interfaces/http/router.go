package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jhoicas/scale-monitor-api/internal/application/analytics"
	"github.com/jhoicas/scale-monitor-api/internal/application/auth"
	"github.com/jhoicas/scale-monitor-api/internal/application/routing"
	"github.com/jhoicas/scale-monitor-api/internal/application/usecase"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/metrics"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC        *auth.AuthUseCase
	CustomerUC    *usecase.CustomerUseCase
	ProductUC     *usecase.ProductUseCase
	VendorUC      *usecase.VendorUseCase
	ScaleUC       *usecase.ScaleUseCase
	DocumentUC    *usecase.DocumentUseCase
	IntegrationUC *usecase.IntegrationUseCase
	AnalyticsUC   *analytics.UseCase
	Planner       *routing.Planner
	Metrics       *metrics.Metrics
	JWTSecret     string
	CookieDomain  string
	SecureCookie  bool
	ServiceName   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	api := app.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC, deps.CookieDomain, deps.SecureCookie)
	authGroup.Post("/signup", authHandler.SignUp)
	authGroup.Post("/confirm", authHandler.ConfirmSignUp)
	authGroup.Post("/resend-code", authHandler.ResendCode)
	authGroup.Post("/signin", authHandler.SignIn)
	authGroup.Post("/forgot-password", authHandler.ForgotPassword)
	authGroup.Post("/reset-password", authHandler.ResetPassword)
	authGroup.Post("/google/callback", authHandler.OAuthCallback)

	jwtAuth := AuthMiddleware(deps.JWTSecret)
	staff := RequireRole(entity.RoleAdmin, entity.RoleVendor)
	adminOnly := RequireRole(entity.RoleAdmin)

	// Sesión (protegido)
	authGroup.Post("/signout", jwtAuth, authHandler.SignOut)
	authGroup.Post("/change-password", jwtAuth, authHandler.ChangePassword)
	authGroup.Post("/refresh", jwtAuth, authHandler.Refresh)
	authGroup.Get("/me", jwtAuth, authHandler.Me)

	// Rutas protegidas (requieren Bearer Token o cookie de sesión)
	protected := api.Group("/", jwtAuth)

	// Customers
	customers := protected.Group("/customers")
	customerHandler := NewCustomerHandler(deps.CustomerUC)
	customers.Get("/me", customerHandler.Me)
	customers.Get("/", staff, customerHandler.List)
	customers.Post("/", staff, customerHandler.Create)
	customers.Get("/:id", staff, customerHandler.GetByID)
	customers.Put("/:id", staff, customerHandler.Update)
	customers.Delete("/:id", staff, customerHandler.Delete)
	customers.Get("/:id/users", staff, customerHandler.ListUsers)
	customers.Post("/:id/users", staff, customerHandler.AddUser)
	customers.Delete("/:id/users/:email", staff, customerHandler.RemoveUser)

	// Products
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Post("/", staff, productHandler.Create)
	products.Put("/:id", staff, productHandler.Update)
	products.Put("/:id/thresholds", productHandler.UpdateThresholds)
	products.Delete("/:id", staff, productHandler.Delete)

	// Vendors: perfil propio para vendors, CRUD solo para admin
	vendors := protected.Group("/vendors")
	vendorHandler := NewVendorHandler(deps.VendorUC)
	vendors.Get("/me", staff, vendorHandler.Me)
	vendors.Put("/me", staff, vendorHandler.UpdateMe)
	vendors.Get("/addresses", staff, vendorHandler.Addresses)
	vendors.Post("/addresses", staff, vendorHandler.AddAddress)
	vendors.Get("/workspaces", staff, vendorHandler.Workspaces)
	vendors.Get("/", adminOnly, vendorHandler.List)
	vendors.Post("/", adminOnly, vendorHandler.Create)
	vendors.Get("/:id", adminOnly, vendorHandler.GetByID)
	vendors.Put("/:id", adminOnly, vendorHandler.Update)
	vendors.Delete("/:id", adminOnly, vendorHandler.Delete)

	// Scales y mediciones
	scales := protected.Group("/scales")
	scaleHandler := NewScaleHandler(deps.ScaleUC)
	scales.Get("/", scaleHandler.List)
	scales.Post("/register", staff, scaleHandler.Register)
	scales.Get("/:id", scaleHandler.GetByID)
	scales.Put("/:id", staff, scaleHandler.Update)
	scales.Delete("/:id", staff, scaleHandler.Delete)
	measurements := protected.Group("/measurements")
	measurements.Get("/", scaleHandler.LatestAll)
	measurements.Get("/scale/:id", scaleHandler.Measurements)
	measurements.Get("/scale/:id/latest", scaleHandler.Latest)

	// Artículos, facturas y pedidos
	documentHandler := NewDocumentHandler(deps.DocumentUC)
	protected.Get("/items", documentHandler.Items)
	protected.Get("/invoices", documentHandler.Invoices)
	protected.Get("/orders", documentHandler.Orders)
	protected.Get("/orders/last-order", documentHandler.LastOrder)

	// Analítica de consumo
	analyticsGroup := protected.Group("/analytics")
	analyticsHandler := NewAnalyticsHandler(deps.AnalyticsUC)
	analyticsGroup.Get("/overview", analyticsHandler.Overview)
	analyticsGroup.Get("/products/:id", analyticsHandler.Product)
	analyticsGroup.Get("/customers/:customer_id/items/:item_id", analyticsHandler.CustomerItem)

	// Rutas de entrega
	routes := protected.Group("/routes", staff)
	routeHandler := NewRouteHandler(deps.Planner)
	routes.Post("/plan", routeHandler.Plan)
	routes.Post("/sheet", routeHandler.PlanSheet)
	routes.Get("/", routeHandler.List)
	routes.Get("/:id", routeHandler.GetByID)
	routes.Get("/:id/sheet.pdf", routeHandler.Sheet)
	protected.Post("/maps/geocode", staff, routeHandler.Geocode)

	// Integraciones y suscripción
	integrationHandler := NewIntegrationHandler(deps.IntegrationUC)
	integrations := protected.Group("/integrations", staff)
	integrations.Get("/", integrationHandler.List)
	integrations.Post("/connect", integrationHandler.Connect)
	integrations.Post("/instance/:id/disconnect", integrationHandler.Disconnect)
	subscription := protected.Group("/subscription", staff)
	subscription.Get("/", integrationHandler.Subscription)
	subscription.Post("/upgrade", integrationHandler.Upgrade)

	// Estadísticas de llamadas
	if deps.Metrics != nil {
		statsHandler := NewStatsHandler(deps.Metrics)
		protected.Get("/stats", statsHandler.Get)
		protected.Delete("/stats", adminOnly, statsHandler.Reset)
	}
}
