package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/sri-facturacion/internal/application/billing"
	"github.com/jhoicas/sri-facturacion/internal/application/usecase"
	"github.com/jhoicas/sri-facturacion/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	IssuerUC    *usecase.IssuerUseCase
	AccessKeyUC *usecase.AccessKeyUseCase
	InvoiceUC   *billing.InvoiceUseCase
	IssueUC     *billing.IssueInvoiceUseCase
	SRI         *billing.SRIOrchestrator
	RIDEUC      *billing.RIDEUseCase
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleOperator, jwt.RoleViewer)
	writers := RequireRole(jwt.RoleAdmin, jwt.RoleOperator)

	issuerHandler := NewIssuerHandler(deps.IssuerUC)
	issuers := api.Group("/issuers")
	issuers.Post("/", RequireRole(jwt.RoleAdmin), issuerHandler.Create)
	issuers.Get("/me", anyRole, RequireIssuer(), issuerHandler.Me)

	invoiceHandler := NewInvoiceHandler(deps.InvoiceUC, deps.IssueUC, deps.SRI, deps.RIDEUC)
	invoices := api.Group("/invoices", RequireIssuer())
	invoices.Post("/", writers, invoiceHandler.Create)
	invoices.Get("/:id", anyRole, invoiceHandler.GetByID)
	invoices.Post("/:id/issue", writers, invoiceHandler.Issue)
	invoices.Post("/:id/send", writers, invoiceHandler.Send)
	invoices.Post("/:id/authorize", writers, invoiceHandler.Authorize)
	invoices.Post("/:id/cancel", writers, invoiceHandler.Cancel)
	invoices.Get("/:id/xml", anyRole, invoiceHandler.SignedXML)
	invoices.Get("/:id/ride", anyRole, invoiceHandler.RIDE)

	sriHandler := NewSRIHandler(deps.AccessKeyUC)
	sri := api.Group("/sri", anyRole)
	sri.Post("/access-keys", sriHandler.BuildAccessKey)
	sri.Get("/access-keys/:key", sriHandler.ParseAccessKey)
}
