package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/sri-facturacion/internal/application/billing"
	"github.com/jhoicas/sri-facturacion/internal/application/dto"
)

// InvoiceHandler maneja las peticiones HTTP de facturación (protegido).
// Todas las operaciones se acotan al emisor del token.
type InvoiceHandler struct {
	invoices *billing.InvoiceUseCase
	issue    *billing.IssueInvoiceUseCase
	sender   *billing.SRIOrchestrator
	ride     *billing.RIDEUseCase
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(invoices *billing.InvoiceUseCase, issue *billing.IssueInvoiceUseCase, sender *billing.SRIOrchestrator, ride *billing.RIDEUseCase) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, issue: issue, sender: sender, ride: ride}
}

// Create guarda una factura en borrador.
// @Summary      Crear factura en borrador
// @Tags         invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateInvoiceRequest  true  "Comprador, ítems y forma de pago"
// @Success      201  {object}  dto.InvoiceResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/invoices [post]
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.invoices.CreateDraft(c.UserContext(), GetIssuerID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID obtiene el detalle completo de una factura.
// @Summary      Detalle de factura
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        id    path  string  true  "ID de la factura (UUID)"
// @Success      200  {object}  dto.InvoiceResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.invoices.Get(c.UserContext(), GetIssuerID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Issue asigna secuencial, genera el XML y lo firma.
// @Summary      Emitir y firmar factura
// @Description  Asigna el secuencial, genera la clave de acceso, el XML v1.1.0 y la firma XAdES-BES
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        id    path  string  true  "ID de la factura (UUID)"
// @Success      200  {object}  dto.InvoiceResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/issue [post]
func (h *InvoiceHandler) Issue(c *fiber.Ctx) error {
	out, err := h.issue.Issue(c.UserContext(), GetIssuerID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Send envía la factura firmada al SRI y espera recepción y autorización.
// @Summary      Enviar factura al SRI
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        id    path  string  true  "ID de la factura (UUID)"
// @Success      200  {object}  dto.InvoiceResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Failure      504  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/send [post]
func (h *InvoiceHandler) Send(c *fiber.Ctx) error {
	out, err := h.sender.Send(c.UserContext(), GetIssuerID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Authorize vuelve a consultar la autorización de una factura recibida.
// @Summary      Consultar autorización
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        id    path  string  true  "ID de la factura (UUID)"
// @Success      200  {object}  dto.InvoiceResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Failure      504  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/authorize [post]
func (h *InvoiceHandler) Authorize(c *fiber.Ctx) error {
	out, err := h.sender.Authorize(c.UserContext(), GetIssuerID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Cancel anula una factura que aún no se envió al SRI.
// @Summary      Anular factura
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        id    path  string  true  "ID de la factura (UUID)"
// @Success      200  {object}  dto.InvoiceResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/cancel [post]
func (h *InvoiceHandler) Cancel(c *fiber.Ctx) error {
	out, err := h.invoices.Cancel(c.UserContext(), GetIssuerID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SignedXML descarga el comprobante firmado.
// @Summary      Descargar XML firmado
// @Tags         invoices
// @Security     Bearer
// @Produce      xml
// @Param        id    path  string  true  "ID de la factura (UUID)"
// @Success      200  {file}  file
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/xml [get]
func (h *InvoiceHandler) SignedXML(c *fiber.Ctx) error {
	body, filename, err := h.invoices.SignedXML(c.UserContext(), GetIssuerID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/xml; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(body)
}

// RIDE descarga la representación impresa en PDF.
// @Summary      Descargar RIDE en PDF
// @Tags         invoices
// @Security     Bearer
// @Produce      application/pdf
// @Param        id    path  string  true  "ID de la factura (UUID)"
// @Success      200  {file}  file
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/ride [get]
func (h *InvoiceHandler) RIDE(c *fiber.Ctx) error {
	body, filename, err := h.ride.Download(c.UserContext(), GetIssuerID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+filename+`"`)
	return c.Send(body)
}
