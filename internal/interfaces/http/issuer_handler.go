package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/sri-facturacion/internal/application/dto"
	"github.com/jhoicas/sri-facturacion/internal/application/usecase"
)

// IssuerHandler maneja las peticiones HTTP para emisores.
type IssuerHandler struct {
	uc *usecase.IssuerUseCase
}

// NewIssuerHandler construye el handler inyectando el caso de uso.
func NewIssuerHandler(uc *usecase.IssuerUseCase) *IssuerHandler {
	return &IssuerHandler{uc: uc}
}

// Create registra un emisor.
// @Summary      Registrar emisor
// @Tags         issuers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateIssuerRequest  true  "RUC, razón social, establecimiento, punto de emisión, ambiente"
// @Success      201  {object}  dto.IssuerResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/issuers [post]
func (h *IssuerHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateIssuerRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Create(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Me devuelve el emisor del token.
// @Summary      Emisor del token
// @Tags         issuers
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.IssuerResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/issuers/me [get]
func (h *IssuerHandler) Me(c *fiber.Ctx) error {
	out, err := h.uc.GetByID(c.UserContext(), GetIssuerID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
