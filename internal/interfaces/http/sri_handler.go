package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/sri-facturacion/internal/application/dto"
	"github.com/jhoicas/sri-facturacion/internal/application/usecase"
)

// SRIHandler utilidades de clave de acceso.
type SRIHandler struct {
	uc *usecase.AccessKeyUseCase
}

// NewSRIHandler construye el handler.
func NewSRIHandler(uc *usecase.AccessKeyUseCase) *SRIHandler {
	return &SRIHandler{uc: uc}
}

// BuildAccessKey arma una clave de acceso.
// @Summary      Construir clave de acceso
// @Description  Arma los 48 dígitos y agrega el dígito verificador módulo 11
// @Tags         sri
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AccessKeyRequest  true  "Campos de la clave; numeric_code vacío = aleatorio"
// @Success      201  {object}  dto.AccessKeyResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/sri/access-keys [post]
func (h *SRIHandler) BuildAccessKey(c *fiber.Ctx) error {
	var in dto.AccessKeyRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Build(in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ParseAccessKey verifica el dígito verificador y descompone la clave.
// @Summary      Descomponer clave de acceso
// @Tags         sri
// @Security     Bearer
// @Produce      json
// @Param        key  path  string  true  "Clave de acceso de 49 dígitos"
// @Success      200  {object}  dto.AccessKeyResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/sri/access-keys/{key} [get]
func (h *SRIHandler) ParseAccessKey(c *fiber.Ctx) error {
	out, err := h.uc.Parse(c.Params("key"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
