package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jcastillo/vacunastock-api/internal/application/dto"
	"github.com/jcastillo/vacunastock-api/internal/application/usecase"
)

// VaccineHandler maneja las peticiones HTTP del catálogo de vacunas (protegido).
type VaccineHandler struct {
	uc *usecase.VaccineUseCase
}

// NewVaccineHandler construye el handler.
func NewVaccineHandler(uc *usecase.VaccineUseCase) *VaccineHandler {
	return &VaccineHandler{uc: uc}
}

// Create godoc
// @Summary      Registrar vacuna
// @Tags         vaccines
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateVaccineRequest  true  "name, doses_required"
// @Success      201   {object}  dto.VaccineResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/vaccines [post]
func (h *VaccineHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateVaccineRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	vaccine, err := h.uc.Create(c.Context(), in)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(vaccine)
}

// GetByID godoc
// @Summary      Obtener vacuna
// @Tags         vaccines
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la vacuna"
// @Success      200  {object}  dto.VaccineResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/vaccines/{id} [get]
func (h *VaccineHandler) GetByID(c *fiber.Ctx) error {
	vaccine, err := h.uc.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(vaccine)
}

// List godoc
// @Summary      Listar vacunas
// @Tags         vaccines
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "máximo de resultados (default 20)"
// @Param        offset  query  int  false  "desplazamiento"
// @Success      200  {array}  dto.VaccineResponse
// @Router       /api/vaccines [get]
func (h *VaccineHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()
	vaccines, err := h.uc.List(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(vaccines), "vaccines": vaccines})
}
