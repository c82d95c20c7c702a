package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jcastillo/vacunastock-api/internal/application/dto"
	"github.com/jcastillo/vacunastock-api/internal/domain"
)

// errorStatus mapea errores sentinela de dominio a status HTTP y código estable.
var errorStatus = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{domain.ErrInvalidQuantity, fiber.StatusBadRequest, "INVALID_QUANTITY", "la cantidad debe ser un entero positivo"},
	{domain.ErrInvalidExpiration, fiber.StatusBadRequest, "INVALID_EXPIRATION", "la fecha de vencimiento ya pasó"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION", "datos inválidos"},
	{domain.ErrVaccineNotFound, fiber.StatusNotFound, "VACCINE_NOT_FOUND", "vacuna no encontrada"},
	{domain.ErrOwnerNotFound, fiber.StatusNotFound, "OWNER_NOT_FOUND", "nodo de la jerarquía no encontrado"},
	{domain.ErrLotNotFound, fiber.StatusNotFound, "LOT_NOT_FOUND", "lote no encontrado"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND", "recurso no encontrado"},
	{domain.ErrInvalidHierarchyEdge, fiber.StatusUnprocessableEntity, "INVALID_HIERARCHY_EDGE", "el origen no es el padre directo del destino"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK", "stock insuficiente"},
	{domain.ErrTransferNotPending, fiber.StatusConflict, "TRANSFER_NOT_PENDING", "el traslado ya no está pendiente"},
	{domain.ErrReservationNotActive, fiber.StatusConflict, "RESERVATION_NOT_ACTIVE", "la reserva ya no está activa"},
	{domain.ErrLotReferenced, fiber.StatusConflict, "LOT_REFERENCED", "el lote está referenciado por un traslado pendiente"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE", "el recurso ya existe"},
}

// writeDomainError responde el error con su código estable; 500 para los no mapeados.
func writeDomainError(c *fiber.Ctx, err error) error {
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: m.message})
		}
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}
