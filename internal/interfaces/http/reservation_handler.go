package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jcastillo/vacunastock-api/internal/application/dto"
	"github.com/jcastillo/vacunastock-api/internal/application/stock"
	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
)

// ReservationHandler maneja las peticiones HTTP de reservas de dosis (protegido).
type ReservationHandler struct {
	uc *stock.ReservationUseCase
}

// NewReservationHandler construye el handler.
func NewReservationHandler(uc *stock.ReservationUseCase) *ReservationHandler {
	return &ReservationHandler{uc: uc}
}

// Reserve godoc
// @Summary      Reservar dosis para una vacunación agendada
// @Description  Debita los lotes del centro al reservar. quantity omitida reserva una dosis.
//
//	Si el body no trae health_center_id se usa el alcance del token (usuario de centro).
//
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateReservationRequest  true  "schedule_id, health_center_id, vaccine_id, quantity?"
// @Success      201   {object}  dto.ReservationResponse
// @Failure      409   {object}  dto.ErrorResponse  "stock insuficiente"
// @Router       /api/reservations [post]
func (h *ReservationHandler) Reserve(c *fiber.Ctx) error {
	var in dto.CreateReservationRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.HealthCenterID == "" {
		if scope, ok := GetOwnerScope(c); ok && scope.Type == entity.OwnerHealthCenter {
			in.HealthCenterID = scope.ID
		}
	}

	reservation, err := h.uc.Reserve(c.Context(), stock.ReserveInput{
		ScheduleID:     in.ScheduleID,
		HealthCenterID: in.HealthCenterID,
		VaccineID:      in.VaccineID,
		Quantity:       in.Quantity,
		Actor:          GetUserID(c),
	})
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toReservationResponse(reservation))
}

// Consume godoc
// @Summary      Marcar reserva como consumida (dosis administrada)
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la reserva"
// @Success      200  {object}  dto.ReservationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse  "ya no está activa"
// @Router       /api/reservations/{id}/consume [post]
func (h *ReservationHandler) Consume(c *fiber.Ctx) error {
	reservation, err := h.uc.Consume(c.Context(), c.Params("id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(toReservationResponse(reservation))
}

// Cancel godoc
// @Summary      Cancelar reserva activa
// @Description  Reacredita los lotes y el acumulado del centro de salud.
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la reserva"
// @Success      200  {object}  dto.ReservationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse  "ya no está activa"
// @Router       /api/reservations/{id}/cancel [post]
func (h *ReservationHandler) Cancel(c *fiber.Ctx) error {
	reservation, err := h.uc.Cancel(c.Context(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(toReservationResponse(reservation))
}

// ListActive godoc
// @Summary      Listar reservas activas de un centro de salud
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        health_center_id  query  string  true  "centro de salud"
// @Param        limit             query  int     false  "máximo de resultados (default 20)"
// @Param        offset            query  int     false  "desplazamiento"
// @Success      200  {array}  dto.ReservationResponse
// @Router       /api/reservations [get]
func (h *ReservationHandler) ListActive(c *fiber.Ctx) error {
	healthCenterID := c.Query("health_center_id")
	if healthCenterID == "" {
		if scope, ok := GetOwnerScope(c); ok && scope.Type == entity.OwnerHealthCenter {
			healthCenterID = scope.ID
		}
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()

	reservations, err := h.uc.ListActive(c.Context(), healthCenterID, page.Limit, page.Offset)
	if err != nil {
		return writeDomainError(c, err)
	}
	out := make([]dto.ReservationResponse, 0, len(reservations))
	for _, r := range reservations {
		out = append(out, toReservationResponse(r))
	}
	return c.JSON(fiber.Map{"total": len(out), "reservations": out})
}

func toReservationResponse(r *entity.Reservation) dto.ReservationResponse {
	out := dto.ReservationResponse{
		ID:             r.ID,
		ScheduleID:     r.ScheduleID,
		VaccineID:      r.VaccineID,
		HealthCenterID: r.Owner.ID,
		Quantity:       r.Quantity,
		Status:         r.Status,
		CreatedAt:      r.CreatedAt,
	}
	for _, line := range r.Lines {
		out.Lines = append(out.Lines, dto.ReservationLineResponse{
			LotID:         line.LotID,
			QuantityDrawn: line.QuantityDrawn,
		})
	}
	return out
}
