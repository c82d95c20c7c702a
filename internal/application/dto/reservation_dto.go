package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateReservationRequest body para POST /api/reservations.
// Quantity omitido o cero reserva una dosis.
type CreateReservationRequest struct {
	ScheduleID     string          `json:"schedule_id"`
	HealthCenterID string          `json:"health_center_id"`
	VaccineID      string          `json:"vaccine_id"`
	Quantity       decimal.Decimal `json:"quantity,omitempty"`
}

// ReservationLineResponse de qué lote salió la dosis reservada.
type ReservationLineResponse struct {
	LotID         string          `json:"lot_id"`
	QuantityDrawn decimal.Decimal `json:"quantity_drawn"`
}

// ReservationResponse reserva en respuestas de la API.
type ReservationResponse struct {
	ID             string                    `json:"id"`
	ScheduleID     string                    `json:"schedule_id"`
	VaccineID      string                    `json:"vaccine_id"`
	HealthCenterID string                    `json:"health_center_id"`
	Quantity       decimal.Decimal           `json:"quantity"`
	Status         string                    `json:"status"`
	Lines          []ReservationLineResponse `json:"lines,omitempty"`
	CreatedAt      time.Time                 `json:"created_at"`
}
