package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una reserva de dosis.
const (
	ReservationStatusActive    = "ACTIVE"
	ReservationStatusConsumed  = "CONSUMED"
	ReservationStatusCancelled = "CANCELLED"
)

// Reservation dosis apartada de los lotes de un centro de salud para una
// vacunación agendada. El débito sobre los lotes ocurre al crearla; consumirla
// no toca el ledger y cancelarla reacredita.
type Reservation struct {
	ID         string
	ScheduleID string // referencia a la agenda de vacunación (entidad externa)
	VaccineID  string
	Owner      OwnerRef // centro de salud
	Quantity   decimal.Decimal
	Status     string
	Lines      []ReservationLotLine
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ReservationLotLine de qué lote(s) salió la dosis reservada.
// Mismo rol que TransferLotLine pero acotado a una agenda.
type ReservationLotLine struct {
	ReservationID string
	LotID         string
	QuantityDrawn decimal.Decimal
}
