package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un lote.
const (
	LotStatusValid    = "VALID"    // disponible para asignación
	LotStatusExpired  = "EXPIRED"  // vencido con remanente > 0; excluido de asignación
	LotStatusDepleted = "DEPLETED" // remanente llegó a cero
)

// Lot lote físico de vacunas: una fecha de vencimiento y una cantidad remanente
// que solo decrece por asignación. Pertenece a un nodo de la jerarquía.
type Lot struct {
	ID                string
	VaccineID         string
	Owner             OwnerRef
	Quantity          decimal.Decimal // tamaño original del lote
	RemainingQuantity decimal.Decimal // 0 <= remanente <= Quantity
	Expiration        time.Time       // fecha de vencimiento (solo fecha, sin hora)
	Status            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Usable indica si el lote puede participar en una asignación en el instante dado.
func (l *Lot) Usable(now time.Time) bool {
	return l.Status == LotStatusValid && !l.Expired(now) && l.RemainingQuantity.GreaterThan(decimal.Zero)
}

// Expired indica si la fecha de vencimiento ya pasó (comparación por día).
func (l *Lot) Expired(now time.Time) bool {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	ey, em, ed := l.Expiration.Date()
	exp := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return exp.Before(today)
}
