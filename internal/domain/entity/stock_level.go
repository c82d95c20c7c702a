package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockLevel total acumulado por (vacuna, nodo). Es un cache derivado:
// su única fuente de verdad es la suma de RemainingQuantity de los lotes VALID
// del par; mutarlo fuera de las rutas de asignación/acreditación es un bug.
type StockLevel struct {
	VaccineID string
	Owner     OwnerRef
	Quantity  decimal.Decimal
	UpdatedAt time.Time
}
