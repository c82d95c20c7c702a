package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un traslado. PENDING es el único estado no terminal.
const (
	TransferStatusPending   = "PENDING"
	TransferStatusConfirmed = "CONFIRMED"
	TransferStatusCancelled = "CANCELLED"
)

// Transfer traslado de cantidad entre un nodo padre y su hijo directo.
// Al abrirse debita el origen de inmediato; la cantidad existe solo en este
// registro hasta que se confirma (crea lotes en destino) o se cancela
// (reacredita los lotes de origen).
type Transfer struct {
	ID        string
	VaccineID string
	From      OwnerRef
	To        OwnerRef
	Quantity  decimal.Decimal
	Status    string
	Lines     []TransferLotLine // de qué lotes de origen salió la cantidad
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TransferLotLine detalle de asignación de un traslado: cuánto se extrajo de
// cada lote de origen. Es el rastro que permite clonar vencimientos al confirmar.
type TransferLotLine struct {
	TransferID    string
	LotID         string
	QuantityDrawn decimal.Decimal
	Expiration    time.Time // vencimiento del lote de origen al momento de abrir
}
