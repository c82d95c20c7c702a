package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// OpenTransferRequest body para POST /api/transfers.
type OpenTransferRequest struct {
	VaccineID string          `json:"vaccine_id"`
	FromType  string          `json:"from_type"`
	FromID    string          `json:"from_id,omitempty"`
	ToType    string          `json:"to_type"`
	ToID      string          `json:"to_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// TransferLineResponse extracción de un lote de origen dentro de un traslado.
type TransferLineResponse struct {
	LotID         string          `json:"lot_id"`
	QuantityDrawn decimal.Decimal `json:"quantity_drawn"`
	Expiration    string          `json:"expiration"`
}

// TransferResponse traslado en respuestas de la API.
type TransferResponse struct {
	ID        string                 `json:"id"`
	VaccineID string                 `json:"vaccine_id"`
	FromType  string                 `json:"from_type"`
	FromID    string                 `json:"from_id,omitempty"`
	ToType    string                 `json:"to_type"`
	ToID      string                 `json:"to_id"`
	Quantity  decimal.Decimal        `json:"quantity"`
	Status    string                 `json:"status"`
	Lines     []TransferLineResponse `json:"lines,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// ConfirmTransferResponse traslado confirmado y lotes materializados en destino.
type ConfirmTransferResponse struct {
	Transfer    TransferResponse `json:"transfer"`
	CreatedLots []LotResponse    `json:"created_lots"`
}
