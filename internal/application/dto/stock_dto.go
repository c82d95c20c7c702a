package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout formato de fechas de vencimiento en la API (solo fecha).
const DateLayout = "2006-01-02"

// CreateLotRequest body para POST /api/stock/lots (adición directa, nivel NACIONAL).
type CreateLotRequest struct {
	VaccineID  string          `json:"vaccine_id"`
	OwnerType  string          `json:"owner_type"`
	OwnerID    string          `json:"owner_id,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
	Expiration string          `json:"expiration"` // YYYY-MM-DD
}

// ReduceStockRequest body para POST /api/stock/reductions (merma/baja directa).
type ReduceStockRequest struct {
	VaccineID string          `json:"vaccine_id"`
	OwnerType string          `json:"owner_type"`
	OwnerID   string          `json:"owner_id,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// LotResponse lote en respuestas de la API.
type LotResponse struct {
	ID                string          `json:"id"`
	VaccineID         string          `json:"vaccine_id"`
	OwnerType         string          `json:"owner_type"`
	OwnerID           string          `json:"owner_id,omitempty"`
	Quantity          decimal.Decimal `json:"quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	Expiration        string          `json:"expiration"`
	Status            string          `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
}

// LotListResponse listado de lotes más el remanente usable total del par.
type LotListResponse struct {
	Lots           []LotResponse   `json:"lots"`
	TotalRemaining decimal.Decimal `json:"total_remaining"`
	Total          int             `json:"total"`
}

// DeleteLotResponse ids eliminados en la baja de un lote (rastro de auditoría).
type DeleteLotResponse struct {
	LotID               string   `json:"lot_id"`
	AffectedTransferIDs []string `json:"affected_transfer_ids"`
}
