package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
)

// LotStats agregados de solo lectura sobre los lotes de un (vacuna, nodo).
type LotStats struct {
	TotalLots     int             // lotes VALID no vencidos
	TotalQuantity decimal.Decimal // remanente usable
	ExpiredLots   int             // lotes EXPIRED
}

// VaccineQuantity remanente usable por vacuna (para estadísticas sin vacuna fija).
type VaccineQuantity struct {
	VaccineID string
	Quantity  decimal.Decimal
}

// ExpiredLot lote que el barrido acaba de pasar a EXPIRED, con el remanente a
// debitar del acumulado de su par (vacuna, nodo).
type ExpiredLot struct {
	LotID     string
	VaccineID string
	Owner     entity.OwnerRef
	Remaining decimal.Decimal
}

// LotRepository puerto de persistencia del ledger de lotes.
// Los métodos de mutación se usan dentro de transacciones (ver TxRunner).
type LotRepository interface {
	Create(ctx context.Context, lot *entity.Lot) error
	GetByID(ctx context.Context, id string) (*entity.Lot, error)
	// GetForUpdate bloquea la fila del lote (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.Lot, error)
	// ListByOwner lotes de un (vacuna, nodo) ordenados por vencimiento ascendente.
	ListByOwner(ctx context.Context, vaccineID string, owner entity.OwnerRef) ([]*entity.Lot, error)
	// ListForUpdate lotes VALID del par, bloqueados para asignación, vencimiento ascendente.
	ListForUpdate(ctx context.Context, vaccineID string, owner entity.OwnerRef) ([]*entity.Lot, error)
	// UpdateRemaining fija remanente y estado de un lote ya bloqueado.
	UpdateRemaining(ctx context.Context, id string, remaining decimal.Decimal, status string) error
	Delete(ctx context.Context, id string) error
	// DeleteByOwner purga los lotes de un nodo eliminado; devuelve los ids borrados.
	DeleteByOwner(ctx context.Context, owner entity.OwnerRef) ([]string, error)
	// MarkExpired pasa a EXPIRED los lotes VALID con vencimiento anterior a la
	// fecha (comparación por día) y devuelve los afectados.
	MarkExpired(ctx context.Context, before time.Time) ([]ExpiredLot, error)
	Stats(ctx context.Context, vaccineID string, owner entity.OwnerRef, now time.Time) (*LotStats, error)
	// UsableByVaccine remanente usable por vacuna en un nodo (para conteo de stock bajo).
	UsableByVaccine(ctx context.Context, owner entity.OwnerRef, now time.Time) ([]VaccineQuantity, error)
}
