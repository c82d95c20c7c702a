package repository

import (
	"context"

	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
)

// TransferRepository puerto de persistencia de traslados y sus líneas de lote.
type TransferRepository interface {
	// Create persiste el traslado junto con sus líneas (misma transacción).
	Create(ctx context.Context, t *entity.Transfer) error
	// GetByID devuelve el traslado con sus líneas; nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Transfer, error)
	// GetForUpdate bloquea la fila del traslado antes de una transición de estado.
	GetForUpdate(ctx context.Context, id string) (*entity.Transfer, error)
	UpdateStatus(ctx context.Context, id, status string) error
	// ListByOwner traslados donde el nodo es origen o destino, más recientes primero.
	ListByOwner(ctx context.Context, owner entity.OwnerRef, limit, offset int) ([]*entity.Transfer, error)
	// ListPendingByOwner traslados PENDING que tocan al nodo (para purga).
	ListPendingByOwner(ctx context.Context, owner entity.OwnerRef) ([]*entity.Transfer, error)
	// HasPendingLineForLot indica si alguna línea de un traslado PENDING referencia el lote.
	HasPendingLineForLot(ctx context.Context, lotID string) (bool, error)
	// DeleteLinesByLot elimina las líneas históricas que referencian el lote
	// (solo de traslados terminales); devuelve los ids de traslado afectados.
	DeleteLinesByLot(ctx context.Context, lotID string) ([]string, error)
	// DeleteByOwner purga traslados (y líneas) de un nodo eliminado; devuelve ids borrados.
	DeleteByOwner(ctx context.Context, owner entity.OwnerRef) ([]string, error)
}
