package repository

import (
	"context"

	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
)

// StockLevelRepository puerto para el total acumulado por (vacuna, nodo).
// Solo las rutas de asignación/acreditación deben mutarlo; se usa dentro de
// transacciones y su fila es el punto de serialización de mutaciones del par.
type StockLevelRepository interface {
	Get(ctx context.Context, vaccineID string, owner entity.OwnerRef) (*entity.StockLevel, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE); si no existe devuelve
	// un nivel en cero listo para Upsert.
	GetForUpdate(ctx context.Context, vaccineID string, owner entity.OwnerRef) (*entity.StockLevel, error)
	Upsert(ctx context.Context, level *entity.StockLevel) error
	// DeleteByOwner purga los acumulados de un nodo eliminado.
	DeleteByOwner(ctx context.Context, owner entity.OwnerRef) error
}
