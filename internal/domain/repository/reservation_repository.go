package repository

import (
	"context"

	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
)

// ReservationRepository puerto de persistencia de reservas de dosis.
type ReservationRepository interface {
	// Create persiste la reserva junto con sus líneas (misma transacción).
	Create(ctx context.Context, r *entity.Reservation) error
	// GetByID devuelve la reserva con sus líneas; nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Reservation, error)
	// GetForUpdate bloquea la fila antes de consumir o cancelar.
	GetForUpdate(ctx context.Context, id string) (*entity.Reservation, error)
	UpdateStatus(ctx context.Context, id, status string) error
	// ListActiveByOwner reservas ACTIVE de un centro de salud, más recientes primero.
	ListActiveByOwner(ctx context.Context, owner entity.OwnerRef, limit, offset int) ([]*entity.Reservation, error)
	// DeleteByOwner purga reservas de un nodo eliminado; devuelve ids borrados.
	DeleteByOwner(ctx context.Context, owner entity.OwnerRef) ([]string, error)
}
