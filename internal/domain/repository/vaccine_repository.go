package repository

import (
	"context"

	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
)

// VaccineRepository puerto de persistencia para el catálogo de vacunas.
type VaccineRepository interface {
	Create(ctx context.Context, v *entity.Vaccine) error
	GetByID(ctx context.Context, id string) (*entity.Vaccine, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Vaccine, error)
}
