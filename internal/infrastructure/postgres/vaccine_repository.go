package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jcastillo/vacunastock-api/internal/domain"
	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
	"github.com/jcastillo/vacunastock-api/internal/domain/repository"
)

var _ repository.VaccineRepository = (*VaccineRepo)(nil)

// VaccineRepo implementación de VaccineRepository sobre PostgreSQL (usable con pool o tx).
type VaccineRepo struct {
	q Querier
}

// NewVaccineRepository construye el adaptador del catálogo. Pasar pool o tx (Querier).
func NewVaccineRepository(q Querier) *VaccineRepo {
	return &VaccineRepo{q: q}
}

// Create persiste una vacuna del esquema.
func (r *VaccineRepo) Create(ctx context.Context, v *entity.Vaccine) error {
	query := `
		INSERT INTO vaccines (id, name, doses_required, created_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.q.Exec(ctx, query, v.ID, v.Name, v.DosesRequired, v.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert vaccine: %w", err)
	}
	return nil
}

// GetByID obtiene una vacuna por ID; nil si no existe.
func (r *VaccineRepo) GetByID(ctx context.Context, id string) (*entity.Vaccine, error) {
	query := `
		SELECT id, name, doses_required, created_at
		FROM vaccines WHERE id = $1`
	var v entity.Vaccine
	err := r.q.QueryRow(ctx, query, id).Scan(&v.ID, &v.Name, &v.DosesRequired, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get vaccine: %w", err)
	}
	return &v, nil
}

// List lista las vacunas del catálogo ordenadas por nombre.
func (r *VaccineRepo) List(ctx context.Context, limit, offset int) ([]*entity.Vaccine, error) {
	query := `
		SELECT id, name, doses_required, created_at
		FROM vaccines ORDER BY name LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list vaccines: %w", err)
	}
	defer rows.Close()

	out := make([]*entity.Vaccine, 0)
	for rows.Next() {
		var v entity.Vaccine
		if err := rows.Scan(&v.ID, &v.Name, &v.DosesRequired, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan vaccine: %w", err)
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}
