package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
	"github.com/jcastillo/vacunastock-api/internal/domain/repository"
)

var _ repository.StockLevelRepository = (*StockLevelRepo)(nil)

// StockLevelRepo implementación de StockLevelRepository sobre PostgreSQL
// (usable con pool o tx). La fila de un (vacuna, nodo) es el punto de
// serialización de todas las mutaciones de stock de ese par.
type StockLevelRepo struct {
	q Querier
}

// NewStockLevelRepository construye el adaptador de acumulados. Pasar pool o tx (Querier).
func NewStockLevelRepository(q Querier) *StockLevelRepo {
	return &StockLevelRepo{q: q}
}

// Get obtiene el acumulado de un (vacuna, nodo); nivel en cero si no existe fila.
func (r *StockLevelRepo) Get(ctx context.Context, vaccineID string, owner entity.OwnerRef) (*entity.StockLevel, error) {
	query := `
		SELECT vaccine_id, owner_type, owner_id, quantity, updated_at
		FROM stock_levels WHERE vaccine_id = $1 AND owner_type = $2 AND owner_id = $3`
	return r.scanLevel(ctx, query, vaccineID, owner)
}

// GetForUpdate obtiene el acumulado bloqueando la fila (SELECT FOR UPDATE).
// Si la fila no existe devuelve un nivel en cero listo para Upsert; la primera
// escritura del par no tiene con quién serializar, el constraint único del
// Upsert cubre la carrera de creación.
func (r *StockLevelRepo) GetForUpdate(ctx context.Context, vaccineID string, owner entity.OwnerRef) (*entity.StockLevel, error) {
	query := `
		SELECT vaccine_id, owner_type, owner_id, quantity, updated_at
		FROM stock_levels WHERE vaccine_id = $1 AND owner_type = $2 AND owner_id = $3
		FOR UPDATE`
	return r.scanLevel(ctx, query, vaccineID, owner)
}

func (r *StockLevelRepo) scanLevel(ctx context.Context, query, vaccineID string, owner entity.OwnerRef) (*entity.StockLevel, error) {
	var level entity.StockLevel
	var ownerType string
	err := r.q.QueryRow(ctx, query, vaccineID, string(owner.Type), owner.ID).Scan(
		&level.VaccineID, &ownerType, &level.Owner.ID, &level.Quantity, &level.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.StockLevel{VaccineID: vaccineID, Owner: owner, Quantity: decimal.Zero}, nil
		}
		return nil, fmt.Errorf("get stock level: %w", err)
	}
	level.Owner.Type = entity.OwnerType(ownerType)
	return &level, nil
}

// Upsert inserta o actualiza el acumulado del par.
func (r *StockLevelRepo) Upsert(ctx context.Context, level *entity.StockLevel) error {
	query := `
		INSERT INTO stock_levels (vaccine_id, owner_type, owner_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (vaccine_id, owner_type, owner_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`
	_, err := r.q.Exec(ctx, query, level.VaccineID, string(level.Owner.Type), level.Owner.ID, level.Quantity)
	if err != nil {
		return fmt.Errorf("upsert stock level: %w", err)
	}
	return nil
}

// DeleteByOwner purga los acumulados de un nodo eliminado.
func (r *StockLevelRepo) DeleteByOwner(ctx context.Context, owner entity.OwnerRef) error {
	query := `DELETE FROM stock_levels WHERE owner_type = $1 AND owner_id = $2`
	_, err := r.q.Exec(ctx, query, string(owner.Type), owner.ID)
	if err != nil {
		return fmt.Errorf("delete stock levels by owner: %w", err)
	}
	return nil
}
