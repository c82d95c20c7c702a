package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jcastillo/vacunastock-api/internal/application/stock"
	"github.com/jcastillo/vacunastock-api/internal/domain"
	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
)

var _ stock.HierarchyResolver = (*OwnerRepo)(nil)

// OwnerRepo resolutor de la jerarquía geográfica sobre las tablas
// regions/districts/health_centers. Solo lectura: el CRUD de nodos pertenece
// al servicio de territorio, este motor solo necesita existencia y padre.
type OwnerRepo struct {
	q Querier
}

// NewOwnerRepository construye el resolutor. Pasar pool o tx (Querier).
func NewOwnerRepository(q Querier) *OwnerRepo {
	return &OwnerRepo{q: q}
}

// Exists verifica que el nodo exista. NATIONAL existe siempre (nodo raíz único).
func (r *OwnerRepo) Exists(ctx context.Context, owner entity.OwnerRef) (bool, error) {
	if owner.Type == entity.OwnerNational {
		return owner.ID == "", nil
	}
	table, ok := ownerTable(owner.Type)
	if !ok {
		return false, nil
	}
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table)
	var exists bool
	if err := r.q.QueryRow(ctx, query, owner.ID).Scan(&exists); err != nil {
		return false, fmt.Errorf("owner exists: %w", err)
	}
	return exists, nil
}

// ResolveParent devuelve el padre directo del nodo; domain.ErrOwnerNotFound si
// el nodo no existe. NATIONAL no tiene padre.
func (r *OwnerRepo) ResolveParent(ctx context.Context, owner entity.OwnerRef) (entity.OwnerRef, error) {
	switch owner.Type {
	case entity.OwnerRegional:
		ok, err := r.Exists(ctx, owner)
		if err != nil {
			return entity.OwnerRef{}, err
		}
		if !ok {
			return entity.OwnerRef{}, domain.ErrOwnerNotFound
		}
		return entity.NationalOwner(), nil
	case entity.OwnerDistrict:
		return r.parentOf(ctx, `SELECT region_id FROM districts WHERE id = $1`, owner.ID, entity.OwnerRegional)
	case entity.OwnerHealthCenter:
		return r.parentOf(ctx, `SELECT district_id FROM health_centers WHERE id = $1`, owner.ID, entity.OwnerDistrict)
	}
	return entity.OwnerRef{}, domain.ErrOwnerNotFound
}

func (r *OwnerRepo) parentOf(ctx context.Context, query, id string, parentType entity.OwnerType) (entity.OwnerRef, error) {
	var parentID string
	err := r.q.QueryRow(ctx, query, id).Scan(&parentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.OwnerRef{}, domain.ErrOwnerNotFound
		}
		return entity.OwnerRef{}, fmt.Errorf("resolve parent: %w", err)
	}
	return entity.OwnerRef{Type: parentType, ID: parentID}, nil
}

func ownerTable(t entity.OwnerType) (string, bool) {
	switch t {
	case entity.OwnerRegional:
		return "regions", true
	case entity.OwnerDistrict:
		return "districts", true
	case entity.OwnerHealthCenter:
		return "health_centers", true
	}
	return "", false
}
