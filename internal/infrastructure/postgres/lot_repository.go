package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
	"github.com/jcastillo/vacunastock-api/internal/domain/repository"
)

var _ repository.LotRepository = (*LotRepo)(nil)

// LotRepo implementación de LotRepository sobre PostgreSQL (usable con pool o tx).
type LotRepo struct {
	q Querier
}

// NewLotRepository construye el adaptador del ledger de lotes. Pasar pool o tx (Querier).
func NewLotRepository(q Querier) *LotRepo {
	return &LotRepo{q: q}
}

const lotColumns = `id, vaccine_id, owner_type, owner_id, quantity, remaining_quantity, expiration, status, created_at, updated_at`

// Create persiste un lote nuevo.
func (r *LotRepo) Create(ctx context.Context, lot *entity.Lot) error {
	query := `
		INSERT INTO lots (` + lotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		lot.ID, lot.VaccineID, string(lot.Owner.Type), lot.Owner.ID,
		lot.Quantity, lot.RemainingQuantity, lot.Expiration, lot.Status,
		lot.CreatedAt, lot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lot: %w", err)
	}
	return nil
}

// GetByID obtiene un lote por ID; nil si no existe.
func (r *LotRepo) GetByID(ctx context.Context, id string) (*entity.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE id = $1`
	return r.scanLot(r.q.QueryRow(ctx, query, id))
}

// GetForUpdate obtiene un lote bloqueando su fila (SELECT FOR UPDATE); nil si no existe.
func (r *LotRepo) GetForUpdate(ctx context.Context, id string) (*entity.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE id = $1 FOR UPDATE`
	return r.scanLot(r.q.QueryRow(ctx, query, id))
}

// ListByOwner lotes de un (vacuna, nodo) en cualquier estado, por vencimiento
// ascendente con desempate por id (orden determinista).
func (r *LotRepo) ListByOwner(ctx context.Context, vaccineID string, owner entity.OwnerRef) ([]*entity.Lot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM lots WHERE vaccine_id = $1 AND owner_type = $2 AND owner_id = $3
		ORDER BY expiration, id`
	return r.listLots(ctx, query, vaccineID, string(owner.Type), owner.ID)
}

// ListForUpdate lotes VALID del par, bloqueados para asignación, en el mismo
// orden determinista que recorre el asignador.
func (r *LotRepo) ListForUpdate(ctx context.Context, vaccineID string, owner entity.OwnerRef) ([]*entity.Lot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM lots WHERE vaccine_id = $1 AND owner_type = $2 AND owner_id = $3 AND status = 'VALID'
		ORDER BY expiration, id
		FOR UPDATE`
	return r.listLots(ctx, query, vaccineID, string(owner.Type), owner.ID)
}

// UpdateRemaining fija remanente y estado de un lote ya bloqueado.
func (r *LotRepo) UpdateRemaining(ctx context.Context, id string, remaining decimal.Decimal, status string) error {
	query := `
		UPDATE lots SET remaining_quantity = $2, status = $3, updated_at = now()
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query, id, remaining, status)
	if err != nil {
		return fmt.Errorf("update lot remaining: %w", err)
	}
	return nil
}

// Delete elimina un lote (baja administrativa).
func (r *LotRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM lots WHERE id = $1`
	_, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete lot: %w", err)
	}
	return nil
}

// DeleteByOwner purga los lotes de un nodo eliminado; devuelve los ids borrados.
func (r *LotRepo) DeleteByOwner(ctx context.Context, owner entity.OwnerRef) ([]string, error) {
	query := `DELETE FROM lots WHERE owner_type = $1 AND owner_id = $2 RETURNING id`
	rows, err := r.q.Query(ctx, query, string(owner.Type), owner.ID)
	if err != nil {
		return nil, fmt.Errorf("delete lots by owner: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// MarkExpired pasa a EXPIRED los lotes VALID con vencimiento anterior a la
// fecha (comparación por día) y devuelve los afectados con su remanente, para
// que el barrido debite los acumulados en la misma transacción.
func (r *LotRepo) MarkExpired(ctx context.Context, before time.Time) ([]repository.ExpiredLot, error) {
	query := `
		UPDATE lots SET status = 'EXPIRED', updated_at = now()
		WHERE status = 'VALID' AND expiration < $1
		RETURNING id, vaccine_id, owner_type, owner_id, remaining_quantity`
	y, m, d := before.Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	rows, err := r.q.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("mark expired lots: %w", err)
	}
	defer rows.Close()

	out := make([]repository.ExpiredLot, 0)
	for rows.Next() {
		var e repository.ExpiredLot
		var ownerType string
		if err := rows.Scan(&e.LotID, &e.VaccineID, &ownerType, &e.Owner.ID, &e.Remaining); err != nil {
			return nil, fmt.Errorf("scan expired lot: %w", err)
		}
		e.Owner.Type = entity.OwnerType(ownerType)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats agregados de un nodo: lotes usables con su remanente total y conteo de
// vencidos. Un lote VALID con fecha ya pasada cuenta como vencido aunque el
// barrido no lo haya tocado todavía.
func (r *LotRepo) Stats(ctx context.Context, vaccineID string, owner entity.OwnerRef, now time.Time) (*repository.LotStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'VALID' AND expiration >= $4),
			COALESCE(SUM(remaining_quantity) FILTER (WHERE status = 'VALID' AND expiration >= $4), 0),
			COUNT(*) FILTER (WHERE status = 'EXPIRED' OR (status = 'VALID' AND expiration < $4))
		FROM lots
		WHERE owner_type = $1 AND owner_id = $2 AND ($3 = '' OR vaccine_id = $3)`
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	var stats repository.LotStats
	err := r.q.QueryRow(ctx, query, string(owner.Type), owner.ID, vaccineID, today).Scan(
		&stats.TotalLots, &stats.TotalQuantity, &stats.ExpiredLots,
	)
	if err != nil {
		return nil, fmt.Errorf("lot stats: %w", err)
	}
	return &stats, nil
}

// UsableByVaccine remanente usable por vacuna en un nodo (conteo de stock bajo).
func (r *LotRepo) UsableByVaccine(ctx context.Context, owner entity.OwnerRef, now time.Time) ([]repository.VaccineQuantity, error) {
	query := `
		SELECT vaccine_id, SUM(remaining_quantity)
		FROM lots
		WHERE owner_type = $1 AND owner_id = $2 AND status = 'VALID' AND expiration >= $3
		GROUP BY vaccine_id
		ORDER BY vaccine_id`
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	rows, err := r.q.Query(ctx, query, string(owner.Type), owner.ID, today)
	if err != nil {
		return nil, fmt.Errorf("usable by vaccine: %w", err)
	}
	defer rows.Close()

	out := make([]repository.VaccineQuantity, 0)
	for rows.Next() {
		var vq repository.VaccineQuantity
		if err := rows.Scan(&vq.VaccineID, &vq.Quantity); err != nil {
			return nil, fmt.Errorf("scan vaccine quantity: %w", err)
		}
		out = append(out, vq)
	}
	return out, rows.Err()
}

func (r *LotRepo) scanLot(row pgx.Row) (*entity.Lot, error) {
	var lot entity.Lot
	var ownerType string
	err := row.Scan(
		&lot.ID, &lot.VaccineID, &ownerType, &lot.Owner.ID,
		&lot.Quantity, &lot.RemainingQuantity, &lot.Expiration, &lot.Status,
		&lot.CreatedAt, &lot.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lot: %w", err)
	}
	lot.Owner.Type = entity.OwnerType(ownerType)
	return &lot, nil
}

func (r *LotRepo) listLots(ctx context.Context, query string, args ...any) ([]*entity.Lot, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()

	out := make([]*entity.Lot, 0)
	for rows.Next() {
		var lot entity.Lot
		var ownerType string
		err := rows.Scan(
			&lot.ID, &lot.VaccineID, &ownerType, &lot.Owner.ID,
			&lot.Quantity, &lot.RemainingQuantity, &lot.Expiration, &lot.Status,
			&lot.CreatedAt, &lot.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		lot.Owner.Type = entity.OwnerType(ownerType)
		out = append(out, &lot)
	}
	return out, rows.Err()
}

// scanIDs recoge los ids devueltos por un DELETE ... RETURNING.
func scanIDs(rows pgx.Rows) ([]string, error) {
	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
