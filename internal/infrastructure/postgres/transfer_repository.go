package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
	"github.com/jcastillo/vacunastock-api/internal/domain/repository"
)

var _ repository.TransferRepository = (*TransferRepo)(nil)

// TransferRepo implementación de TransferRepository sobre PostgreSQL (usable
// con pool o tx). Las líneas de lote viven en transfer_lot_lines y siempre se
// leen y escriben junto con su traslado.
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador de traslados. Pasar pool o tx (Querier).
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

const transferColumns = `id, vaccine_id, from_type, from_id, to_type, to_id, quantity, status, created_at, updated_at`

// Create persiste el traslado junto con sus líneas (misma transacción).
func (r *TransferRepo) Create(ctx context.Context, t *entity.Transfer) error {
	query := `
		INSERT INTO transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		t.ID, t.VaccineID, string(t.From.Type), t.From.ID, string(t.To.Type), t.To.ID,
		t.Quantity, t.Status, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}

	lineQuery := `
		INSERT INTO transfer_lot_lines (transfer_id, lot_id, quantity_drawn, expiration)
		VALUES ($1, $2, $3, $4)`
	for _, line := range t.Lines {
		_, err := r.q.Exec(ctx, lineQuery, t.ID, line.LotID, line.QuantityDrawn, line.Expiration)
		if err != nil {
			return fmt.Errorf("insert transfer line: %w", err)
		}
	}
	return nil
}

// GetByID devuelve el traslado con sus líneas; nil si no existe.
func (r *TransferRepo) GetByID(ctx context.Context, id string) (*entity.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`
	return r.getTransfer(ctx, query, id)
}

// GetForUpdate bloquea la fila del traslado antes de una transición de estado.
func (r *TransferRepo) GetForUpdate(ctx context.Context, id string) (*entity.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1 FOR UPDATE`
	return r.getTransfer(ctx, query, id)
}

// UpdateStatus transiciona el estado del traslado.
func (r *TransferRepo) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE transfers SET status = $2, updated_at = now() WHERE id = $1`
	_, err := r.q.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update transfer status: %w", err)
	}
	return nil
}

// ListByOwner traslados donde el nodo es origen o destino, más recientes primero.
func (r *TransferRepo) ListByOwner(ctx context.Context, owner entity.OwnerRef, limit, offset int) ([]*entity.Transfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE (from_type = $1 AND from_id = $2) OR (to_type = $1 AND to_id = $2)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`
	return r.listTransfers(ctx, query, string(owner.Type), owner.ID, limit, offset)
}

// ListPendingByOwner traslados PENDING que tocan al nodo (para purga).
func (r *TransferRepo) ListPendingByOwner(ctx context.Context, owner entity.OwnerRef) ([]*entity.Transfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE status = 'PENDING' AND ((from_type = $1 AND from_id = $2) OR (to_type = $1 AND to_id = $2))
		ORDER BY created_at, id`
	return r.listTransfers(ctx, query, string(owner.Type), owner.ID)
}

// HasPendingLineForLot indica si alguna línea de un traslado PENDING referencia el lote.
func (r *TransferRepo) HasPendingLineForLot(ctx context.Context, lotID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM transfer_lot_lines l
			JOIN transfers t ON t.id = l.transfer_id
			WHERE l.lot_id = $1 AND t.status = 'PENDING')`
	var exists bool
	if err := r.q.QueryRow(ctx, query, lotID).Scan(&exists); err != nil {
		return false, fmt.Errorf("pending line for lot: %w", err)
	}
	return exists, nil
}

// DeleteLinesByLot elimina las líneas históricas que referencian el lote y
// devuelve los ids de traslado afectados (sin duplicados). El caller ya
// verificó que ningún PENDING referencia el lote.
func (r *TransferRepo) DeleteLinesByLot(ctx context.Context, lotID string) ([]string, error) {
	query := `DELETE FROM transfer_lot_lines WHERE lot_id = $1 RETURNING transfer_id`
	rows, err := r.q.Query(ctx, query, lotID)
	if err != nil {
		return nil, fmt.Errorf("delete transfer lines by lot: %w", err)
	}
	defer rows.Close()

	ids, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// DeleteByOwner purga traslados (y sus líneas) de un nodo eliminado; devuelve ids borrados.
func (r *TransferRepo) DeleteByOwner(ctx context.Context, owner entity.OwnerRef) ([]string, error) {
	lineQuery := `
		DELETE FROM transfer_lot_lines WHERE transfer_id IN (
			SELECT id FROM transfers
			WHERE (from_type = $1 AND from_id = $2) OR (to_type = $1 AND to_id = $2))`
	if _, err := r.q.Exec(ctx, lineQuery, string(owner.Type), owner.ID); err != nil {
		return nil, fmt.Errorf("delete transfer lines by owner: %w", err)
	}

	query := `
		DELETE FROM transfers
		WHERE (from_type = $1 AND from_id = $2) OR (to_type = $1 AND to_id = $2)
		RETURNING id`
	rows, err := r.q.Query(ctx, query, string(owner.Type), owner.ID)
	if err != nil {
		return nil, fmt.Errorf("delete transfers by owner: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (r *TransferRepo) getTransfer(ctx context.Context, query, id string) (*entity.Transfer, error) {
	var t entity.Transfer
	var fromType, toType string
	err := r.q.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.VaccineID, &fromType, &t.From.ID, &toType, &t.To.ID,
		&t.Quantity, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	t.From.Type = entity.OwnerType(fromType)
	t.To.Type = entity.OwnerType(toType)
	if err := r.loadLines(ctx, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransferRepo) listTransfers(ctx context.Context, query string, args ...any) ([]*entity.Transfer, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	out := make([]*entity.Transfer, 0)
	for rows.Next() {
		var t entity.Transfer
		var fromType, toType string
		err := rows.Scan(
			&t.ID, &t.VaccineID, &fromType, &t.From.ID, &toType, &t.To.ID,
			&t.Quantity, &t.Status, &t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		t.From.Type = entity.OwnerType(fromType)
		t.To.Type = entity.OwnerType(toType)
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, t := range out {
		if err := r.loadLines(ctx, t); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// loadLines carga las líneas en el orden de asignación (vencimiento, lote).
func (r *TransferRepo) loadLines(ctx context.Context, t *entity.Transfer) error {
	query := `
		SELECT transfer_id, lot_id, quantity_drawn, expiration
		FROM transfer_lot_lines WHERE transfer_id = $1
		ORDER BY expiration, lot_id`
	rows, err := r.q.Query(ctx, query, t.ID)
	if err != nil {
		return fmt.Errorf("list transfer lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line entity.TransferLotLine
		if err := rows.Scan(&line.TransferID, &line.LotID, &line.QuantityDrawn, &line.Expiration); err != nil {
			return fmt.Errorf("scan transfer line: %w", err)
		}
		t.Lines = append(t.Lines, line)
	}
	return rows.Err()
}
