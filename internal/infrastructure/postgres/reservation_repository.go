package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
	"github.com/jcastillo/vacunastock-api/internal/domain/repository"
)

var _ repository.ReservationRepository = (*ReservationRepo)(nil)

// ReservationRepo implementación de ReservationRepository sobre PostgreSQL
// (usable con pool o tx).
type ReservationRepo struct {
	q Querier
}

// NewReservationRepository construye el adaptador de reservas. Pasar pool o tx (Querier).
func NewReservationRepository(q Querier) *ReservationRepo {
	return &ReservationRepo{q: q}
}

const reservationColumns = `id, schedule_id, vaccine_id, owner_type, owner_id, quantity, status, created_at, updated_at`

// Create persiste la reserva junto con sus líneas (misma transacción).
func (r *ReservationRepo) Create(ctx context.Context, reservation *entity.Reservation) error {
	query := `
		INSERT INTO reservations (` + reservationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		reservation.ID, reservation.ScheduleID, reservation.VaccineID,
		string(reservation.Owner.Type), reservation.Owner.ID,
		reservation.Quantity, reservation.Status, reservation.CreatedAt, reservation.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}

	lineQuery := `
		INSERT INTO reservation_lot_lines (reservation_id, lot_id, quantity_drawn)
		VALUES ($1, $2, $3)`
	for _, line := range reservation.Lines {
		_, err := r.q.Exec(ctx, lineQuery, reservation.ID, line.LotID, line.QuantityDrawn)
		if err != nil {
			return fmt.Errorf("insert reservation line: %w", err)
		}
	}
	return nil
}

// GetByID devuelve la reserva con sus líneas; nil si no existe.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	return r.getReservation(ctx, query, id)
}

// GetForUpdate bloquea la fila antes de consumir o cancelar.
func (r *ReservationRepo) GetForUpdate(ctx context.Context, id string) (*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1 FOR UPDATE`
	return r.getReservation(ctx, query, id)
}

// UpdateStatus transiciona el estado de la reserva.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE reservations SET status = $2, updated_at = now() WHERE id = $1`
	_, err := r.q.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}
	return nil
}

// ListActiveByOwner reservas ACTIVE de un centro de salud, más recientes primero.
func (r *ReservationRepo) ListActiveByOwner(ctx context.Context, owner entity.OwnerRef, limit, offset int) ([]*entity.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE status = 'ACTIVE' AND owner_type = $1 AND owner_id = $2
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(ctx, query, string(owner.Type), owner.ID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list active reservations: %w", err)
	}
	defer rows.Close()

	out := make([]*entity.Reservation, 0)
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, reservation := range out {
		if err := r.loadLines(ctx, reservation); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DeleteByOwner purga reservas (y sus líneas) de un nodo eliminado; devuelve ids borrados.
func (r *ReservationRepo) DeleteByOwner(ctx context.Context, owner entity.OwnerRef) ([]string, error) {
	lineQuery := `
		DELETE FROM reservation_lot_lines WHERE reservation_id IN (
			SELECT id FROM reservations WHERE owner_type = $1 AND owner_id = $2)`
	if _, err := r.q.Exec(ctx, lineQuery, string(owner.Type), owner.ID); err != nil {
		return nil, fmt.Errorf("delete reservation lines by owner: %w", err)
	}

	query := `DELETE FROM reservations WHERE owner_type = $1 AND owner_id = $2 RETURNING id`
	rows, err := r.q.Query(ctx, query, string(owner.Type), owner.ID)
	if err != nil {
		return nil, fmt.Errorf("delete reservations by owner: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (r *ReservationRepo) getReservation(ctx context.Context, query, id string) (*entity.Reservation, error) {
	reservation, err := scanReservation(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	if err := r.loadLines(ctx, reservation); err != nil {
		return nil, err
	}
	return reservation, nil
}

func scanReservation(row pgx.Row) (*entity.Reservation, error) {
	var reservation entity.Reservation
	var ownerType string
	err := row.Scan(
		&reservation.ID, &reservation.ScheduleID, &reservation.VaccineID,
		&ownerType, &reservation.Owner.ID,
		&reservation.Quantity, &reservation.Status, &reservation.CreatedAt, &reservation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	reservation.Owner.Type = entity.OwnerType(ownerType)
	return &reservation, nil
}

func (r *ReservationRepo) loadLines(ctx context.Context, reservation *entity.Reservation) error {
	query := `
		SELECT reservation_id, lot_id, quantity_drawn
		FROM reservation_lot_lines WHERE reservation_id = $1
		ORDER BY lot_id`
	rows, err := r.q.Query(ctx, query, reservation.ID)
	if err != nil {
		return fmt.Errorf("list reservation lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line entity.ReservationLotLine
		if err := rows.Scan(&line.ReservationID, &line.LotID, &line.QuantityDrawn); err != nil {
			return fmt.Errorf("scan reservation line: %w", err)
		}
		reservation.Lines = append(reservation.Lines, line)
	}
	return rows.Err()
}
