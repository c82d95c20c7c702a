package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jcastillo/vacunastock-api/internal/application/stock"
	"github.com/jcastillo/vacunastock-api/internal/domain/repository"
)

var _ stock.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks del motor de stock dentro de una transacción
// PostgreSQL, con los cuatro repositorios atados a esa tx.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace
// Commit o Rollback según el resultado.
func (r *TxRunner) Run(ctx context.Context, fn func(
	lotRepo repository.LotRepository,
	levelRepo repository.StockLevelRepository,
	transferRepo repository.TransferRepository,
	reservationRepo repository.ReservationRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lotRepo := NewLotRepository(tx)
	levelRepo := NewStockLevelRepository(tx)
	transferRepo := NewTransferRepository(tx)
	reservationRepo := NewReservationRepository(tx)

	if err := fn(lotRepo, levelRepo, transferRepo, reservationRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
