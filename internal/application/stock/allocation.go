package stock

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
	"github.com/jcastillo/vacunastock-api/internal/domain/repository"
	stockdom "github.com/jcastillo/vacunastock-api/internal/domain/stock"
)

// Rutas de mutación del ledger compartidas por los casos de uso. Todas asumen
// que corren dentro de una transacción (repos atados a la tx del TxRunner).
//
// Disciplina de bloqueo: primero la fila de stock_levels del par (vacuna, nodo)
// —punto único de serialización— y después las filas de lotes. Mantener ese
// orden en débitos y créditos evita interbloqueos entre operaciones concurrentes.

// allocate bloquea los lotes usables del par, planifica la extracción por
// vencimiento ascendente y la aplica: decrementa remanentes, marca DEPLETED al
// llegar a cero y debita el acumulado. Todo o nada: con stock insuficiente no
// muta nada (el plan falla antes de aplicar).
func allocate(
	ctx context.Context,
	lotRepo repository.LotRepository,
	levelRepo repository.StockLevelRepository,
	vaccineID string,
	owner entity.OwnerRef,
	qty decimal.Decimal,
	now time.Time,
) ([]stockdom.Draw, error) {
	level, err := levelRepo.GetForUpdate(ctx, vaccineID, owner)
	if err != nil {
		return nil, err
	}

	lots, err := lotRepo.ListForUpdate(ctx, vaccineID, owner)
	if err != nil {
		return nil, err
	}

	draws, err := stockdom.Plan(lots, qty, now)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*entity.Lot, len(lots))
	for _, l := range lots {
		byID[l.ID] = l
	}
	for _, d := range draws {
		l := byID[d.LotID]
		newRemaining := l.RemainingQuantity.Sub(d.QuantityDrawn)
		status := entity.LotStatusValid
		if newRemaining.IsZero() {
			status = entity.LotStatusDepleted
		}
		if err := lotRepo.UpdateRemaining(ctx, l.ID, newRemaining, status); err != nil {
			return nil, err
		}
	}

	level.Quantity = level.Quantity.Sub(qty)
	level.UpdatedAt = now
	if err := levelRepo.Upsert(ctx, level); err != nil {
		return nil, err
	}
	return draws, nil
}

// creditLevel acredita el acumulado del par (vacuna, nodo) con bloqueo de fila.
func creditLevel(
	ctx context.Context,
	levelRepo repository.StockLevelRepository,
	vaccineID string,
	owner entity.OwnerRef,
	delta decimal.Decimal,
	now time.Time,
) error {
	level, err := levelRepo.GetForUpdate(ctx, vaccineID, owner)
	if err != nil {
		return err
	}
	level.Quantity = level.Quantity.Add(delta)
	level.UpdatedAt = now
	return levelRepo.Upsert(ctx, level)
}

// restoreDraws reacredita extracciones sobre sus lotes de origen (cancelación de
// traslado o reserva). Un lote DEPLETED que recupera remanente vuelve a VALID;
// uno que venció entre medio queda EXPIRED y su remanente restaurado no se
// acredita al acumulado (el acumulado solo suma lotes VALID).
func restoreDraws(
	ctx context.Context,
	lotRepo repository.LotRepository,
	levelRepo repository.StockLevelRepository,
	vaccineID string,
	owner entity.OwnerRef,
	lotIDs []string,
	amounts []decimal.Decimal,
	now time.Time,
) error {
	level, err := levelRepo.GetForUpdate(ctx, vaccineID, owner)
	if err != nil {
		return err
	}

	credited := decimal.Zero
	for i, lotID := range lotIDs {
		lot, err := lotRepo.GetForUpdate(ctx, lotID)
		if err != nil {
			return err
		}
		if lot == nil {
			// El lote de origen ya no existe (nodo purgado): no hay a dónde restaurar.
			continue
		}
		newRemaining := lot.RemainingQuantity.Add(amounts[i])
		status := lot.Status
		if status == entity.LotStatusDepleted && newRemaining.GreaterThan(decimal.Zero) {
			status = entity.LotStatusValid
		}
		if err := lotRepo.UpdateRemaining(ctx, lot.ID, newRemaining, status); err != nil {
			return err
		}
		if status == entity.LotStatusValid {
			credited = credited.Add(amounts[i])
		}
	}

	if credited.IsZero() {
		return nil
	}
	level.Quantity = level.Quantity.Add(credited)
	level.UpdatedAt = now
	return levelRepo.Upsert(ctx, level)
}
