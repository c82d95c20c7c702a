package stock

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcastillo/vacunastock-api/internal/domain"
	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
	"github.com/jcastillo/vacunastock-api/internal/domain/repository"
)

// PurgeUseCase gancho OnNodeDeleted que el flujo de borrado de la jerarquía
// geográfica debe invocar: elimina en orden de dependencias todo lo que el
// nodo posee (reservas, traslados y sus líneas, lotes, acumulados) en una sola
// transacción, sin depender de cascadas del motor de almacenamiento.
type PurgeUseCase struct {
	txRunner TxRunner
	notifier Notifier
	nowFn    func() time.Time
}

// NewPurgeUseCase construye el caso de uso.
func NewPurgeUseCase(txRunner TxRunner, notifier Notifier) *PurgeUseCase {
	return &PurgeUseCase{txRunner: txRunner, notifier: notifier, nowFn: time.Now}
}

// PurgeResult ids de los registros eliminados al purgar un nodo.
type PurgeResult struct {
	CancelledTransferIDs  []string // PENDING que tocaban al nodo, cancelados antes de borrar
	RemovedTransferIDs    []string
	RemovedReservationIDs []string
	RemovedLotIDs         []string
}

// OnNodeDeleted purga el stock de un nodo eliminado. Los traslados PENDING con
// el nodo como destino se cancelan primero (reacreditando los lotes del padre,
// que sigue existiendo); los PENDING con el nodo como origen solo se marcan
// CANCELLED, porque sus lotes desaparecen con el nodo. Después caen reservas,
// traslados con sus líneas, lotes y acumulados, en ese orden.
func (uc *PurgeUseCase) OnNodeDeleted(ctx context.Context, owner entity.OwnerRef, actor string) (*PurgeResult, error) {
	if !owner.IsValid() || owner.Type == entity.OwnerNational {
		return nil, domain.ErrInvalidInput
	}

	now := uc.nowFn()
	result := &PurgeResult{}

	err := uc.txRunner.Run(ctx, func(
		lotRepo repository.LotRepository,
		levelRepo repository.StockLevelRepository,
		transferRepo repository.TransferRepository,
		reservationRepo repository.ReservationRepository,
	) error {
		pending, err := transferRepo.ListPendingByOwner(ctx, owner)
		if err != nil {
			return err
		}
		for _, t := range pending {
			if t.To.Equal(owner) {
				lotIDs := make([]string, len(t.Lines))
				amounts := make([]decimal.Decimal, len(t.Lines))
				for i, line := range t.Lines {
					lotIDs[i] = line.LotID
					amounts[i] = line.QuantityDrawn
				}
				if err := restoreDraws(ctx, lotRepo, levelRepo, t.VaccineID, t.From, lotIDs, amounts, now); err != nil {
					return err
				}
			}
			if err := transferRepo.UpdateStatus(ctx, t.ID, entity.TransferStatusCancelled); err != nil {
				return err
			}
			result.CancelledTransferIDs = append(result.CancelledTransferIDs, t.ID)
		}

		reservationIDs, err := reservationRepo.DeleteByOwner(ctx, owner)
		if err != nil {
			return err
		}
		result.RemovedReservationIDs = reservationIDs

		transferIDs, err := transferRepo.DeleteByOwner(ctx, owner)
		if err != nil {
			return err
		}
		result.RemovedTransferIDs = transferIDs

		lotIDs, err := lotRepo.DeleteByOwner(ctx, owner)
		if err != nil {
			return err
		}
		result.RemovedLotIDs = lotIDs

		return levelRepo.DeleteByOwner(ctx, owner)
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Notify(Event{
		Action: ActionNodePurged,
		Owner:  owner,
		Actor:  actor,
		At:     now,
	})
	return result, nil
}
