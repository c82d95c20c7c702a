package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jcastillo/vacunastock-api/internal/domain"
	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
	"github.com/jcastillo/vacunastock-api/internal/domain/repository"
	stockdom "github.com/jcastillo/vacunastock-api/internal/domain/stock"
)

// TransferUseCase coordina el protocolo de traslado en dos fases:
// PENDING → CONFIRMED o PENDING → CANCELLED, sin transiciones desde estados
// terminales. Abrir debita el origen en el acto; la cantidad vive solo en el
// registro del traslado hasta confirmar (lotes en destino) o cancelar
// (reacreditación del origen).
type TransferUseCase struct {
	txRunner     TxRunner
	vaccineRepo  repository.VaccineRepository
	transferRepo repository.TransferRepository // lecturas fuera de transacción
	hierarchy    HierarchyResolver
	notifier     Notifier
	nowFn        func() time.Time
}

// NewTransferUseCase construye el caso de uso.
func NewTransferUseCase(
	txRunner TxRunner,
	vaccineRepo repository.VaccineRepository,
	transferRepo repository.TransferRepository,
	hierarchy HierarchyResolver,
	notifier Notifier,
) *TransferUseCase {
	return &TransferUseCase{
		txRunner:     txRunner,
		vaccineRepo:  vaccineRepo,
		transferRepo: transferRepo,
		hierarchy:    hierarchy,
		notifier:     notifier,
		nowFn:        time.Now,
	}
}

// OpenTransferInput apertura de un traslado padre → hijo directo.
type OpenTransferInput struct {
	VaccineID string
	From      entity.OwnerRef
	To        entity.OwnerRef
	Quantity  decimal.Decimal
	Actor     string
}

// Open valida la arista de jerarquía, asigna la cantidad sobre los lotes del
// origen y persiste el traslado PENDING con una línea por extracción — todo en
// una transacción. Con stock insuficiente no queda nada persistido.
func (uc *TransferUseCase) Open(ctx context.Context, input OpenTransferInput) (*entity.Transfer, error) {
	if err := stockdom.ValidateQuantity(input.Quantity); err != nil {
		return nil, err
	}
	if !input.From.IsValid() || !input.To.IsValid() {
		return nil, domain.ErrInvalidInput
	}
	if err := uc.requireVaccine(ctx, input.VaccineID); err != nil {
		return nil, err
	}
	if err := uc.validateEdge(ctx, input.From, input.To); err != nil {
		return nil, err
	}

	now := uc.nowFn()
	transfer := &entity.Transfer{
		ID:        uuid.New().String(),
		VaccineID: input.VaccineID,
		From:      input.From,
		To:        input.To,
		Quantity:  input.Quantity,
		Status:    entity.TransferStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := uc.txRunner.Run(ctx, func(
		lotRepo repository.LotRepository,
		levelRepo repository.StockLevelRepository,
		transferRepo repository.TransferRepository,
		_ repository.ReservationRepository,
	) error {
		draws, err := allocate(ctx, lotRepo, levelRepo, input.VaccineID, input.From, input.Quantity, now)
		if err != nil {
			return err
		}
		for _, d := range draws {
			transfer.Lines = append(transfer.Lines, entity.TransferLotLine{
				TransferID:    transfer.ID,
				LotID:         d.LotID,
				QuantityDrawn: d.QuantityDrawn,
				Expiration:    d.Expiration,
			})
		}
		return transferRepo.Create(ctx, transfer)
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Notify(Event{
		Action:       ActionTransferOpened,
		VaccineID:    input.VaccineID,
		Owner:        input.From,
		Counterparty: &input.To,
		Quantity:     input.Quantity,
		Actor:        input.Actor,
		At:           now,
	})
	return transfer, nil
}

// ConfirmResult traslado confirmado y los lotes materializados en destino.
type ConfirmResult struct {
	Transfer    *entity.Transfer
	CreatedLots []*entity.Lot
}

// Confirm materializa el traslado: un lote en destino por cada línea, clonando
// el vencimiento original del lote de origen (el vencimiento viaja con el
// lote físico, nunca se reinicia), y acredita el acumulado del destino.
// Irreversible una vez CONFIRMED.
func (uc *TransferUseCase) Confirm(ctx context.Context, transferID, actor string) (*ConfirmResult, error) {
	now := uc.nowFn()
	result := &ConfirmResult{}

	err := uc.txRunner.Run(ctx, func(
		lotRepo repository.LotRepository,
		levelRepo repository.StockLevelRepository,
		transferRepo repository.TransferRepository,
		_ repository.ReservationRepository,
	) error {
		transfer, err := transferRepo.GetForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if transfer == nil {
			return domain.ErrNotFound
		}
		if transfer.Status != entity.TransferStatusPending {
			return domain.ErrTransferNotPending
		}

		for _, line := range transfer.Lines {
			lot := &entity.Lot{
				ID:                uuid.New().String(),
				VaccineID:         transfer.VaccineID,
				Owner:             transfer.To,
				Quantity:          line.QuantityDrawn,
				RemainingQuantity: line.QuantityDrawn,
				Expiration:        line.Expiration,
				Status:            entity.LotStatusValid,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if err := lotRepo.Create(ctx, lot); err != nil {
				return err
			}
			result.CreatedLots = append(result.CreatedLots, lot)
		}
		if err := creditLevel(ctx, levelRepo, transfer.VaccineID, transfer.To, transfer.Quantity, now); err != nil {
			return err
		}
		if err := transferRepo.UpdateStatus(ctx, transferID, entity.TransferStatusConfirmed); err != nil {
			return err
		}
		transfer.Status = entity.TransferStatusConfirmed
		transfer.UpdatedAt = now
		result.Transfer = transfer
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Notify(Event{
		Action:       ActionTransferConfirmed,
		VaccineID:    result.Transfer.VaccineID,
		Owner:        result.Transfer.To,
		Counterparty: &result.Transfer.From,
		Quantity:     result.Transfer.Quantity,
		Actor:        actor,
		At:           now,
	})
	return result, nil
}

// Cancel reacredita cada lote de origen con lo extraído por su línea
// (restaurando remanentes y reviviendo lotes DEPLETED) y devuelve el acumulado
// del origen a su estado previo a la apertura.
func (uc *TransferUseCase) Cancel(ctx context.Context, transferID, actor string) (*entity.Transfer, error) {
	now := uc.nowFn()
	var cancelled *entity.Transfer

	err := uc.txRunner.Run(ctx, func(
		lotRepo repository.LotRepository,
		levelRepo repository.StockLevelRepository,
		transferRepo repository.TransferRepository,
		_ repository.ReservationRepository,
	) error {
		transfer, err := transferRepo.GetForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if transfer == nil {
			return domain.ErrNotFound
		}
		if transfer.Status != entity.TransferStatusPending {
			return domain.ErrTransferNotPending
		}

		lotIDs := make([]string, len(transfer.Lines))
		amounts := make([]decimal.Decimal, len(transfer.Lines))
		for i, line := range transfer.Lines {
			lotIDs[i] = line.LotID
			amounts[i] = line.QuantityDrawn
		}
		if err := restoreDraws(ctx, lotRepo, levelRepo, transfer.VaccineID, transfer.From, lotIDs, amounts, now); err != nil {
			return err
		}
		if err := transferRepo.UpdateStatus(ctx, transferID, entity.TransferStatusCancelled); err != nil {
			return err
		}
		transfer.Status = entity.TransferStatusCancelled
		transfer.UpdatedAt = now
		cancelled = transfer
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Notify(Event{
		Action:       ActionTransferCancelled,
		VaccineID:    cancelled.VaccineID,
		Owner:        cancelled.From,
		Counterparty: &cancelled.To,
		Quantity:     cancelled.Quantity,
		Actor:        actor,
		At:           now,
	})
	return cancelled, nil
}

// List traslados visibles para un nodo (como origen o destino), más recientes primero.
func (uc *TransferUseCase) List(ctx context.Context, owner entity.OwnerRef, limit, offset int) ([]*entity.Transfer, error) {
	if !owner.IsValid() {
		return nil, domain.ErrInvalidInput
	}
	return uc.transferRepo.ListByOwner(ctx, owner, limit, offset)
}

// validateEdge exige que From sea el padre directo de To según la jerarquía
// real (no basta con que los niveles sean adyacentes: tiene que ser ESE padre).
func (uc *TransferUseCase) validateEdge(ctx context.Context, from, to entity.OwnerRef) error {
	parentType, ok := to.ParentLevel()
	if !ok || from.Type != parentType {
		return domain.ErrInvalidHierarchyEdge
	}
	parent, err := uc.hierarchy.ResolveParent(ctx, to)
	if err != nil {
		return err
	}
	if !parent.Equal(from) {
		return domain.ErrInvalidHierarchyEdge
	}
	return nil
}

func (uc *TransferUseCase) requireVaccine(ctx context.Context, vaccineID string) error {
	if vaccineID == "" {
		return domain.ErrInvalidInput
	}
	v, err := uc.vaccineRepo.GetByID(ctx, vaccineID)
	if err != nil {
		return err
	}
	if v == nil {
		return domain.ErrVaccineNotFound
	}
	return nil
}
