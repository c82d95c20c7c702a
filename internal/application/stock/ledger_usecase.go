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

// LedgerUseCase administra el ledger de lotes: altas directas a nivel NACIONAL,
// listados, bajas administrativas, reducciones y el barrido de vencidos.
type LedgerUseCase struct {
	txRunner    TxRunner
	vaccineRepo repository.VaccineRepository
	lotRepo     repository.LotRepository // lecturas fuera de transacción
	hierarchy   HierarchyResolver
	notifier    Notifier
	nowFn       func() time.Time
}

// NewLedgerUseCase construye el caso de uso.
func NewLedgerUseCase(
	txRunner TxRunner,
	vaccineRepo repository.VaccineRepository,
	lotRepo repository.LotRepository,
	hierarchy HierarchyResolver,
	notifier Notifier,
) *LedgerUseCase {
	return &LedgerUseCase{
		txRunner:    txRunner,
		vaccineRepo: vaccineRepo,
		lotRepo:     lotRepo,
		hierarchy:   hierarchy,
		notifier:    notifier,
		nowFn:       time.Now,
	}
}

// CreateLotInput alta directa de un lote.
type CreateLotInput struct {
	VaccineID  string
	Owner      entity.OwnerRef
	Quantity   decimal.Decimal
	Expiration time.Time
	Actor      string
}

// CreateLot crea un lote por adición directa. Solo el nivel NACIONAL recibe
// stock sin traslado (los demás niveles se abastecen por Open/Confirm).
// Acredita el acumulado en la misma transacción.
func (uc *LedgerUseCase) CreateLot(ctx context.Context, input CreateLotInput) (*entity.Lot, error) {
	if err := stockdom.ValidateQuantity(input.Quantity); err != nil {
		return nil, err
	}
	if !input.Owner.IsValid() || input.Owner.Type != entity.OwnerNational {
		return nil, domain.ErrInvalidInput
	}
	now := uc.nowFn()
	if pastDate(input.Expiration, now) {
		return nil, domain.ErrInvalidExpiration
	}
	if err := uc.requireVaccine(ctx, input.VaccineID); err != nil {
		return nil, err
	}

	lot := &entity.Lot{
		ID:                uuid.New().String(),
		VaccineID:         input.VaccineID,
		Owner:             input.Owner,
		Quantity:          input.Quantity,
		RemainingQuantity: input.Quantity,
		Expiration:        input.Expiration,
		Status:            entity.LotStatusValid,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err := uc.txRunner.Run(ctx, func(
		lotRepo repository.LotRepository,
		levelRepo repository.StockLevelRepository,
		_ repository.TransferRepository,
		_ repository.ReservationRepository,
	) error {
		if err := lotRepo.Create(ctx, lot); err != nil {
			return err
		}
		return creditLevel(ctx, levelRepo, input.VaccineID, input.Owner, input.Quantity, now)
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Notify(Event{
		Action:    ActionLotCreated,
		VaccineID: input.VaccineID,
		Owner:     input.Owner,
		Quantity:  input.Quantity,
		Actor:     input.Actor,
		At:        now,
	})
	return lot, nil
}

// LotListResult lotes de un par (vacuna, nodo) más el remanente usable total.
type LotListResult struct {
	Lots           []*entity.Lot
	TotalRemaining decimal.Decimal
}

// ListLots lista los lotes de un (vacuna, nodo) por vencimiento ascendente.
// Corre el barrido de vencidos antes de leer para no mostrar VALID obsoletos.
func (uc *LedgerUseCase) ListLots(ctx context.Context, vaccineID string, owner entity.OwnerRef) (*LotListResult, error) {
	if !owner.IsValid() {
		return nil, domain.ErrInvalidInput
	}
	if err := uc.requireVaccine(ctx, vaccineID); err != nil {
		return nil, err
	}
	if err := uc.requireOwner(ctx, owner); err != nil {
		return nil, err
	}
	if _, err := uc.SweepExpired(ctx); err != nil {
		return nil, err
	}

	now := uc.nowFn()
	lots, err := uc.lotRepo.ListByOwner(ctx, vaccineID, owner)
	if err != nil {
		return nil, err
	}
	return &LotListResult{
		Lots:           lots,
		TotalRemaining: stockdom.UsableTotal(lots, now),
	}, nil
}

// DeleteLotResult ids de todos los registros eliminados, para auditoría.
type DeleteLotResult struct {
	LotID               string
	AffectedTransferIDs []string // traslados terminales cuyas líneas se eliminaron
}

// DeleteLot baja administrativa de un lote. Se bloquea con ErrLotReferenced si
// algún traslado PENDING tiene una línea sobre el lote (decisión documentada en
// DESIGN.md: nunca dejar una línea apuntando a un lote inexistente). Las líneas
// de traslados ya terminales se eliminan junto con el lote. El acumulado se
// decrementa solo si el lote era VALID con remanente > 0.
func (uc *LedgerUseCase) DeleteLot(ctx context.Context, lotID, actor string) (*DeleteLotResult, error) {
	now := uc.nowFn()
	result := &DeleteLotResult{LotID: lotID}
	var vaccineID string
	var owner entity.OwnerRef
	var removed decimal.Decimal

	err := uc.txRunner.Run(ctx, func(
		lotRepo repository.LotRepository,
		levelRepo repository.StockLevelRepository,
		transferRepo repository.TransferRepository,
		_ repository.ReservationRepository,
	) error {
		lot, err := lotRepo.GetForUpdate(ctx, lotID)
		if err != nil {
			return err
		}
		if lot == nil {
			return domain.ErrLotNotFound
		}
		pending, err := transferRepo.HasPendingLineForLot(ctx, lotID)
		if err != nil {
			return err
		}
		if pending {
			return domain.ErrLotReferenced
		}

		affected, err := transferRepo.DeleteLinesByLot(ctx, lotID)
		if err != nil {
			return err
		}
		result.AffectedTransferIDs = affected

		if lot.Status == entity.LotStatusValid && lot.RemainingQuantity.GreaterThan(decimal.Zero) {
			if err := creditLevel(ctx, levelRepo, lot.VaccineID, lot.Owner, lot.RemainingQuantity.Neg(), now); err != nil {
				return err
			}
			removed = lot.RemainingQuantity
		}
		vaccineID = lot.VaccineID
		owner = lot.Owner
		return lotRepo.Delete(ctx, lotID)
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Notify(Event{
		Action:    ActionLotDeleted,
		VaccineID: vaccineID,
		Owner:     owner,
		Quantity:  removed,
		Actor:     actor,
		At:        now,
	})
	return result, nil
}

// ReduceInput reducción directa de stock en el propio nivel.
type ReduceInput struct {
	VaccineID string
	Owner     entity.OwnerRef
	Quantity  decimal.Decimal
	Actor     string
}

// Reduce da de baja cantidad contra los lotes del propio nivel (merma,
// administración local sin reserva previa). No crea traslado: el desglose de
// la asignación se descarta y solo persiste la mutación de lotes y acumulado.
func (uc *LedgerUseCase) Reduce(ctx context.Context, input ReduceInput) error {
	if err := stockdom.ValidateQuantity(input.Quantity); err != nil {
		return err
	}
	if !input.Owner.IsValid() {
		return domain.ErrInvalidInput
	}
	if err := uc.requireVaccine(ctx, input.VaccineID); err != nil {
		return err
	}
	if err := uc.requireOwner(ctx, input.Owner); err != nil {
		return err
	}

	now := uc.nowFn()
	err := uc.txRunner.Run(ctx, func(
		lotRepo repository.LotRepository,
		levelRepo repository.StockLevelRepository,
		_ repository.TransferRepository,
		_ repository.ReservationRepository,
	) error {
		_, err := allocate(ctx, lotRepo, levelRepo, input.VaccineID, input.Owner, input.Quantity, now)
		return err
	})
	if err != nil {
		return err
	}

	uc.notifier.Notify(Event{
		Action:    ActionStockReduced,
		VaccineID: input.VaccineID,
		Owner:     input.Owner,
		Quantity:  input.Quantity,
		Actor:     input.Actor,
		At:        now,
	})
	return nil
}

// SweepExpired pasa a EXPIRED los lotes VALID ya vencidos y debita su remanente
// del acumulado correspondiente, en una transacción. Lo invocan las lecturas y
// el ticker de fondo de cmd/api; devuelve cuántos lotes cambiaron de estado.
func (uc *LedgerUseCase) SweepExpired(ctx context.Context) (int64, error) {
	now := uc.nowFn()
	var count int64
	err := uc.txRunner.Run(ctx, func(
		lotRepo repository.LotRepository,
		levelRepo repository.StockLevelRepository,
		_ repository.TransferRepository,
		_ repository.ReservationRepository,
	) error {
		expired, err := lotRepo.MarkExpired(ctx, now)
		if err != nil {
			return err
		}
		count = int64(len(expired))
		for _, e := range expired {
			if e.Remaining.IsZero() {
				continue
			}
			if err := creditLevel(ctx, levelRepo, e.VaccineID, e.Owner, e.Remaining.Neg(), now); err != nil {
				return err
			}
		}
		return nil
	})
	return count, err
}

func (uc *LedgerUseCase) requireVaccine(ctx context.Context, vaccineID string) error {
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

func (uc *LedgerUseCase) requireOwner(ctx context.Context, owner entity.OwnerRef) error {
	ok, err := uc.hierarchy.Exists(ctx, owner)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrOwnerNotFound
	}
	return nil
}

// pastDate compara solo la fecha (un lote que vence hoy todavía se acepta).
func pastDate(expiration, now time.Time) bool {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	ey, em, ed := expiration.Date()
	exp := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return exp.Before(today)
}
