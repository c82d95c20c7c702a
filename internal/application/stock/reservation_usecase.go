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

// ReservationUseCase aparta dosis de los lotes de un centro de salud contra una
// vacunación agendada. El débito ocurre al reservar; consumir no toca el ledger
// y cancelar reacredita, espejo de la cancelación de traslados.
type ReservationUseCase struct {
	txRunner        TxRunner
	vaccineRepo     repository.VaccineRepository
	reservationRepo repository.ReservationRepository // lecturas fuera de transacción
	hierarchy       HierarchyResolver
	notifier        Notifier
	nowFn           func() time.Time
}

// NewReservationUseCase construye el caso de uso.
func NewReservationUseCase(
	txRunner TxRunner,
	vaccineRepo repository.VaccineRepository,
	reservationRepo repository.ReservationRepository,
	hierarchy HierarchyResolver,
	notifier Notifier,
) *ReservationUseCase {
	return &ReservationUseCase{
		txRunner:        txRunner,
		vaccineRepo:     vaccineRepo,
		reservationRepo: reservationRepo,
		hierarchy:       hierarchy,
		notifier:        notifier,
		nowFn:           time.Now,
	}
}

// ReserveInput reserva de dosis para una agenda.
type ReserveInput struct {
	ScheduleID     string
	HealthCenterID string
	VaccineID      string
	Quantity       decimal.Decimal // cero = una dosis
	Actor          string
}

// Reserve asigna la cantidad (normalmente una dosis) contra los lotes del
// centro de salud y persiste la reserva ACTIVE con sus líneas de lote, todo en
// una transacción. ErrInsufficientStock si el centro no puede cubrirla.
func (uc *ReservationUseCase) Reserve(ctx context.Context, input ReserveInput) (*entity.Reservation, error) {
	if input.ScheduleID == "" || input.HealthCenterID == "" {
		return nil, domain.ErrInvalidInput
	}
	qty := input.Quantity
	if qty.IsZero() {
		qty = decimal.NewFromInt(1)
	}
	if err := stockdom.ValidateQuantity(qty); err != nil {
		return nil, err
	}
	owner := entity.OwnerRef{Type: entity.OwnerHealthCenter, ID: input.HealthCenterID}
	if err := uc.requireVaccine(ctx, input.VaccineID); err != nil {
		return nil, err
	}
	if err := uc.requireOwner(ctx, owner); err != nil {
		return nil, err
	}

	now := uc.nowFn()
	reservation := &entity.Reservation{
		ID:         uuid.New().String(),
		ScheduleID: input.ScheduleID,
		VaccineID:  input.VaccineID,
		Owner:      owner,
		Quantity:   qty,
		Status:     entity.ReservationStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := uc.txRunner.Run(ctx, func(
		lotRepo repository.LotRepository,
		levelRepo repository.StockLevelRepository,
		_ repository.TransferRepository,
		reservationRepo repository.ReservationRepository,
	) error {
		draws, err := allocate(ctx, lotRepo, levelRepo, input.VaccineID, owner, qty, now)
		if err != nil {
			return err
		}
		for _, d := range draws {
			reservation.Lines = append(reservation.Lines, entity.ReservationLotLine{
				ReservationID: reservation.ID,
				LotID:         d.LotID,
				QuantityDrawn: d.QuantityDrawn,
			})
		}
		return reservationRepo.Create(ctx, reservation)
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Notify(Event{
		Action:    ActionReservationCreated,
		VaccineID: input.VaccineID,
		Owner:     owner,
		Quantity:  qty,
		Actor:     input.Actor,
		At:        now,
	})
	return reservation, nil
}

// Consume marca la reserva como CONSUMED cuando la dosis fue administrada.
// Sin mutación del ledger: el débito ya ocurrió al reservar.
func (uc *ReservationUseCase) Consume(ctx context.Context, reservationID string) (*entity.Reservation, error) {
	var consumed *entity.Reservation
	now := uc.nowFn()

	err := uc.txRunner.Run(ctx, func(
		_ repository.LotRepository,
		_ repository.StockLevelRepository,
		_ repository.TransferRepository,
		reservationRepo repository.ReservationRepository,
	) error {
		reservation, err := reservationRepo.GetForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}
		if reservation == nil {
			return domain.ErrNotFound
		}
		if reservation.Status != entity.ReservationStatusActive {
			return domain.ErrReservationNotActive
		}
		if err := reservationRepo.UpdateStatus(ctx, reservationID, entity.ReservationStatusConsumed); err != nil {
			return err
		}
		reservation.Status = entity.ReservationStatusConsumed
		reservation.UpdatedAt = now
		consumed = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return consumed, nil
}

// Cancel reacredita los lotes extraídos y el acumulado del centro, y marca la
// reserva CANCELLED. Falla con ErrReservationNotActive si ya es terminal.
func (uc *ReservationUseCase) Cancel(ctx context.Context, reservationID, actor string) (*entity.Reservation, error) {
	var cancelled *entity.Reservation
	now := uc.nowFn()

	err := uc.txRunner.Run(ctx, func(
		lotRepo repository.LotRepository,
		levelRepo repository.StockLevelRepository,
		_ repository.TransferRepository,
		reservationRepo repository.ReservationRepository,
	) error {
		reservation, err := reservationRepo.GetForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}
		if reservation == nil {
			return domain.ErrNotFound
		}
		if reservation.Status != entity.ReservationStatusActive {
			return domain.ErrReservationNotActive
		}

		lotIDs := make([]string, len(reservation.Lines))
		amounts := make([]decimal.Decimal, len(reservation.Lines))
		for i, line := range reservation.Lines {
			lotIDs[i] = line.LotID
			amounts[i] = line.QuantityDrawn
		}
		if err := restoreDraws(ctx, lotRepo, levelRepo, reservation.VaccineID, reservation.Owner, lotIDs, amounts, now); err != nil {
			return err
		}
		if err := reservationRepo.UpdateStatus(ctx, reservationID, entity.ReservationStatusCancelled); err != nil {
			return err
		}
		reservation.Status = entity.ReservationStatusCancelled
		reservation.UpdatedAt = now
		cancelled = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Notify(Event{
		Action:    ActionReservationCancelled,
		VaccineID: cancelled.VaccineID,
		Owner:     cancelled.Owner,
		Quantity:  cancelled.Quantity,
		Actor:     actor,
		At:        now,
	})
	return cancelled, nil
}

// ListActive reservas ACTIVE de un centro de salud (auditoría/UI).
func (uc *ReservationUseCase) ListActive(ctx context.Context, healthCenterID string, limit, offset int) ([]*entity.Reservation, error) {
	if healthCenterID == "" {
		return nil, domain.ErrInvalidInput
	}
	owner := entity.OwnerRef{Type: entity.OwnerHealthCenter, ID: healthCenterID}
	return uc.reservationRepo.ListActiveByOwner(ctx, owner, limit, offset)
}

func (uc *ReservationUseCase) requireVaccine(ctx context.Context, vaccineID string) error {
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

func (uc *ReservationUseCase) requireOwner(ctx context.Context, owner entity.OwnerRef) error {
	ok, err := uc.hierarchy.Exists(ctx, owner)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrOwnerNotFound
	}
	return nil
}
