package stock

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcastillo/vacunastock-api/internal/domain"
	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
	"github.com/jcastillo/vacunastock-api/internal/infrastructure/memory"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

const (
	vacBCG  = "vac-bcg"
	vacPol  = "vac-polio"
	region1 = "reg-1"
	distr1  = "dis-1"
	center1 = "hc-1"
)

type env struct {
	store        *memory.Store
	ledger       *LedgerUseCase
	transfers    *TransferUseCase
	reservations *ReservationUseCase
	stats        *StatsUseCase
	purge        *PurgeUseCase
}

// newEnv arma el grafo de casos de uso sobre el almacén en memoria, con una
// jerarquía mínima (NATIONAL → reg-1 → dis-1 → hc-1) y dos vacunas, y congela
// el reloj en testNow.
func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.NewStore()
	store.AddRegion(region1)
	store.AddDistrict(distr1, region1)
	store.AddHealthCenter(center1, distr1)

	ctx := context.Background()
	for _, id := range []string{vacBCG, vacPol} {
		require.NoError(t, store.Vaccines().Create(ctx, &entity.Vaccine{
			ID: id, Name: id, DosesRequired: 2, CreatedAt: testNow,
		}))
	}

	e := &env{
		store:        store,
		ledger:       NewLedgerUseCase(store, store.Vaccines(), store.Lots(), store, NopNotifier{}),
		transfers:    NewTransferUseCase(store, store.Vaccines(), store.Transfers(), store, NopNotifier{}),
		reservations: NewReservationUseCase(store, store.Vaccines(), store.Reservations(), store, NopNotifier{}),
		stats:        NewStatsUseCase(store.Vaccines(), store.Lots(), store, 10),
		purge:        NewPurgeUseCase(store, NopNotifier{}),
	}
	clock := func() time.Time { return testNow }
	e.ledger.nowFn = clock
	e.transfers.nowFn = clock
	e.reservations.nowFn = clock
	e.stats.nowFn = clock
	e.purge.nowFn = clock
	return e
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// seedLot inyecta un lote ya acreditado en el acumulado de su par, para armar
// escenarios en niveles que normalmente se abastecen por traslado.
func seedLot(t *testing.T, e *env, vaccineID string, owner entity.OwnerRef, quantity int64, expiration string) string {
	t.Helper()
	ctx := context.Background()
	id := uuid.New().String()
	require.NoError(t, e.store.Lots().Create(ctx, &entity.Lot{
		ID:                id,
		VaccineID:         vaccineID,
		Owner:             owner,
		Quantity:          qty(quantity),
		RemainingQuantity: qty(quantity),
		Expiration:        day(expiration),
		Status:            entity.LotStatusValid,
		CreatedAt:         testNow,
		UpdatedAt:         testNow,
	}))
	level, err := e.store.Levels().Get(ctx, vaccineID, owner)
	require.NoError(t, err)
	level.Quantity = level.Quantity.Add(qty(quantity))
	require.NoError(t, e.store.Levels().Upsert(ctx, level))
	return id
}

// assertAggregateConsistent verifica el invariante central: el acumulado del
// par es exactamente la suma de remanentes de sus lotes VALID.
func assertAggregateConsistent(t *testing.T, e *env, vaccineID string, owner entity.OwnerRef) {
	t.Helper()
	ctx := context.Background()
	lots, err := e.store.Lots().ListByOwner(ctx, vaccineID, owner)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, l := range lots {
		if l.Status == entity.LotStatusValid {
			sum = sum.Add(l.RemainingQuantity)
		}
	}
	level, err := e.store.Levels().Get(ctx, vaccineID, owner)
	require.NoError(t, err)
	assert.True(t, level.Quantity.Equal(sum),
		"acumulado %s != suma de lotes VALID %s para %s en %v", level.Quantity, sum, vaccineID, owner)
}

func assertLevel(t *testing.T, e *env, vaccineID string, owner entity.OwnerRef, expected int64) {
	t.Helper()
	level, err := e.store.Levels().Get(context.Background(), vaccineID, owner)
	require.NoError(t, err)
	assert.True(t, level.Quantity.Equal(qty(expected)),
		"acumulado esperado %d, quedó %s", expected, level.Quantity)
}

// ── Lot Ledger ───────────────────────────────────────────────────────────────

func TestCreateLotCreditsAggregate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	lot, err := e.ledger.CreateLot(ctx, CreateLotInput{
		VaccineID:  vacBCG,
		Owner:      entity.NationalOwner(),
		Quantity:   qty(100),
		Expiration: day("2026-01-01"),
		Actor:      "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.LotStatusValid, lot.Status)
	assert.True(t, lot.RemainingQuantity.Equal(qty(100)))

	assertLevel(t, e, vacBCG, entity.NationalOwner(), 100)
	assertAggregateConsistent(t, e, vacBCG, entity.NationalOwner())
}

func TestCreateLotValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.ledger.CreateLot(ctx, CreateLotInput{
		VaccineID: vacBCG, Owner: entity.NationalOwner(), Quantity: qty(0), Expiration: day("2026-01-01"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = e.ledger.CreateLot(ctx, CreateLotInput{
		VaccineID: vacBCG, Owner: entity.NationalOwner(), Quantity: qty(10), Expiration: day("2024-12-31"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidExpiration)

	// Alta directa solo a nivel NACIONAL; el resto se abastece por traslado.
	_, err = e.ledger.CreateLot(ctx, CreateLotInput{
		VaccineID: vacBCG,
		Owner:     entity.OwnerRef{Type: entity.OwnerRegional, ID: region1},
		Quantity:  qty(10), Expiration: day("2026-01-01"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.ledger.CreateLot(ctx, CreateLotInput{
		VaccineID: "vac-inexistente", Owner: entity.NationalOwner(), Quantity: qty(10), Expiration: day("2026-01-01"),
	})
	assert.ErrorIs(t, err, domain.ErrVaccineNotFound)
}

func TestCreateLotExpiringTodayIsAccepted(t *testing.T) {
	e := newEnv(t)
	_, err := e.ledger.CreateLot(context.Background(), CreateLotInput{
		VaccineID: vacBCG, Owner: entity.NationalOwner(), Quantity: qty(5), Expiration: day("2025-03-10"),
	})
	assert.NoError(t, err)
}

func TestReduceDrawsEarliestExpirationFirst(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	national := entity.NationalOwner()
	early := seedLot(t, e, vacBCG, national, 50, "2025-06-01")
	late := seedLot(t, e, vacBCG, national, 50, "2026-01-01")

	err := e.ledger.Reduce(ctx, ReduceInput{VaccineID: vacBCG, Owner: national, Quantity: qty(70)})
	require.NoError(t, err)

	first, _ := e.store.Lots().GetByID(ctx, early)
	second, _ := e.store.Lots().GetByID(ctx, late)
	assert.Equal(t, entity.LotStatusDepleted, first.Status)
	assert.True(t, first.RemainingQuantity.IsZero())
	assert.Equal(t, entity.LotStatusValid, second.Status)
	assert.True(t, second.RemainingQuantity.Equal(qty(30)))

	assertLevel(t, e, vacBCG, national, 30)
	assertAggregateConsistent(t, e, vacBCG, national)
}

func TestReduceInsufficientStockIsAllOrNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	national := entity.NationalOwner()
	seedLot(t, e, vacBCG, national, 10, "2025-06-01")
	seedLot(t, e, vacBCG, national, 15, "2026-01-01")

	err := e.ledger.Reduce(ctx, ReduceInput{VaccineID: vacBCG, Owner: national, Quantity: qty(26)})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// Ningún lote mutado, acumulado intacto.
	res, err := e.ledger.ListLots(ctx, vacBCG, national)
	require.NoError(t, err)
	assert.True(t, res.TotalRemaining.Equal(qty(25)))
	assertLevel(t, e, vacBCG, national, 25)
	assertAggregateConsistent(t, e, vacBCG, national)
}

func TestListLotsSortedWithTotal(t *testing.T) {
	e := newEnv(t)
	national := entity.NationalOwner()
	seedLot(t, e, vacBCG, national, 20, "2026-05-01")
	seedLot(t, e, vacBCG, national, 30, "2025-12-01")

	res, err := e.ledger.ListLots(context.Background(), vacBCG, national)
	require.NoError(t, err)
	require.Len(t, res.Lots, 2)
	assert.Equal(t, day("2025-12-01"), res.Lots[0].Expiration)
	assert.True(t, res.TotalRemaining.Equal(qty(50)))
}

func TestDeleteLotNotFound(t *testing.T) {
	e := newEnv(t)
	_, err := e.ledger.DeleteLot(context.Background(), "lote-fantasma", "admin")
	assert.ErrorIs(t, err, domain.ErrLotNotFound)
}

func TestDeleteLotBlockedByPendingTransfer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	national := entity.NationalOwner()
	lotID := seedLot(t, e, vacBCG, national, 100, "2026-01-01")

	_, err := e.transfers.Open(ctx, OpenTransferInput{
		VaccineID: vacBCG,
		From:      national,
		To:        entity.OwnerRef{Type: entity.OwnerRegional, ID: region1},
		Quantity:  qty(30),
	})
	require.NoError(t, err)

	_, err = e.ledger.DeleteLot(ctx, lotID, "admin")
	assert.ErrorIs(t, err, domain.ErrLotReferenced)
}

func TestDeleteLotRemovesHistoricalLinesAndDebitsAggregate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	national := entity.NationalOwner()
	lotID := seedLot(t, e, vacBCG, national, 100, "2026-01-01")

	transfer, err := e.transfers.Open(ctx, OpenTransferInput{
		VaccineID: vacBCG,
		From:      national,
		To:        entity.OwnerRef{Type: entity.OwnerRegional, ID: region1},
		Quantity:  qty(30),
	})
	require.NoError(t, err)
	_, err = e.transfers.Confirm(ctx, transfer.ID, "admin")
	require.NoError(t, err)

	result, err := e.ledger.DeleteLot(ctx, lotID, "admin")
	require.NoError(t, err)
	assert.Equal(t, lotID, result.LotID)
	assert.Equal(t, []string{transfer.ID}, result.AffectedTransferIDs)

	// El lote tenía 70 remanentes VALID: el acumulado baja de 70 a 0.
	assertLevel(t, e, vacBCG, national, 0)
	assertAggregateConsistent(t, e, vacBCG, national)

	kept, err := e.store.Transfers().GetByID(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Empty(t, kept.Lines, "ninguna línea debe apuntar a un lote eliminado")
}

func TestSweepExpiredDebitsAggregate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	national := entity.NationalOwner()
	expired := seedLot(t, e, vacBCG, national, 40, "2025-03-01") // ya vencido en testNow
	seedLot(t, e, vacBCG, national, 60, "2026-01-01")

	count, err := e.ledger.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	swept, _ := e.store.Lots().GetByID(ctx, expired)
	assert.Equal(t, entity.LotStatusExpired, swept.Status)
	assert.True(t, swept.RemainingQuantity.Equal(qty(40)), "el remanente del vencido se conserva")

	assertLevel(t, e, vacBCG, national, 60)
	assertAggregateConsistent(t, e, vacBCG, national)

	// Idempotente: un segundo barrido no vuelve a debitar.
	count, err = e.ledger.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assertLevel(t, e, vacBCG, national, 60)
}

// ── Transfer Coordinator ─────────────────────────────────────────────────────

func TestOpenTransferDebitsSourceImmediately(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	national := entity.NationalOwner()
	regional := entity.OwnerRef{Type: entity.OwnerRegional, ID: region1}
	seedLot(t, e, vacBCG, national, 100, "2026-01-01")

	transfer, err := e.transfers.Open(ctx, OpenTransferInput{
		VaccineID: vacBCG, From: national, To: regional, Quantity: qty(30),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusPending, transfer.Status)
	require.Len(t, transfer.Lines, 1)
	assert.True(t, transfer.Lines[0].QuantityDrawn.Equal(qty(30)))

	// El origen queda debitado en el acto; el destino no recibe nada aún.
	assertLevel(t, e, vacBCG, national, 70)
	assertLevel(t, e, vacBCG, regional, 0)
	assertAggregateConsistent(t, e, vacBCG, national)
}

func TestOpenTransferInsufficientStockPersistsNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	national := entity.NationalOwner()
	regional := entity.OwnerRef{Type: entity.OwnerRegional, ID: region1}
	seedLot(t, e, vacBCG, national, 20, "2026-01-01")

	_, err := e.transfers.Open(ctx, OpenTransferInput{
		VaccineID: vacBCG, From: national, To: regional, Quantity: qty(500),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	pending, err := e.transfers.List(ctx, regional, 20, 0)
	require.NoError(t, err)
	assert.Empty(t, pending, "no debe quedar traslado persistido")
	assertLevel(t, e, vacBCG, national, 20)
}

func TestOpenTransferInvalidEdges(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	national := entity.NationalOwner()
	seedLot(t, e, vacBCG, national, 100, "2026-01-01")

	// Saltarse un nivel no está permitido.
	_, err := e.transfers.Open(ctx, OpenTransferInput{
		VaccineID: vacBCG,
		From:      national,
		To:        entity.OwnerRef{Type: entity.OwnerDistrict, ID: distr1},
		Quantity:  qty(10),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidHierarchyEdge)

	// Niveles adyacentes pero padre equivocado.
	e.store.AddRegion("reg-2")
	e.store.AddDistrict("dis-en-reg-2", "reg-2")
	_, err = e.transfers.Open(ctx, OpenTransferInput{
		VaccineID: vacBCG,
		From:      entity.OwnerRef{Type: entity.OwnerRegional, ID: region1},
		To:        entity.OwnerRef{Type: entity.OwnerDistrict, ID: "dis-en-reg-2"},
		Quantity:  qty(10),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidHierarchyEdge)

	// Destino inexistente.
	_, err = e.transfers.Open(ctx, OpenTransferInput{
		VaccineID: vacBCG,
		From:      national,
		To:        entity.OwnerRef{Type: entity.OwnerRegional, ID: "reg-fantasma"},
		Quantity:  qty(10),
	})
	assert.ErrorIs(t, err, domain.ErrOwnerNotFound)
}

func TestConfirmTransferClonesExpirations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	national := entity.NationalOwner()
	regional := entity.OwnerRef{Type: entity.OwnerRegional, ID: region1}
	seedLot(t, e, vacBCG, national, 50, "2025-06-01")
	seedLot(t, e, vacBCG, national, 50, "2026-01-01")

	transfer, err := e.transfers.Open(ctx, OpenTransferInput{
		VaccineID: vacBCG, From: national, To: regional, Quantity: qty(70),
	})
	require.NoError(t, err)

	result, err := e.transfers.Confirm(ctx, transfer.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusConfirmed, result.Transfer.Status)
	require.Len(t, result.CreatedLots, 2)

	// El vencimiento viaja con el lote: 50 del que vence antes, 20 del otro.
	assert.Equal(t, day("2025-06-01"), result.CreatedLots[0].Expiration)
	assert.True(t, result.CreatedLots[0].Quantity.Equal(qty(50)))
	assert.Equal(t, day("2026-01-01"), result.CreatedLots[1].Expiration)
	assert.True(t, result.CreatedLots[1].Quantity.Equal(qty(20)))

	assertLevel(t, e, vacBCG, regional, 70)
	assertLevel(t, e, vacBCG, national, 30)
	assertAggregateConsistent(t, e, vacBCG, regional)
	assertAggregateConsistent(t, e, vacBCG, national)
}

func TestConfirmTwiceFailsWithoutMutation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	national := entity.NationalOwner()
	regional := entity.OwnerRef{Type: entity.OwnerRegional, ID: region1}
	seedLot(t, e, vacBCG, national, 100, "2026-01-01")

	transfer, err := e.transfers.Open(ctx, OpenTransferInput{
		VaccineID: vacBCG, From: national, To: regional, Quantity: qty(30),
	})
	require.NoError(t, err)
	_, err = e.transfers.Confirm(ctx, transfer.ID, "admin")
	require.NoError(t, err)

	_, err = e.transfers.Confirm(ctx, transfer.ID, "admin")
	assert.ErrorIs(t, err, domain.ErrTransferNotPending)

	// El segundo intento no cambió el ledger.
	assertLevel(t, e, vacBCG, regional, 30)
	assertLevel(t, e, vacBCG, national, 70)
}

func TestCancelTransferRestoresSourceState(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	national := entity.NationalOwner()
	regional := entity.OwnerRef{Type: entity.OwnerRegional, ID: region1}
	early := seedLot(t, e, vacBCG, national, 50, "2025-06-01")
	late := seedLot(t, e, vacBCG, national, 50, "2026-01-01")

	transfer, err := e.transfers.Open(ctx, OpenTransferInput{
		VaccineID: vacBCG, From: national, To: regional, Quantity: qty(70),
	})
	require.NoError(t, err)
	assertLevel(t, e, vacBCG, national, 30)

	cancelled, err := e.transfers.Cancel(ctx, transfer.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusCancelled, cancelled.Status)

	// Estado previo a la apertura: mismos remanentes por lote, DEPLETED revivido.
	first, _ := e.store.Lots().GetByID(ctx, early)
	second, _ := e.store.Lots().GetByID(ctx, late)
	assert.Equal(t, entity.LotStatusValid, first.Status)
	assert.True(t, first.RemainingQuantity.Equal(qty(50)))
	assert.True(t, second.RemainingQuantity.Equal(qty(50)))
	assertLevel(t, e, vacBCG, national, 100)
	assertAggregateConsistent(t, e, vacBCG, national)

	_, err = e.transfers.Cancel(ctx, transfer.ID, "admin")
	assert.ErrorIs(t, err, domain.ErrTransferNotPending)
}

func TestOpenCancelReopenYieldsSameDraw(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	national := entity.NationalOwner()
	regional := entity.OwnerRef{Type: entity.OwnerRegional, ID: region1}
	seedLot(t, e, vacBCG, national, 50, "2025-06-01")
	seedLot(t, e, vacBCG, national, 50, "2026-01-01")

	input := OpenTransferInput{VaccineID: vacBCG, From: national, To: regional, Quantity: qty(70)}

	first, err := e.transfers.Open(ctx, input)
	require.NoError(t, err)
	_, err = e.transfers.Cancel(ctx, first.ID, "admin")
	require.NoError(t, err)

	second, err := e.transfers.Open(ctx, input)
	require.NoError(t, err)

	require.Len(t, second.Lines, len(first.Lines))
	for i := range first.Lines {
		assert.Equal(t, first.Lines[i].LotID, second.Lines[i].LotID)
		assert.True(t, first.Lines[i].QuantityDrawn.Equal(second.Lines[i].QuantityDrawn))
	}
}

func TestListTransfersMostRecentFirst(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	national := entity.NationalOwner()
	regional := entity.OwnerRef{Type: entity.OwnerRegional, ID: region1}
	seedLot(t, e, vacBCG, national, 100, "2026-01-01")

	t1, err := e.transfers.Open(ctx, OpenTransferInput{VaccineID: vacBCG, From: national, To: regional, Quantity: qty(10)})
	require.NoError(t, err)
	t2, err := e.transfers.Open(ctx, OpenTransferInput{VaccineID: vacBCG, From: national, To: regional, Quantity: qty(20)})
	require.NoError(t, err)

	list, err := e.transfers.List(ctx, regional, 20, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, t2.ID, list[0].ID)
	assert.Equal(t, t1.ID, list[1].ID)
}

// ── Reservation Manager ──────────────────────────────────────────────────────

func TestReserveDefaultsToOneDose(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	center := entity.OwnerRef{Type: entity.OwnerHealthCenter, ID: center1}
	seedLot(t, e, vacBCG, center, 10, "2026-01-01")

	reservation, err := e.reservations.Reserve(ctx, ReserveInput{
		ScheduleID:     "agenda-1",
		HealthCenterID: center1,
		VaccineID:      vacBCG,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationStatusActive, reservation.Status)
	assert.True(t, reservation.Quantity.Equal(qty(1)))
	require.Len(t, reservation.Lines, 1)

	// El débito ocurre al reservar.
	assertLevel(t, e, vacBCG, center, 9)
	assertAggregateConsistent(t, e, vacBCG, center)
}

func TestReserveInsufficientStock(t *testing.T) {
	e := newEnv(t)
	_, err := e.reservations.Reserve(context.Background(), ReserveInput{
		ScheduleID:     "agenda-1",
		HealthCenterID: center1,
		VaccineID:      vacBCG,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestConsumeReservationLeavesLedgerUntouched(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	center := entity.OwnerRef{Type: entity.OwnerHealthCenter, ID: center1}
	seedLot(t, e, vacBCG, center, 10, "2026-01-01")

	reservation, err := e.reservations.Reserve(ctx, ReserveInput{
		ScheduleID: "agenda-1", HealthCenterID: center1, VaccineID: vacBCG,
	})
	require.NoError(t, err)

	consumed, err := e.reservations.Consume(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationStatusConsumed, consumed.Status)
	assertLevel(t, e, vacBCG, center, 9)

	// Terminal: ni consumir ni cancelar de nuevo.
	_, err = e.reservations.Consume(ctx, reservation.ID)
	assert.ErrorIs(t, err, domain.ErrReservationNotActive)
	_, err = e.reservations.Cancel(ctx, reservation.ID, "enfermera")
	assert.ErrorIs(t, err, domain.ErrReservationNotActive)
}

func TestCancelReservationRestoresStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	center := entity.OwnerRef{Type: entity.OwnerHealthCenter, ID: center1}
	lotID := seedLot(t, e, vacBCG, center, 1, "2026-01-01")

	reservation, err := e.reservations.Reserve(ctx, ReserveInput{
		ScheduleID: "agenda-1", HealthCenterID: center1, VaccineID: vacBCG,
	})
	require.NoError(t, err)

	// El único lote quedó agotado por la reserva.
	lot, _ := e.store.Lots().GetByID(ctx, lotID)
	assert.Equal(t, entity.LotStatusDepleted, lot.Status)

	_, err = e.reservations.Cancel(ctx, reservation.ID, "enfermera")
	require.NoError(t, err)

	lot, _ = e.store.Lots().GetByID(ctx, lotID)
	assert.Equal(t, entity.LotStatusValid, lot.Status)
	assert.True(t, lot.RemainingQuantity.Equal(qty(1)))
	assertLevel(t, e, vacBCG, center, 1)
	assertAggregateConsistent(t, e, vacBCG, center)
}

func TestListActiveReservations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	center := entity.OwnerRef{Type: entity.OwnerHealthCenter, ID: center1}
	seedLot(t, e, vacBCG, center, 10, "2026-01-01")

	r1, err := e.reservations.Reserve(ctx, ReserveInput{ScheduleID: "a1", HealthCenterID: center1, VaccineID: vacBCG})
	require.NoError(t, err)
	r2, err := e.reservations.Reserve(ctx, ReserveInput{ScheduleID: "a2", HealthCenterID: center1, VaccineID: vacBCG})
	require.NoError(t, err)
	_, err = e.reservations.Consume(ctx, r1.ID)
	require.NoError(t, err)

	active, err := e.reservations.ListActive(ctx, center1, 20, 0)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, r2.ID, active[0].ID)
}

// ── Stats ────────────────────────────────────────────────────────────────────

func TestStatsPerVaccine(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	national := entity.NationalOwner()
	seedLot(t, e, vacBCG, national, 5, "2026-01-01")
	seedLot(t, e, vacBCG, national, 40, "2025-03-01") // vencido en testNow

	res, err := e.stats.Stats(ctx, StatsInput{VaccineID: vacBCG, Owner: national})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalLots)
	assert.True(t, res.TotalQuantity.Equal(qty(5)))
	assert.Equal(t, 1, res.ExpiredLots)
	assert.Equal(t, 1, res.LowStockCount, "5 < umbral por defecto 10")
	assert.Equal(t, int64(10), res.Threshold)
}

func TestStatsAcrossVaccinesWithCustomThreshold(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	national := entity.NationalOwner()
	seedLot(t, e, vacBCG, national, 5, "2026-01-01")
	seedLot(t, e, vacPol, national, 80, "2026-01-01")

	threshold := int64(50)
	res, err := e.stats.Stats(ctx, StatsInput{Owner: national, Threshold: &threshold})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalLots)
	assert.True(t, res.TotalQuantity.Equal(qty(85)))
	assert.Equal(t, 1, res.LowStockCount, "solo BCG está bajo 50")
	assert.Equal(t, int64(50), res.Threshold)
}

func TestStatsUnknownOwner(t *testing.T) {
	e := newEnv(t)
	_, err := e.stats.Stats(context.Background(), StatsInput{
		Owner: entity.OwnerRef{Type: entity.OwnerRegional, ID: "reg-fantasma"},
	})
	assert.ErrorIs(t, err, domain.ErrOwnerNotFound)
}

// ── Purga por borrado de nodo ────────────────────────────────────────────────

func TestOnNodeDeletedCancelsIncomingPendingAndPurges(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	national := entity.NationalOwner()
	regional := entity.OwnerRef{Type: entity.OwnerRegional, ID: region1}
	seedLot(t, e, vacBCG, national, 100, "2026-01-01")
	seedLot(t, e, vacBCG, regional, 50, "2026-06-01")

	pending, err := e.transfers.Open(ctx, OpenTransferInput{
		VaccineID: vacBCG, From: national, To: regional, Quantity: qty(30),
	})
	require.NoError(t, err)
	assertLevel(t, e, vacBCG, national, 70)

	result, err := e.purge.OnNodeDeleted(ctx, regional, "admin")
	require.NoError(t, err)
	assert.Contains(t, result.CancelledTransferIDs, pending.ID)
	assert.Contains(t, result.RemovedTransferIDs, pending.ID)
	assert.Len(t, result.RemovedLotIDs, 1)

	// El PENDING entrante se canceló antes de purgar: el origen recupera sus 30.
	assertLevel(t, e, vacBCG, national, 100)
	assertAggregateConsistent(t, e, vacBCG, national)

	// Nada del nodo sobrevive.
	lots, err := e.store.Lots().ListByOwner(ctx, vacBCG, regional)
	require.NoError(t, err)
	assert.Empty(t, lots)
	level, err := e.store.Levels().Get(ctx, vacBCG, regional)
	require.NoError(t, err)
	assert.True(t, level.Quantity.IsZero())
}

func TestOnNodeDeletedRejectsNational(t *testing.T) {
	e := newEnv(t)
	_, err := e.purge.OnNodeDeleted(context.Background(), entity.NationalOwner(), "admin")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
