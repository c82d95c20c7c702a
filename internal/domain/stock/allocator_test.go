package stock

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcastillo/vacunastock-api/internal/domain"
	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func lot(id string, remaining int64, expiration string) *entity.Lot {
	exp, _ := time.Parse("2006-01-02", expiration)
	return &entity.Lot{
		ID:                id,
		VaccineID:         "vac-1",
		Owner:             entity.NationalOwner(),
		Quantity:          decimal.NewFromInt(remaining),
		RemainingQuantity: decimal.NewFromInt(remaining),
		Expiration:        exp,
		Status:            entity.LotStatusValid,
	}
}

func TestValidateQuantity(t *testing.T) {
	cases := []struct {
		name string
		qty  decimal.Decimal
		ok   bool
	}{
		{"positivo entero", decimal.NewFromInt(5), true},
		{"uno", decimal.NewFromInt(1), true},
		{"cero", decimal.Zero, false},
		{"negativo", decimal.NewFromInt(-3), false},
		{"fraccionario", decimal.NewFromFloat(2.5), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateQuantity(tc.qty)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
			}
		})
	}
}

func TestPlanSingleLot(t *testing.T) {
	// Un lote de 100 que vence 2026-01-01: pedir 30 extrae 30 de ese lote.
	lots := []*entity.Lot{lot("l1", 100, "2026-01-01")}

	draws, err := Plan(lots, decimal.NewFromInt(30), testNow)
	require.NoError(t, err)
	require.Len(t, draws, 1)
	assert.Equal(t, "l1", draws[0].LotID)
	assert.True(t, draws[0].QuantityDrawn.Equal(decimal.NewFromInt(30)))
}

func TestPlanSplitsAcrossLotsByExpiration(t *testing.T) {
	// 50 que vence 2025-06-01 y 50 que vence 2026-01-01: pedir 70 agota el
	// primero (vencimiento más próximo) y extrae 20 del segundo.
	lots := []*entity.Lot{
		lot("l-lejano", 50, "2026-01-01"),
		lot("l-cercano", 50, "2025-06-01"),
	}

	draws, err := Plan(lots, decimal.NewFromInt(70), testNow)
	require.NoError(t, err)
	require.Len(t, draws, 2)
	assert.Equal(t, "l-cercano", draws[0].LotID)
	assert.True(t, draws[0].QuantityDrawn.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "l-lejano", draws[1].LotID)
	assert.True(t, draws[1].QuantityDrawn.Equal(decimal.NewFromInt(20)))
}

func TestPlanInsufficientStockIsAllOrNothing(t *testing.T) {
	lots := []*entity.Lot{
		lot("l1", 10, "2025-06-01"),
		lot("l2", 15, "2026-01-01"),
	}

	draws, err := Plan(lots, decimal.NewFromInt(26), testNow)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Nil(t, draws)
}

func TestPlanSkipsExpiredAndDepletedLots(t *testing.T) {
	expired := lot("l-vencido", 40, "2024-01-01")
	depleted := lot("l-agotado", 0, "2026-01-01")
	depleted.Status = entity.LotStatusDepleted
	ok := lot("l-ok", 25, "2026-01-01")

	draws, err := Plan([]*entity.Lot{expired, depleted, ok}, decimal.NewFromInt(20), testNow)
	require.NoError(t, err)
	require.Len(t, draws, 1)
	assert.Equal(t, "l-ok", draws[0].LotID)

	// Los vencidos/agotados tampoco cuentan para el total usable.
	assert.True(t, UsableTotal([]*entity.Lot{expired, depleted, ok}, testNow).Equal(decimal.NewFromInt(25)))
}

func TestPlanExpiringTodayIsStillUsable(t *testing.T) {
	sameDay := lot("l-hoy", 10, "2025-03-10")

	draws, err := Plan([]*entity.Lot{sameDay}, decimal.NewFromInt(5), testNow)
	require.NoError(t, err)
	require.Len(t, draws, 1)
}

func TestPlanIsDeterministic(t *testing.T) {
	// Mismo estado, mismo pedido: mismo plan (necesario para que abrir, cancelar
	// y reabrir un traslado reproduzca la misma asignación).
	lots := func() []*entity.Lot {
		return []*entity.Lot{
			lot("b", 30, "2025-06-01"),
			lot("a", 30, "2025-06-01"),
			lot("c", 30, "2025-07-01"),
		}
	}
	first, err := Plan(lots(), decimal.NewFromInt(45), testNow)
	require.NoError(t, err)
	second, err := Plan(lots(), decimal.NewFromInt(45), testNow)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "a", first[0].LotID) // empate de fecha se rompe por ID
}

func TestPlanRejectsInvalidQuantity(t *testing.T) {
	lots := []*entity.Lot{lot("l1", 10, "2026-01-01")}
	_, err := Plan(lots, decimal.NewFromFloat(1.5), testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}
