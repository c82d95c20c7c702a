package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcastillo/vacunastock-api/internal/application/stock"
	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
	"github.com/jcastillo/vacunastock-api/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Env: "production", Level: "error"})
}

func TestNotifyNeverBlocks(t *testing.T) {
	n := NewNotifier(testLogger(), 1)
	ev := stock.Event{Action: stock.ActionLotCreated, Owner: entity.NationalOwner()}

	n.Notify(ev)
	n.Notify(ev) // buffer lleno: se descarta, no bloquea
	n.Notify(ev)

	assert.Equal(t, int64(2), n.Dropped())
}

func TestRunConsumesUntilCancelled(t *testing.T) {
	n := NewNotifier(testLogger(), 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	for i := 0; i < 5; i++ {
		n.Notify(stock.Event{Action: stock.ActionStockReduced, Owner: entity.NationalOwner()})
	}
	require.Eventually(t, func() bool { return len(n.inbox) == 0 }, time.Second, 10*time.Millisecond)
	assert.Zero(t, n.Dropped())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run no terminó tras cancelar el contexto")
	}
}
