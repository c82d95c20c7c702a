// Package audit entrega los eventos del motor de stock a un log estructurado
// de auditoría, desacoplado de la transacción que los originó.
package audit

import (
	"context"
	"sync/atomic"

	"github.com/jcastillo/vacunastock-api/internal/application/stock"
	"github.com/jcastillo/vacunastock-api/pkg/logger"
)

var _ stock.Notifier = (*Notifier)(nil)

// Notifier consume eventos de un canal con buffer y los escribe como entradas
// de auditoría. Notify nunca bloquea la ruta de negocio: con el buffer lleno
// el evento se descarta y se cuenta, la mutación de stock ya está confirmada.
type Notifier struct {
	inbox   chan stock.Event
	log     *logger.Logger
	dropped atomic.Int64
}

// NewNotifier construye el notificador con el tamaño de buffer indicado.
func NewNotifier(log *logger.Logger, buffer int) *Notifier {
	if buffer <= 0 {
		buffer = 256
	}
	return &Notifier{
		inbox: make(chan stock.Event, buffer),
		log:   log,
	}
}

// Notify encola el evento sin bloquear.
func (n *Notifier) Notify(ev stock.Event) {
	select {
	case n.inbox <- ev:
	default:
		n.dropped.Add(1)
	}
}

// Dropped eventos descartados por buffer lleno desde el arranque.
func (n *Notifier) Dropped() int64 {
	return n.dropped.Load()
}

// Run consume el canal hasta que el contexto se cancele. Pensado para correr
// en una goroutine propia desde cmd/api.
func (n *Notifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-n.inbox:
			n.emit(ev)
		}
	}
}

func (n *Notifier) emit(ev stock.Event) {
	entry := n.log.Info().
		Str("audit", ev.Action).
		Str("owner_type", string(ev.Owner.Type)).
		Str("owner_id", ev.Owner.ID).
		Str("actor", ev.Actor).
		Time("at", ev.At)
	if ev.VaccineID != "" {
		entry = entry.Str("vaccine_id", ev.VaccineID)
	}
	if !ev.Quantity.IsZero() {
		entry = entry.Str("quantity", ev.Quantity.String())
	}
	if ev.Counterparty != nil {
		entry = entry.
			Str("counterparty_type", string(ev.Counterparty.Type)).
			Str("counterparty_id", ev.Counterparty.ID)
	}
	entry.Msg("evento de stock")
}
