package stock

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
	"github.com/jcastillo/vacunastock-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando
// repositorios atados a esa tx. Toda operación pública del motor de stock
// (crear/eliminar lote, asignar, abrir/confirmar/cancelar traslado, reservar)
// corre completa dentro de un Run: atomicidad todo-o-nada.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		lotRepo repository.LotRepository,
		levelRepo repository.StockLevelRepository,
		transferRepo repository.TransferRepository,
		reservationRepo repository.ReservationRepository,
	) error) error
}

// HierarchyResolver colaborador de jerarquía geográfica (solo lectura).
// El CRUD de regiones/distritos/centros vive fuera de este motor.
type HierarchyResolver interface {
	// Exists verifica que el nodo exista. NATIONAL existe siempre.
	Exists(ctx context.Context, owner entity.OwnerRef) (bool, error)
	// ResolveParent devuelve el padre directo del nodo.
	// domain.ErrOwnerNotFound si el nodo no existe.
	ResolveParent(ctx context.Context, owner entity.OwnerRef) (entity.OwnerRef, error)
}

// Acciones notificadas al colaborador de auditoría.
const (
	ActionLotCreated           = "LOT_CREATED"
	ActionLotDeleted           = "LOT_DELETED"
	ActionStockReduced         = "STOCK_REDUCED"
	ActionTransferOpened       = "TRANSFER_OPENED"
	ActionTransferConfirmed    = "TRANSFER_CONFIRMED"
	ActionTransferCancelled    = "TRANSFER_CANCELLED"
	ActionReservationCreated   = "RESERVATION_CREATED"
	ActionReservationCancelled = "RESERVATION_CANCELLED"
	ActionNodePurged           = "NODE_PURGED"
)

// Event notificación de una mutación de stock para el log de auditoría.
type Event struct {
	Action       string
	VaccineID    string
	Owner        entity.OwnerRef
	Counterparty *entity.OwnerRef // nodo opuesto en traslados
	Quantity     decimal.Decimal
	Actor        string
	At           time.Time
}

// Notifier sumidero de eventos de auditoría. Se invoca después del commit y es
// best-effort: un fallo de entrega nunca revierte la mutación de stock.
type Notifier interface {
	Notify(ev Event)
}

// NopNotifier descarta eventos (tests, wiring sin auditoría).
type NopNotifier struct{}

// Notify no hace nada.
func (NopNotifier) Notify(Event) {}
