package domain

import "errors"

// Errores de dominio (sin dependencias externas).
// Cada uno corresponde a un código estable de la API para que los clientes
// puedan distinguir la causa (ej. "stock insuficiente" vs "traslado ya confirmado").
var (
	ErrNotFound             = errors.New("recurso no encontrado")
	ErrVaccineNotFound      = errors.New("vacuna no encontrada")
	ErrOwnerNotFound        = errors.New("nodo de jerarquía no encontrado")
	ErrLotNotFound          = errors.New("lote no encontrado")
	ErrInvalidInput         = errors.New("entrada inválida")
	ErrInvalidQuantity      = errors.New("cantidad inválida: debe ser un entero mayor que cero")
	ErrInvalidExpiration    = errors.New("fecha de vencimiento inválida: debe ser presente o futura")
	ErrInvalidHierarchyEdge = errors.New("traslado inválido: los niveles no son padre e hijo directos")
	ErrInsufficientStock    = errors.New("stock insuficiente")
	ErrTransferNotPending   = errors.New("el traslado no está en estado PENDING")
	ErrReservationNotActive = errors.New("la reserva no está en estado ACTIVE")
	ErrLotReferenced        = errors.New("el lote tiene traslados pendientes que lo referencian")
	ErrDuplicate            = errors.New("recurso duplicado")
)
