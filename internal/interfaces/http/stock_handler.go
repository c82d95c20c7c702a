package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jcastillo/vacunastock-api/internal/application/dto"
	"github.com/jcastillo/vacunastock-api/internal/application/stock"
	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
)

// StockHandler maneja las peticiones HTTP del ledger de lotes y estadísticas (protegido).
type StockHandler struct {
	ledger *stock.LedgerUseCase
	stats  *stock.StatsUseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(ledger *stock.LedgerUseCase, stats *stock.StatsUseCase) *StockHandler {
	return &StockHandler{ledger: ledger, stats: stats}
}

// CreateLot godoc
// @Summary      Alta directa de lote (nivel NACIONAL)
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateLotRequest  true  "vaccine_id, owner_type=NATIONAL, quantity, expiration (YYYY-MM-DD)"
// @Success      201   {object}  dto.LotResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/stock/lots [post]
func (h *StockHandler) CreateLot(c *fiber.Ctx) error {
	var in dto.CreateLotRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	owner, ok := parseOwner(in.OwnerType, in.OwnerID)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "owner_type/owner_id inválidos"})
	}
	expiration, err := time.Parse(dto.DateLayout, in.Expiration)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "expiration debe ser YYYY-MM-DD"})
	}

	lot, err := h.ledger.CreateLot(c.Context(), stock.CreateLotInput{
		VaccineID:  in.VaccineID,
		Owner:      owner,
		Quantity:   in.Quantity,
		Expiration: expiration,
		Actor:      GetUserID(c),
	})
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toLotResponse(lot))
}

// ListLots godoc
// @Summary      Listar lotes de un (vacuna, nodo)
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        vaccine_id  query  string  true   "vacuna"
// @Param        owner_type  query  string  true   "NATIONAL | REGIONAL | DISTRICT | HEALTHCENTER"
// @Param        owner_id    query  string  false  "vacío solo para NATIONAL"
// @Success      200  {object}  dto.LotListResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/lots [get]
func (h *StockHandler) ListLots(c *fiber.Ctx) error {
	owner, ok := parseOwner(c.Query("owner_type"), c.Query("owner_id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "owner_type/owner_id inválidos"})
	}
	result, err := h.ledger.ListLots(c.Context(), c.Query("vaccine_id"), owner)
	if err != nil {
		return writeDomainError(c, err)
	}

	out := dto.LotListResponse{
		Lots:           make([]dto.LotResponse, 0, len(result.Lots)),
		TotalRemaining: result.TotalRemaining,
		Total:          len(result.Lots),
	}
	for _, lot := range result.Lots {
		out.Lots = append(out.Lots, toLotResponse(lot))
	}
	return c.JSON(out)
}

// DeleteLot godoc
// @Summary      Baja administrativa de un lote
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del lote"
// @Success      200  {object}  dto.DeleteLotResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse  "referenciado por un traslado pendiente"
// @Router       /api/stock/lots/{id} [delete]
func (h *StockHandler) DeleteLot(c *fiber.Ctx) error {
	result, err := h.ledger.DeleteLot(c.Context(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(dto.DeleteLotResponse{
		LotID:               result.LotID,
		AffectedTransferIDs: result.AffectedTransferIDs,
	})
}

// Reduce godoc
// @Summary      Reducción directa de stock (merma, administración local)
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReduceStockRequest  true  "vaccine_id, owner_type, owner_id, quantity"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/reductions [post]
func (h *StockHandler) Reduce(c *fiber.Ctx) error {
	var in dto.ReduceStockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	owner, ok := parseOwner(in.OwnerType, in.OwnerID)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "owner_type/owner_id inválidos"})
	}
	err := h.ledger.Reduce(c.Context(), stock.ReduceInput{
		VaccineID: in.VaccineID,
		Owner:     owner,
		Quantity:  in.Quantity,
		Actor:     GetUserID(c),
	})
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(fiber.Map{"message": "stock reducido"})
}

// Stats godoc
// @Summary      Estadísticas de stock de un nodo
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        vaccine_id  query  string  false  "vacía = todas las vacunas"
// @Param        owner_type  query  string  true   "nivel del nodo"
// @Param        owner_id    query  string  false  "vacío solo para NATIONAL"
// @Param        threshold   query  int     false  "umbral de stock bajo (default config)"
// @Success      200  {object}  stock.StatsResult
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/stats [get]
func (h *StockHandler) Stats(c *fiber.Ctx) error {
	owner, ok := parseOwner(c.Query("owner_type"), c.Query("owner_id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "owner_type/owner_id inválidos"})
	}
	input := stock.StatsInput{VaccineID: c.Query("vaccine_id"), Owner: owner}
	if raw := c.Query("threshold"); raw != "" {
		threshold, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || threshold < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "threshold inválido"})
		}
		input.Threshold = &threshold
	}

	result, err := h.stats.Stats(c.Context(), input)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(result)
}

// parseOwner arma la referencia de nodo desde los parámetros de la petición.
func parseOwner(ownerType, ownerID string) (entity.OwnerRef, bool) {
	t, ok := entity.ParseOwnerType(ownerType)
	if !ok {
		return entity.OwnerRef{}, false
	}
	owner := entity.OwnerRef{Type: t, ID: ownerID}
	return owner, owner.IsValid()
}

func toLotResponse(lot *entity.Lot) dto.LotResponse {
	return dto.LotResponse{
		ID:                lot.ID,
		VaccineID:         lot.VaccineID,
		OwnerType:         string(lot.Owner.Type),
		OwnerID:           lot.Owner.ID,
		Quantity:          lot.Quantity,
		RemainingQuantity: lot.RemainingQuantity,
		Expiration:        lot.Expiration.Format(dto.DateLayout),
		Status:            lot.Status,
		CreatedAt:         lot.CreatedAt,
	}
}
