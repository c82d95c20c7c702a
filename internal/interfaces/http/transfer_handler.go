package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jcastillo/vacunastock-api/internal/application/dto"
	"github.com/jcastillo/vacunastock-api/internal/application/stock"
	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
)

// TransferHandler maneja las peticiones HTTP del protocolo de traslados (protegido).
type TransferHandler struct {
	uc *stock.TransferUseCase
}

// NewTransferHandler construye el handler.
func NewTransferHandler(uc *stock.TransferUseCase) *TransferHandler {
	return &TransferHandler{uc: uc}
}

// Open godoc
// @Summary      Abrir traslado padre → hijo directo
// @Description  Debita el origen de inmediato y deja el traslado PENDING hasta confirmar o cancelar.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.OpenTransferRequest  true  "vaccine_id, from_*, to_*, quantity"
// @Success      201   {object}  dto.TransferResponse
// @Failure      409   {object}  dto.ErrorResponse  "stock insuficiente"
// @Failure      422   {object}  dto.ErrorResponse  "arista de jerarquía inválida"
// @Router       /api/transfers [post]
func (h *TransferHandler) Open(c *fiber.Ctx) error {
	var in dto.OpenTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	from, ok := parseOwner(in.FromType, in.FromID)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from_type/from_id inválidos"})
	}
	to, ok := parseOwner(in.ToType, in.ToID)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to_type/to_id inválidos"})
	}

	transfer, err := h.uc.Open(c.Context(), stock.OpenTransferInput{
		VaccineID: in.VaccineID,
		From:      from,
		To:        to,
		Quantity:  in.Quantity,
		Actor:     GetUserID(c),
	})
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toTransferResponse(transfer))
}

// Confirm godoc
// @Summary      Confirmar traslado pendiente
// @Description  Materializa los lotes en destino clonando los vencimientos de origen.
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del traslado"
// @Success      200  {object}  dto.ConfirmTransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse  "ya no está pendiente"
// @Router       /api/transfers/{id}/confirm [post]
func (h *TransferHandler) Confirm(c *fiber.Ctx) error {
	result, err := h.uc.Confirm(c.Context(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeDomainError(c, err)
	}
	out := dto.ConfirmTransferResponse{
		Transfer:    toTransferResponse(result.Transfer),
		CreatedLots: make([]dto.LotResponse, 0, len(result.CreatedLots)),
	}
	for _, lot := range result.CreatedLots {
		out.CreatedLots = append(out.CreatedLots, toLotResponse(lot))
	}
	return c.JSON(out)
}

// Cancel godoc
// @Summary      Cancelar traslado pendiente
// @Description  Reacredita los lotes y el acumulado del origen a su estado previo a la apertura.
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del traslado"
// @Success      200  {object}  dto.TransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse  "ya no está pendiente"
// @Router       /api/transfers/{id}/cancel [post]
func (h *TransferHandler) Cancel(c *fiber.Ctx) error {
	transfer, err := h.uc.Cancel(c.Context(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(toTransferResponse(transfer))
}

// List godoc
// @Summary      Listar traslados de un nodo (origen o destino)
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        owner_type  query  string  true   "nivel del nodo"
// @Param        owner_id    query  string  false  "vacío solo para NATIONAL"
// @Param        limit       query  int     false  "máximo de resultados (default 20)"
// @Param        offset      query  int     false  "desplazamiento"
// @Success      200  {array}  dto.TransferResponse
// @Router       /api/transfers [get]
func (h *TransferHandler) List(c *fiber.Ctx) error {
	owner, ok := parseOwner(c.Query("owner_type"), c.Query("owner_id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "owner_type/owner_id inválidos"})
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()

	transfers, err := h.uc.List(c.Context(), owner, page.Limit, page.Offset)
	if err != nil {
		return writeDomainError(c, err)
	}
	out := make([]dto.TransferResponse, 0, len(transfers))
	for _, t := range transfers {
		out = append(out, toTransferResponse(t))
	}
	return c.JSON(fiber.Map{"total": len(out), "transfers": out})
}

func toTransferResponse(t *entity.Transfer) dto.TransferResponse {
	out := dto.TransferResponse{
		ID:        t.ID,
		VaccineID: t.VaccineID,
		FromType:  string(t.From.Type),
		FromID:    t.From.ID,
		ToType:    string(t.To.Type),
		ToID:      t.To.ID,
		Quantity:  t.Quantity,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
	}
	for _, line := range t.Lines {
		out.Lines = append(out.Lines, dto.TransferLineResponse{
			LotID:         line.LotID,
			QuantityDrawn: line.QuantityDrawn,
			Expiration:    line.Expiration.Format(dto.DateLayout),
		})
	}
	return out
}
