package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jcastillo/vacunastock-api/internal/application/stock"
	"github.com/jcastillo/vacunastock-api/internal/application/usecase"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	VaccineUC     *usecase.VaccineUseCase
	LedgerUC      *stock.LedgerUseCase
	StatsUC       *stock.StatsUseCase
	TransferUC    *stock.TransferUseCase
	ReservationUC *stock.ReservationUseCase
	JWTSecret     string
}

// Router registra las rutas de la API. Todo bajo /api requiere Bearer Token;
// /health queda público para probes.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// Catálogo de vacunas
	vaccines := api.Group("/vaccines")
	vaccineHandler := NewVaccineHandler(deps.VaccineUC)
	vaccines.Post("/", RequireRole("admin"), vaccineHandler.Create)
	vaccines.Get("/", vaccineHandler.List)
	vaccines.Get("/:id", vaccineHandler.GetByID)

	// Ledger de lotes y estadísticas
	stockGroup := api.Group("/stock")
	stockHandler := NewStockHandler(deps.LedgerUC, deps.StatsUC)
	stockGroup.Post("/lots", RequireRole("admin", "coordinador"), stockHandler.CreateLot)
	stockGroup.Get("/lots", stockHandler.ListLots)
	stockGroup.Delete("/lots/:id", RequireRole("admin"), stockHandler.DeleteLot)
	stockGroup.Post("/reductions", RequireRole("admin", "coordinador", "enfermeria"), stockHandler.Reduce)
	stockGroup.Get("/stats", stockHandler.Stats)

	// Traslados entre niveles
	transfers := api.Group("/transfers")
	transferHandler := NewTransferHandler(deps.TransferUC)
	transfers.Post("/", RequireRole("admin", "coordinador"), transferHandler.Open)
	transfers.Post("/:id/confirm", RequireRole("admin", "coordinador"), transferHandler.Confirm)
	transfers.Post("/:id/cancel", RequireRole("admin", "coordinador"), transferHandler.Cancel)
	transfers.Get("/", transferHandler.List)

	// Reservas de dosis
	reservations := api.Group("/reservations")
	reservationHandler := NewReservationHandler(deps.ReservationUC)
	reservations.Post("/", RequireRole("admin", "enfermeria"), reservationHandler.Reserve)
	reservations.Post("/:id/consume", RequireRole("admin", "enfermeria"), reservationHandler.Consume)
	reservations.Post("/:id/cancel", RequireRole("admin", "enfermeria"), reservationHandler.Cancel)
	reservations.Get("/", reservationHandler.ListActive)
}
