package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jcastillo/vacunastock-api/internal/application/stock"
	"github.com/jcastillo/vacunastock-api/internal/application/usecase"
	"github.com/jcastillo/vacunastock-api/internal/infrastructure/audit"
	"github.com/jcastillo/vacunastock-api/internal/infrastructure/postgres"
	httpRouter "github.com/jcastillo/vacunastock-api/internal/interfaces/http"
	"github.com/jcastillo/vacunastock-api/pkg/config"
	"github.com/jcastillo/vacunastock-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if applied, err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migraciones de esquema")
	} else if applied > 0 {
		log.Info().Int("aplicadas", applied).Msg("migraciones de esquema")
	}

	vaccineRepo := postgres.NewVaccineRepository(pool)
	lotRepo := postgres.NewLotRepository(pool)
	transferRepo := postgres.NewTransferRepository(pool)
	reservationRepo := postgres.NewReservationRepository(pool)
	ownerRepo := postgres.NewOwnerRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Auditoría: worker propio, nunca bloquea las mutaciones de stock.
	notifier := audit.NewNotifier(log, cfg.Stock.AuditBuffer)
	go func() {
		if err := notifier.Run(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("worker de auditoría finalizado")
		}
	}()

	vaccineUC := usecase.NewVaccineUseCase(vaccineRepo)
	ledgerUC := stock.NewLedgerUseCase(txRunner, vaccineRepo, lotRepo, ownerRepo, notifier)
	transferUC := stock.NewTransferUseCase(txRunner, vaccineRepo, transferRepo, ownerRepo, notifier)
	reservationUC := stock.NewReservationUseCase(txRunner, vaccineRepo, reservationRepo, ownerRepo, notifier)
	statsUC := stock.NewStatsUseCase(vaccineRepo, lotRepo, ownerRepo, cfg.Stock.LowThreshold)

	// Barrido periódico de vencimientos: marca EXPIRED y debita acumulados.
	go runSweep(ctx, log, ledgerUC, time.Duration(cfg.Stock.SweepIntervalMinutes)*time.Minute)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "VacunaStock API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		VaccineUC:     vaccineUC,
		LedgerUC:      ledgerUC,
		StatsUC:       statsUC,
		TransferUC:    transferUC,
		ReservationUC: reservationUC,
		JWTSecret:     cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// runSweep ejecuta SweepExpired al arrancar y luego en cada tick.
func runSweep(ctx context.Context, log *logger.Logger, ledger *stock.LedgerUseCase, interval time.Duration) {
	if interval <= 0 {
		return
	}
	sweep := func() {
		count, err := ledger.SweepExpired(ctx)
		if err != nil {
			log.Error().Err(err).Msg("barrido de lotes vencidos")
			return
		}
		if count > 0 {
			log.Info().Int64("lotes", count).Msg("lotes vencidos marcados")
		}
	}
	sweep()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
