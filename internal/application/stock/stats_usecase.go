package stock

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcastillo/vacunastock-api/internal/domain"
	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
	"github.com/jcastillo/vacunastock-api/internal/domain/repository"
)

// StatsUseCase agregación de solo lectura sobre el ledger: conteo de lotes,
// remanente usable, detección de stock bajo y de lotes vencidos. Las cifras
// son informativas, no participan en decisiones de asignación, así que basta
// el aislamiento de lectura normal.
type StatsUseCase struct {
	vaccineRepo      repository.VaccineRepository
	lotRepo          repository.LotRepository
	hierarchy        HierarchyResolver
	defaultThreshold int64
	nowFn            func() time.Time
}

// NewStatsUseCase construye el caso de uso. defaultThreshold es el umbral de
// stock bajo cuando el caller no envía uno (config STOCK_LOW_THRESHOLD).
func NewStatsUseCase(
	vaccineRepo repository.VaccineRepository,
	lotRepo repository.LotRepository,
	hierarchy HierarchyResolver,
	defaultThreshold int64,
) *StatsUseCase {
	return &StatsUseCase{
		vaccineRepo:      vaccineRepo,
		lotRepo:          lotRepo,
		hierarchy:        hierarchy,
		defaultThreshold: defaultThreshold,
		nowFn:            time.Now,
	}
}

// StatsInput consulta de estadísticas. VaccineID vacío = todas las vacunas.
type StatsInput struct {
	VaccineID string
	Owner     entity.OwnerRef
	Threshold *int64 // nil = umbral por defecto
}

// StatsResult cifras de stock de un nodo.
type StatsResult struct {
	TotalLots     int             `json:"total_lots"`     // lotes VALID no vencidos
	TotalQuantity decimal.Decimal `json:"total_quantity"` // remanente usable
	LowStockCount int             `json:"low_stock_count"`
	ExpiredLots   int             `json:"expired_lots"`
	Threshold     int64           `json:"threshold"` // umbral aplicado (eco)
}

// Stats calcula las cifras del nodo. Con vacuna fija, LowStockCount es 0/1
// según el remanente usable quede bajo el umbral; sin vacuna fija cuenta
// cuántas vacunas del nodo están bajo el umbral.
func (uc *StatsUseCase) Stats(ctx context.Context, input StatsInput) (*StatsResult, error) {
	if !input.Owner.IsValid() {
		return nil, domain.ErrInvalidInput
	}
	ok, err := uc.hierarchy.Exists(ctx, input.Owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrOwnerNotFound
	}
	if input.VaccineID != "" {
		v, err := uc.vaccineRepo.GetByID(ctx, input.VaccineID)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, domain.ErrVaccineNotFound
		}
	}

	threshold := uc.defaultThreshold
	if input.Threshold != nil {
		threshold = *input.Threshold
	}
	now := uc.nowFn()

	stats, err := uc.lotRepo.Stats(ctx, input.VaccineID, input.Owner, now)
	if err != nil {
		return nil, err
	}
	result := &StatsResult{
		TotalLots:     stats.TotalLots,
		TotalQuantity: stats.TotalQuantity,
		ExpiredLots:   stats.ExpiredLots,
		Threshold:     threshold,
	}

	limit := decimal.NewFromInt(threshold)
	if input.VaccineID != "" {
		if stats.TotalQuantity.LessThan(limit) {
			result.LowStockCount = 1
		}
		return result, nil
	}

	perVaccine, err := uc.lotRepo.UsableByVaccine(ctx, input.Owner, now)
	if err != nil {
		return nil, err
	}
	for _, vq := range perVaccine {
		if vq.Quantity.LessThan(limit) {
			result.LowStockCount++
		}
	}
	return result, nil
}
