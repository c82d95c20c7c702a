package stock

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcastillo/vacunastock-api/internal/domain"
	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
)

// Draw extracción planificada sobre un lote concreto.
type Draw struct {
	LotID         string
	QuantityDrawn decimal.Decimal
	Expiration    time.Time // vencimiento del lote de origen
}

// ValidateQuantity las dosis son unidades enteras: cantidad > 0 y sin decimales.
func ValidateQuantity(qty decimal.Decimal) error {
	if !qty.GreaterThan(decimal.Zero) || !qty.IsInteger() {
		return domain.ErrInvalidQuantity
	}
	return nil
}

// Plan selecciona lotes para cubrir la cantidad pedida: primero el de vencimiento
// más próximo (minimiza pérdida futura), extrayendo de cada uno hasta su remanente.
// Todo o nada: si la suma de remanentes usables no alcanza, ErrInsufficientStock
// y ningún plan parcial. No muta los lotes; el caller aplica el plan en su transacción.
func Plan(lots []*entity.Lot, qty decimal.Decimal, now time.Time) ([]Draw, error) {
	if err := ValidateQuantity(qty); err != nil {
		return nil, err
	}

	usable := make([]*entity.Lot, 0, len(lots))
	for _, l := range lots {
		if l.Usable(now) {
			usable = append(usable, l)
		}
	}
	// Orden por vencimiento ascendente; a igual fecha, por ID para un plan determinista.
	sort.SliceStable(usable, func(i, j int) bool {
		if usable[i].Expiration.Equal(usable[j].Expiration) {
			return usable[i].ID < usable[j].ID
		}
		return usable[i].Expiration.Before(usable[j].Expiration)
	})

	remaining := qty
	draws := make([]Draw, 0, len(usable))
	for _, l := range usable {
		if !remaining.GreaterThan(decimal.Zero) {
			break
		}
		take := decimal.Min(remaining, l.RemainingQuantity)
		draws = append(draws, Draw{LotID: l.ID, QuantityDrawn: take, Expiration: l.Expiration})
		remaining = remaining.Sub(take)
	}
	if remaining.GreaterThan(decimal.Zero) {
		return nil, domain.ErrInsufficientStock
	}
	return draws, nil
}

// UsableTotal suma de remanentes sobre lotes VALID no vencidos.
func UsableTotal(lots []*entity.Lot, now time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lots {
		if l.Usable(now) {
			total = total.Add(l.RemainingQuantity)
		}
	}
	return total
}
