// Package memory implementa los puertos de persistencia sobre mapas en
// memoria, con la misma semántica que los adaptadores PostgreSQL. Se usa en
// tests y en wiring de desarrollo sin base de datos. Run serializa las
// transacciones con un mutex y hace rollback por snapshot; las lecturas fuera
// de transacción no toman locks (uso secuencial).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcastillo/vacunastock-api/internal/domain"
	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
	"github.com/jcastillo/vacunastock-api/internal/domain/repository"
)

// Store estado compartido de todos los repositorios en memoria.
type Store struct {
	mu sync.Mutex

	vaccines     map[string]*entity.Vaccine
	lots         map[string]*entity.Lot
	levels       map[string]*entity.StockLevel
	transfers    map[string]*entity.Transfer
	reservations map[string]*entity.Reservation
	parents      map[string]entity.OwnerRef // nodo -> padre directo

	seq     int64
	created map[string]int64 // orden de inserción para listados estables
}

// NewStore construye un almacén vacío.
func NewStore() *Store {
	return &Store{
		vaccines:     make(map[string]*entity.Vaccine),
		lots:         make(map[string]*entity.Lot),
		levels:       make(map[string]*entity.StockLevel),
		transfers:    make(map[string]*entity.Transfer),
		reservations: make(map[string]*entity.Reservation),
		parents:      make(map[string]entity.OwnerRef),
		created:      make(map[string]int64),
	}
}

func ownerKey(o entity.OwnerRef) string {
	return string(o.Type) + "|" + o.ID
}

func levelKey(vaccineID string, o entity.OwnerRef) string {
	return vaccineID + "|" + ownerKey(o)
}

// ── Jerarquía geográfica ─────────────────────────────────────────────────────

// AddRegion registra una región (hija de NATIONAL).
func (s *Store) AddRegion(id string) {
	s.parents[ownerKey(entity.OwnerRef{Type: entity.OwnerRegional, ID: id})] = entity.NationalOwner()
}

// AddDistrict registra un distrito hijo de la región dada.
func (s *Store) AddDistrict(id, regionID string) {
	s.parents[ownerKey(entity.OwnerRef{Type: entity.OwnerDistrict, ID: id})] =
		entity.OwnerRef{Type: entity.OwnerRegional, ID: regionID}
}

// AddHealthCenter registra un centro de salud hijo del distrito dado.
func (s *Store) AddHealthCenter(id, districtID string) {
	s.parents[ownerKey(entity.OwnerRef{Type: entity.OwnerHealthCenter, ID: id})] =
		entity.OwnerRef{Type: entity.OwnerDistrict, ID: districtID}
}

// RemoveNode borra el nodo del índice de jerarquía (simula el borrado geográfico).
func (s *Store) RemoveNode(owner entity.OwnerRef) {
	delete(s.parents, ownerKey(owner))
}

// Exists implementa stock.HierarchyResolver.
func (s *Store) Exists(_ context.Context, owner entity.OwnerRef) (bool, error) {
	if owner.Type == entity.OwnerNational {
		return owner.ID == "", nil
	}
	_, ok := s.parents[ownerKey(owner)]
	return ok, nil
}

// ResolveParent implementa stock.HierarchyResolver.
func (s *Store) ResolveParent(_ context.Context, owner entity.OwnerRef) (entity.OwnerRef, error) {
	parent, ok := s.parents[ownerKey(owner)]
	if !ok {
		return entity.OwnerRef{}, domain.ErrOwnerNotFound
	}
	return parent, nil
}

// ── TxRunner ─────────────────────────────────────────────────────────────────

// Run implementa stock.TxRunner: serializa con el mutex y restaura un snapshot
// si fn devuelve error, imitando el rollback de una transacción real.
func (s *Store) Run(_ context.Context, fn func(
	lotRepo repository.LotRepository,
	levelRepo repository.StockLevelRepository,
	transferRepo repository.TransferRepository,
	reservationRepo repository.ReservationRepository,
) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(s.Lots(), s.Levels(), s.Transfers(), s.Reservations()); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshotState struct {
	vaccines     map[string]*entity.Vaccine
	lots         map[string]*entity.Lot
	levels       map[string]*entity.StockLevel
	transfers    map[string]*entity.Transfer
	reservations map[string]*entity.Reservation
	created      map[string]int64
	seq          int64
}

func (s *Store) snapshot() snapshotState {
	snap := snapshotState{
		vaccines:     make(map[string]*entity.Vaccine, len(s.vaccines)),
		lots:         make(map[string]*entity.Lot, len(s.lots)),
		levels:       make(map[string]*entity.StockLevel, len(s.levels)),
		transfers:    make(map[string]*entity.Transfer, len(s.transfers)),
		reservations: make(map[string]*entity.Reservation, len(s.reservations)),
		created:      make(map[string]int64, len(s.created)),
		seq:          s.seq,
	}
	for k, v := range s.vaccines {
		c := *v
		snap.vaccines[k] = &c
	}
	for k, v := range s.lots {
		c := *v
		snap.lots[k] = &c
	}
	for k, v := range s.levels {
		c := *v
		snap.levels[k] = &c
	}
	for k, v := range s.transfers {
		snap.transfers[k] = cloneTransfer(v)
	}
	for k, v := range s.reservations {
		snap.reservations[k] = cloneReservation(v)
	}
	for k, v := range s.created {
		snap.created[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshotState) {
	s.vaccines = snap.vaccines
	s.lots = snap.lots
	s.levels = snap.levels
	s.transfers = snap.transfers
	s.reservations = snap.reservations
	s.created = snap.created
	s.seq = snap.seq
}

func (s *Store) nextSeq(id string) {
	s.seq++
	s.created[id] = s.seq
}

func cloneTransfer(t *entity.Transfer) *entity.Transfer {
	c := *t
	c.Lines = append([]entity.TransferLotLine(nil), t.Lines...)
	return &c
}

func cloneReservation(r *entity.Reservation) *entity.Reservation {
	c := *r
	c.Lines = append([]entity.ReservationLotLine(nil), r.Lines...)
	return &c
}

// ── Accesores de repositorios ────────────────────────────────────────────────

// Vaccines repositorio de vacunas sobre el almacén.
func (s *Store) Vaccines() repository.VaccineRepository { return &vaccineRepo{s: s} }

// Lots repositorio de lotes sobre el almacén.
func (s *Store) Lots() repository.LotRepository { return &lotRepo{s: s} }

// Levels repositorio de acumulados sobre el almacén.
func (s *Store) Levels() repository.StockLevelRepository { return &levelRepo{s: s} }

// Transfers repositorio de traslados sobre el almacén.
func (s *Store) Transfers() repository.TransferRepository { return &transferRepo{s: s} }

// Reservations repositorio de reservas sobre el almacén.
func (s *Store) Reservations() repository.ReservationRepository { return &reservationRepo{s: s} }

// ── Vacunas ──────────────────────────────────────────────────────────────────

type vaccineRepo struct{ s *Store }

func (r *vaccineRepo) Create(_ context.Context, v *entity.Vaccine) error {
	c := *v
	r.s.vaccines[v.ID] = &c
	r.s.nextSeq(v.ID)
	return nil
}

func (r *vaccineRepo) GetByID(_ context.Context, id string) (*entity.Vaccine, error) {
	v, ok := r.s.vaccines[id]
	if !ok {
		return nil, nil
	}
	c := *v
	return &c, nil
}

func (r *vaccineRepo) List(_ context.Context, limit, offset int) ([]*entity.Vaccine, error) {
	all := make([]*entity.Vaccine, 0, len(r.s.vaccines))
	for _, v := range r.s.vaccines {
		c := *v
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool { return r.s.created[all[i].ID] < r.s.created[all[j].ID] })
	return paginate(all, limit, offset), nil
}

// ── Lotes ────────────────────────────────────────────────────────────────────

type lotRepo struct{ s *Store }

func (r *lotRepo) Create(_ context.Context, lot *entity.Lot) error {
	c := *lot
	r.s.lots[lot.ID] = &c
	r.s.nextSeq(lot.ID)
	return nil
}

func (r *lotRepo) GetByID(_ context.Context, id string) (*entity.Lot, error) {
	l, ok := r.s.lots[id]
	if !ok {
		return nil, nil
	}
	c := *l
	return &c, nil
}

func (r *lotRepo) GetForUpdate(ctx context.Context, id string) (*entity.Lot, error) {
	return r.GetByID(ctx, id)
}

func (r *lotRepo) ListByOwner(_ context.Context, vaccineID string, owner entity.OwnerRef) ([]*entity.Lot, error) {
	return r.selectLots(vaccineID, owner, false), nil
}

func (r *lotRepo) ListForUpdate(_ context.Context, vaccineID string, owner entity.OwnerRef) ([]*entity.Lot, error) {
	return r.selectLots(vaccineID, owner, true), nil
}

func (r *lotRepo) selectLots(vaccineID string, owner entity.OwnerRef, onlyValid bool) []*entity.Lot {
	out := make([]*entity.Lot, 0)
	for _, l := range r.s.lots {
		if l.VaccineID != vaccineID || !l.Owner.Equal(owner) {
			continue
		}
		if onlyValid && l.Status != entity.LotStatusValid {
			continue
		}
		c := *l
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Expiration.Equal(out[j].Expiration) {
			return out[i].ID < out[j].ID
		}
		return out[i].Expiration.Before(out[j].Expiration)
	})
	return out
}

func (r *lotRepo) UpdateRemaining(_ context.Context, id string, remaining decimal.Decimal, status string) error {
	l, ok := r.s.lots[id]
	if !ok {
		return domain.ErrLotNotFound
	}
	l.RemainingQuantity = remaining
	l.Status = status
	l.UpdatedAt = time.Now()
	return nil
}

func (r *lotRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.s.lots[id]; !ok {
		return domain.ErrLotNotFound
	}
	delete(r.s.lots, id)
	return nil
}

func (r *lotRepo) DeleteByOwner(_ context.Context, owner entity.OwnerRef) ([]string, error) {
	var ids []string
	for id, l := range r.s.lots {
		if l.Owner.Equal(owner) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		delete(r.s.lots, id)
	}
	return ids, nil
}

func (r *lotRepo) MarkExpired(_ context.Context, before time.Time) ([]repository.ExpiredLot, error) {
	var expired []repository.ExpiredLot
	for _, l := range r.s.lots {
		if l.Status == entity.LotStatusValid && l.Expired(before) {
			l.Status = entity.LotStatusExpired
			l.UpdatedAt = before
			expired = append(expired, repository.ExpiredLot{
				LotID:     l.ID,
				VaccineID: l.VaccineID,
				Owner:     l.Owner,
				Remaining: l.RemainingQuantity,
			})
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].LotID < expired[j].LotID })
	return expired, nil
}

func (r *lotRepo) Stats(_ context.Context, vaccineID string, owner entity.OwnerRef, now time.Time) (*repository.LotStats, error) {
	stats := &repository.LotStats{TotalQuantity: decimal.Zero}
	for _, l := range r.s.lots {
		if !l.Owner.Equal(owner) {
			continue
		}
		if vaccineID != "" && l.VaccineID != vaccineID {
			continue
		}
		switch {
		case l.Status == entity.LotStatusExpired,
			l.Status == entity.LotStatusValid && l.Expired(now):
			stats.ExpiredLots++
		case l.Status == entity.LotStatusValid:
			stats.TotalLots++
			stats.TotalQuantity = stats.TotalQuantity.Add(l.RemainingQuantity)
		}
	}
	return stats, nil
}

func (r *lotRepo) UsableByVaccine(_ context.Context, owner entity.OwnerRef, now time.Time) ([]repository.VaccineQuantity, error) {
	totals := make(map[string]decimal.Decimal)
	for _, l := range r.s.lots {
		if !l.Owner.Equal(owner) || !l.Usable(now) {
			continue
		}
		totals[l.VaccineID] = totals[l.VaccineID].Add(l.RemainingQuantity)
	}
	out := make([]repository.VaccineQuantity, 0, len(totals))
	for id, q := range totals {
		out = append(out, repository.VaccineQuantity{VaccineID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VaccineID < out[j].VaccineID })
	return out, nil
}

// ── Acumulados ───────────────────────────────────────────────────────────────

type levelRepo struct{ s *Store }

func (r *levelRepo) Get(_ context.Context, vaccineID string, owner entity.OwnerRef) (*entity.StockLevel, error) {
	l, ok := r.s.levels[levelKey(vaccineID, owner)]
	if !ok {
		return &entity.StockLevel{VaccineID: vaccineID, Owner: owner, Quantity: decimal.Zero}, nil
	}
	c := *l
	return &c, nil
}

func (r *levelRepo) GetForUpdate(ctx context.Context, vaccineID string, owner entity.OwnerRef) (*entity.StockLevel, error) {
	return r.Get(ctx, vaccineID, owner)
}

func (r *levelRepo) Upsert(_ context.Context, level *entity.StockLevel) error {
	c := *level
	r.s.levels[levelKey(level.VaccineID, level.Owner)] = &c
	return nil
}

func (r *levelRepo) DeleteByOwner(_ context.Context, owner entity.OwnerRef) error {
	for k, l := range r.s.levels {
		if l.Owner.Equal(owner) {
			delete(r.s.levels, k)
		}
	}
	return nil
}

// ── Traslados ────────────────────────────────────────────────────────────────

type transferRepo struct{ s *Store }

func (r *transferRepo) Create(_ context.Context, t *entity.Transfer) error {
	r.s.transfers[t.ID] = cloneTransfer(t)
	r.s.nextSeq(t.ID)
	return nil
}

func (r *transferRepo) GetByID(_ context.Context, id string) (*entity.Transfer, error) {
	t, ok := r.s.transfers[id]
	if !ok {
		return nil, nil
	}
	return cloneTransfer(t), nil
}

func (r *transferRepo) GetForUpdate(ctx context.Context, id string) (*entity.Transfer, error) {
	return r.GetByID(ctx, id)
}

func (r *transferRepo) UpdateStatus(_ context.Context, id, status string) error {
	t, ok := r.s.transfers[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	return nil
}

func (r *transferRepo) ListByOwner(_ context.Context, owner entity.OwnerRef, limit, offset int) ([]*entity.Transfer, error) {
	out := make([]*entity.Transfer, 0)
	for _, t := range r.s.transfers {
		if t.From.Equal(owner) || t.To.Equal(owner) {
			out = append(out, cloneTransfer(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.s.created[out[i].ID] > r.s.created[out[j].ID] })
	return paginate(out, limit, offset), nil
}

func (r *transferRepo) ListPendingByOwner(_ context.Context, owner entity.OwnerRef) ([]*entity.Transfer, error) {
	out := make([]*entity.Transfer, 0)
	for _, t := range r.s.transfers {
		if t.Status == entity.TransferStatusPending && (t.From.Equal(owner) || t.To.Equal(owner)) {
			out = append(out, cloneTransfer(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.s.created[out[i].ID] < r.s.created[out[j].ID] })
	return out, nil
}

func (r *transferRepo) HasPendingLineForLot(_ context.Context, lotID string) (bool, error) {
	for _, t := range r.s.transfers {
		if t.Status != entity.TransferStatusPending {
			continue
		}
		for _, line := range t.Lines {
			if line.LotID == lotID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *transferRepo) DeleteLinesByLot(_ context.Context, lotID string) ([]string, error) {
	var affected []string
	for _, t := range r.s.transfers {
		kept := t.Lines[:0]
		removed := false
		for _, line := range t.Lines {
			if line.LotID == lotID && t.Status != entity.TransferStatusPending {
				removed = true
				continue
			}
			kept = append(kept, line)
		}
		if removed {
			t.Lines = kept
			affected = append(affected, t.ID)
		}
	}
	sort.Strings(affected)
	return affected, nil
}

func (r *transferRepo) DeleteByOwner(_ context.Context, owner entity.OwnerRef) ([]string, error) {
	var ids []string
	for id, t := range r.s.transfers {
		if t.From.Equal(owner) || t.To.Equal(owner) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		delete(r.s.transfers, id)
	}
	return ids, nil
}

// ── Reservas ─────────────────────────────────────────────────────────────────

type reservationRepo struct{ s *Store }

func (r *reservationRepo) Create(_ context.Context, res *entity.Reservation) error {
	r.s.reservations[res.ID] = cloneReservation(res)
	r.s.nextSeq(res.ID)
	return nil
}

func (r *reservationRepo) GetByID(_ context.Context, id string) (*entity.Reservation, error) {
	res, ok := r.s.reservations[id]
	if !ok {
		return nil, nil
	}
	return cloneReservation(res), nil
}

func (r *reservationRepo) GetForUpdate(ctx context.Context, id string) (*entity.Reservation, error) {
	return r.GetByID(ctx, id)
}

func (r *reservationRepo) UpdateStatus(_ context.Context, id, status string) error {
	res, ok := r.s.reservations[id]
	if !ok {
		return domain.ErrNotFound
	}
	res.Status = status
	res.UpdatedAt = time.Now()
	return nil
}

func (r *reservationRepo) ListActiveByOwner(_ context.Context, owner entity.OwnerRef, limit, offset int) ([]*entity.Reservation, error) {
	out := make([]*entity.Reservation, 0)
	for _, res := range r.s.reservations {
		if res.Status == entity.ReservationStatusActive && res.Owner.Equal(owner) {
			out = append(out, cloneReservation(res))
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.s.created[out[i].ID] > r.s.created[out[j].ID] })
	return paginate(out, limit, offset), nil
}

func (r *reservationRepo) DeleteByOwner(_ context.Context, owner entity.OwnerRef) ([]string, error) {
	var ids []string
	for id, res := range r.s.reservations {
		if res.Owner.Equal(owner) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		delete(r.s.reservations, id)
	}
	return ids, nil
}

func paginate[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}
