package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain/models"

	"github.com/shopspring/decimal"
)

var day = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return time.Date(2024, 6, 1, h, m, 0, 0, time.UTC)
}

func fixedClock(t time.Time) domain.Clock {
	return func() time.Time { return t }
}

func ptr[T any](v T) *T { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// memBookings serializes every check-then-write under one mutex, standing in
// for the row locks the MySQL repository takes.
type memBookings struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[int64]models.Booking
	writes  int
	lookups int
}

func newMemBookings() *memBookings {
	return &memBookings{rows: map[int64]models.Booking{}}
}

func (m *memBookings) seed(b models.Booking) models.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	b.ID = m.nextID
	m.rows[b.ID] = b
	return b
}

func (m *memBookings) conflict(techID int64, b models.Booking, excludeID int64) error {
	iv, ok := b.Interval()
	if !ok {
		return nil
	}
	for _, other := range m.rows {
		if other.ID == excludeID || other.Status == domain.StatusCancelled {
			continue
		}
		if other.TechnicianID == nil || *other.TechnicianID != techID {
			continue
		}
		if oiv, ok := other.Interval(); ok && iv.Overlaps(oiv) {
			return domain.SlotConflict(techID, other.ID)
		}
	}
	return nil
}

func (m *memBookings) GetByID(_ context.Context, id int64) (models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	b, ok := m.rows[id]
	if !ok {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	return b, nil
}

func (m *memBookings) CreateWithNoOverlap(_ context.Context, b models.Booking) (models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.TechnicianID != nil {
		if err := m.conflict(*b.TechnicianID, b, 0); err != nil {
			return models.Booking{}, err
		}
	}
	m.nextID++
	b.ID = m.nextID
	m.rows[b.ID] = b
	m.writes++
	return b, nil
}

func (m *memBookings) Reschedule(_ context.Context, id int64, apply func(models.Booking) (models.Booking, error)) (models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.rows[id]
	if !ok {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	next, err := apply(current)
	if err != nil {
		return models.Booking{}, err
	}
	if next.TechnicianID != nil {
		if err := m.conflict(*next.TechnicianID, next, id); err != nil {
			return models.Booking{}, err
		}
	}
	m.rows[id] = next
	m.writes++
	return next, nil
}

func (m *memBookings) Assign(_ context.Context, id int64, candidates []int64, now time.Time) (models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.rows[id]
	if !ok {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	if current.Status.IsTerminal() {
		return models.Booking{}, domain.BookingClosed(id, current.Status)
	}
	var lastErr error
	for _, techID := range candidates {
		if err := m.conflict(techID, current, id); err != nil {
			lastErr = err
			continue
		}
		current.TechnicianID = ptr(techID)
		current.UpdatedAt = now
		m.rows[id] = current
		m.writes++
		return current, nil
	}
	return models.Booking{}, lastErr
}

func (m *memBookings) UpdateStatus(_ context.Context, id int64, now time.Time, decide func(models.Booking) (domain.BookingStatus, error)) (models.Booking, domain.BookingStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	current, ok := m.rows[id]
	if !ok {
		return models.Booking{}, "", domain.NotFoundError{Resource: "booking"}
	}
	prev := current.Status
	next, err := decide(current)
	if err != nil {
		return models.Booking{}, "", err
	}
	if next != prev {
		current.Status = next
		current.UpdatedAt = now
		m.rows[id] = current
		m.writes++
	}
	return current, prev, nil
}

func (m *memBookings) list(keep func(models.Booking) bool) []models.Booking {
	out := []models.Booking{}
	for _, b := range m.rows {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimeSlot.Before(out[j].TimeSlot) })
	return out
}

func (m *memBookings) ListBetween(_ context.Context, from, to time.Time) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(b models.Booking) bool {
		return !b.TimeSlot.Before(from) && b.TimeSlot.Before(to)
	}), nil
}

func (m *memBookings) ListForTechnician(_ context.Context, techID int64, from, to time.Time) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(b models.Booking) bool {
		return b.TechnicianID != nil && *b.TechnicianID == techID && !b.TimeSlot.Before(from) && b.TimeSlot.Before(to)
	}), nil
}

func (m *memBookings) ListActiveForTechnicians(_ context.Context, ids []int64, from, to time.Time) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := map[int64]bool{}
	for _, id := range ids {
		set[id] = true
	}
	window := domain.Interval{Start: from, End: to}
	return m.list(func(b models.Booking) bool {
		if b.TechnicianID == nil || !set[*b.TechnicianID] || b.Status == domain.StatusCancelled {
			return false
		}
		iv, ok := b.Interval()
		return ok && iv.Overlaps(window)
	}), nil
}

type memPackages map[int64]models.ServicePackage

func (m memPackages) GetByID(_ context.Context, id int64) (models.ServicePackage, error) {
	p, ok := m[id]
	if !ok {
		return models.ServicePackage{}, domain.NotFoundError{Resource: "service package"}
	}
	return p, nil
}

type memPool []models.Technician

func (m memPool) ListActive(context.Context, string) ([]models.Technician, error) {
	return m, nil
}

func washers(ids ...int64) memPool {
	out := memPool{}
	for _, id := range ids {
		out = append(out, models.Technician{ID: id, Role: models.RoleWasher, IsActive: true})
	}
	return out
}

type memInvoices struct {
	mu      sync.Mutex
	byBook  map[int64]models.Invoice
	failing error
}

func (m *memInvoices) CreateIfAbsent(_ context.Context, bookingID int64, amount decimal.Decimal, now time.Time) (models.Invoice, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing != nil {
		return models.Invoice{}, false, m.failing
	}
	if m.byBook == nil {
		m.byBook = map[int64]models.Invoice{}
	}
	if inv, ok := m.byBook[bookingID]; ok {
		return inv, false, nil
	}
	inv := models.Invoice{ID: int64(len(m.byBook) + 1), BookingID: bookingID, Amount: amount, CreatedAt: now}
	m.byBook[bookingID] = inv
	return inv, true, nil
}

type usageKey struct {
	chemical string
	booking  int64
}

type memInventory struct {
	mu      sync.Mutex
	stock   map[string]decimal.Decimal
	reorder decimal.Decimal
	used    map[usageKey]bool
}

func (m *memInventory) Deduct(_ context.Context, chemical string, qty decimal.Decimal, bookingID int64, _ time.Time) (models.InventoryDeduction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	have, ok := m.stock[chemical]
	if !ok {
		return models.InventoryDeduction{}, domain.NotFoundError{Resource: "chemical " + chemical, Err: domain.ErrChemicalNotFound}
	}
	if m.used == nil {
		m.used = map[usageKey]bool{}
	}
	d := models.InventoryDeduction{Chemical: chemical, Used: qty, ReorderLevel: m.reorder}
	key := usageKey{chemical, bookingID}
	if m.used[key] {
		d.Remaining = have
		d.AlreadyApplied = true
		return d, nil
	}
	m.used[key] = true
	m.stock[chemical] = have.Sub(qty)
	d.Remaining = m.stock[chemical]
	return d, nil
}

type payrollKey struct {
	tech int64
	date string
}

type memPayroll struct {
	mu      sync.Mutex
	entries map[payrollKey]decimal.Decimal
	posted  map[int64]bool
}

func (m *memPayroll) AccumulateCommission(_ context.Context, techID int64, date time.Time, amount decimal.Decimal, bookingID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = map[payrollKey]decimal.Decimal{}
		m.posted = map[int64]bool{}
	}
	if m.posted[bookingID] {
		return false, nil
	}
	m.posted[bookingID] = true
	k := payrollKey{techID, date.Format("2006-01-02")}
	m.entries[k] = m.entries[k].Add(amount)
	return true, nil
}

type memLoyaltyTrigger struct {
	mu      sync.Mutex
	calls   []int64
	failing error
}

func (m *memLoyaltyTrigger) OnBookingCompleted(_ context.Context, bookingID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing != nil {
		return m.failing
	}
	m.calls = append(m.calls, bookingID)
	return nil
}

type memLedger struct {
	mu      sync.Mutex
	awarded map[int64]models.LoyaltyAward
	balance map[int64]int64
}

func (m *memLedger) Award(_ context.Context, a models.LoyaltyAward) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.awarded == nil {
		m.awarded = map[int64]models.LoyaltyAward{}
		m.balance = map[int64]int64{}
	}
	if _, ok := m.awarded[a.BookingID]; ok {
		return false, nil
	}
	m.awarded[a.BookingID] = a
	m.balance[a.CustomerID] += a.Points
	return true, nil
}

type memRecorder struct {
	mu    sync.Mutex
	steps map[int64]map[string]models.FulfillmentStep
}

func (m *memRecorder) Record(_ context.Context, s models.FulfillmentStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.steps == nil {
		m.steps = map[int64]map[string]models.FulfillmentStep{}
	}
	if m.steps[s.BookingID] == nil {
		m.steps[s.BookingID] = map[string]models.FulfillmentStep{}
	}
	m.steps[s.BookingID][s.Step] = s
	return nil
}

func (m *memRecorder) ListByBooking(_ context.Context, bookingID int64) ([]models.FulfillmentStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.FulfillmentStep{}
	for _, name := range []string{models.StepInvoice, models.StepInventory, models.StepCommission, models.StepLoyalty} {
		if s, ok := m.steps[bookingID][name]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memRecorder) outcome(bookingID int64, step string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.steps[bookingID][step].Outcome
}

type cacheKey struct {
	date string
	gen  int64
	pkg  int64
}

type memCache struct {
	mu          sync.Mutex
	entries     map[cacheKey][]time.Time
	gens        map[string]int64
	invalidated []string
}

func (m *memCache) Get(_ context.Context, date string, pkg int64) ([]time.Time, int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gen := m.gens[date]
	s, ok := m.entries[cacheKey{date, gen, pkg}]
	return s, gen, ok, nil
}

func (m *memCache) Set(_ context.Context, date string, pkg, gen int64, slots []time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gens[date] != gen {
		return nil
	}
	if m.entries == nil {
		m.entries = map[cacheKey][]time.Time{}
	}
	m.entries[cacheKey{date, gen, pkg}] = slots
	return nil
}

func (m *memCache) Invalidate(_ context.Context, dates ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gens == nil {
		m.gens = map[string]int64{}
	}
	m.invalidated = append(m.invalidated, dates...)
	for _, d := range dates {
		m.gens[d]++
	}
	return nil
}

type memEvents struct {
	mu     sync.Mutex
	events []models.BookingEvent
}

func (m *memEvents) Publish(_ context.Context, ev models.BookingEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

var errBoom = errors.New("boom")

// Catalog used across the service tests: a 60 minute $50 wash with half a
// unit of soap and a 5 + 10% commission rule.
func testPackages() memPackages {
	return memPackages{
		1: {
			ID:              1,
			Name:            "Express",
			Category:        "wash",
			Price:           dec("50.00"),
			DurationMinutes: 60,
			Recipe:          domain.Recipe{"soap": dec("0.5")},
			CommissionRule:  &models.CommissionRule{ID: 1, FlatAmount: dec("5"), Percentage: dec("10")},
		},
		2: {ID: 2, Name: "Quick rinse", Category: "wash", Price: dec("20.00"), DurationMinutes: 30},
	}
}
