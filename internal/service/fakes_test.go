package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"rapidroad/internal/model"
	"rapidroad/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// memDB is an in-memory trip ledger. Its transaction manager holds one lock
// for the whole transaction, which stands in for the row locks taken by
// FindByIDForUpdate in postgres.
type memDB struct {
	txMu sync.Mutex

	mu        sync.Mutex
	users     map[uuid.UUID]model.User
	bookings  map[uuid.UUID]model.Booking
	locations map[uuid.UUID]model.BookingLocation
	trips     map[uuid.UUID]model.Trip
	driverLoc []model.DriverLocation
	audits    []model.AuditLog
}

func newMemDB() *memDB {
	return &memDB{
		users:     map[uuid.UUID]model.User{},
		bookings:  map[uuid.UUID]model.Booking{},
		locations: map[uuid.UUID]model.BookingLocation{},
		trips:     map[uuid.UUID]model.Trip{},
	}
}

type txKeyType struct{}

type memTx struct{ db *memDB }

func (m memTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if ctx.Value(txKeyType{}) != nil {
		return fn(ctx)
	}
	m.db.txMu.Lock()
	defer m.db.txMu.Unlock()

	m.db.mu.Lock()
	snapshot := m.db.snapshot()
	m.db.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKeyType{}, true)); err != nil {
		m.db.mu.Lock()
		m.db.restore(snapshot)
		m.db.mu.Unlock()
		return err
	}
	return nil
}

type memSnapshot struct {
	users     map[uuid.UUID]model.User
	bookings  map[uuid.UUID]model.Booking
	locations map[uuid.UUID]model.BookingLocation
	trips     map[uuid.UUID]model.Trip
	audits    int
	driverLoc int
}

func (d *memDB) snapshot() memSnapshot {
	s := memSnapshot{
		users:     map[uuid.UUID]model.User{},
		bookings:  map[uuid.UUID]model.Booking{},
		locations: map[uuid.UUID]model.BookingLocation{},
		trips:     map[uuid.UUID]model.Trip{},
		audits:    len(d.audits),
		driverLoc: len(d.driverLoc),
	}
	for k, v := range d.users {
		s.users[k] = v
	}
	for k, v := range d.bookings {
		s.bookings[k] = v
	}
	for k, v := range d.locations {
		s.locations[k] = v
	}
	for k, v := range d.trips {
		s.trips[k] = v
	}
	return s
}

func (d *memDB) restore(s memSnapshot) {
	d.users, d.bookings, d.locations, d.trips = s.users, s.bookings, s.locations, s.trips
	d.audits = d.audits[:s.audits]
	d.driverLoc = d.driverLoc[:s.driverLoc]
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// users

type memUsers struct{ db *memDB }

func (r memUsers) Create(_ context.Context, u *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.users {
		if existing.Email == u.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.db.users[u.ID] = *u
	return nil
}

func (r memUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memUsers) List(_ context.Context, f repository.UserFilter) ([]model.User, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.User
	for _, u := range r.db.users {
		if (f.Role == "" || u.Role == f.Role) && (f.Status == "" || u.Status == f.Status) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), int64(len(out)), nil
}

func (r memUsers) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Status = status
	r.db.users[id] = u
	return nil
}

func (r memUsers) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if u, ok := r.db.users[id]; ok {
		u.LastLoginAt = &at
		r.db.users[id] = u
	}
	return nil
}

func (r memUsers) CountByRole(_ context.Context, role string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, u := range r.db.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (r memUsers) CountActiveByRole(_ context.Context, role string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, u := range r.db.users {
		if u.Role == role && u.IsActive() {
			n++
		}
	}
	return n, nil
}

// bookings

type memBookings struct{ db *memDB }

func (r memBookings) Create(_ context.Context, b *model.Booking) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	r.db.bookings[b.ID] = *b
	return nil
}

func (r memBookings) CreateLocation(_ context.Context, loc *model.BookingLocation) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if loc.ID == uuid.Nil {
		loc.ID = uuid.New()
	}
	r.db.locations[loc.BookingID] = *loc
	return nil
}

func (r memBookings) FindByID(_ context.Context, id uuid.UUID) (*model.Booking, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &b, nil
}

func (r memBookings) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	return r.FindByID(ctx, id)
}

func (r memBookings) FindLocation(_ context.Context, bookingID uuid.UUID) (*model.BookingLocation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	loc, ok := r.db.locations[bookingID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &loc, nil
}

func (r memBookings) List(_ context.Context, f repository.BookingFilter) ([]model.Booking, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Booking
	for _, b := range r.db.bookings {
		if f.CustomerID != nil && b.CustomerID != *f.CustomerID {
			continue
		}
		if f.DriverID != nil && (b.AssignedDriverID == nil || *b.AssignedDriverID != *f.DriverID) {
			continue
		}
		if f.Status != "" && string(b.Status) != f.Status {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), int64(len(out)), nil
}

func (r memBookings) Update(_ context.Context, b *model.Booking) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.bookings[b.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	b.UpdatedAt = time.Now()
	r.db.bookings[b.ID] = *b
	return nil
}

// trips

type memTrips struct{ db *memDB }

func (r memTrips) Create(_ context.Context, t *model.Trip) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.trips {
		if existing.BookingID == t.BookingID {
			return gorm.ErrDuplicatedKey
		}
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	r.db.trips[t.ID] = *t
	return nil
}

func (r memTrips) FindByID(_ context.Context, id uuid.UUID) (*model.Trip, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.trips[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r memTrips) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Trip, error) {
	return r.FindByID(ctx, id)
}

func (r memTrips) FindByBookingIDForUpdate(_ context.Context, bookingID uuid.UUID) (*model.Trip, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, t := range r.db.trips {
		if t.BookingID == bookingID {
			t := t
			return &t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memTrips) List(_ context.Context, f repository.TripFilter) ([]model.Trip, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Trip
	for _, t := range r.db.trips {
		if f.DriverID != nil && t.DriverID != *f.DriverID {
			continue
		}
		if f.Status != "" && string(t.Status) != f.Status {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), int64(len(out)), nil
}

func (r memTrips) Update(_ context.Context, t *model.Trip) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.trips[t.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	t.UpdatedAt = time.Now()
	r.db.trips[t.ID] = *t
	return nil
}

func (d *memDB) tripCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.trips)
}

func (d *memDB) auditCount(action string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, a := range d.audits {
		if a.Action == action {
			n++
		}
	}
	return n
}

// audit

type memAudit struct{ db *memDB }

func (r memAudit) Log(_ context.Context, entry *model.AuditLog) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	r.db.audits = append(r.db.audits, *entry)
	return nil
}

func (r memAudit) List(_ context.Context, action string, limit, offset int) ([]model.AuditLog, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.AuditLog
	for i := len(r.db.audits) - 1; i >= 0; i-- {
		if action == "" || r.db.audits[i].Action == action {
			out = append(out, r.db.audits[i])
		}
	}
	return page(out, limit, offset), int64(len(out)), nil
}

// driver locations

type memDriverLocations struct{ db *memDB }

func (r memDriverLocations) Create(_ context.Context, loc *model.DriverLocation) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	loc.ID = int64(len(r.db.driverLoc) + 1)
	r.db.driverLoc = append(r.db.driverLoc, *loc)
	return nil
}

func (r memDriverLocations) Latest(_ context.Context, driverID uuid.UUID) (*model.DriverLocation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := len(r.db.driverLoc) - 1; i >= 0; i-- {
		if r.db.driverLoc[i].DriverID == driverID {
			loc := r.db.driverLoc[i]
			return &loc, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// notifications

type event struct {
	kind    string
	booking model.Booking
	trip    model.Trip
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []event
}

func (n *recordingNotifier) add(e event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) TripUpdated(_ context.Context, b *model.Booking, t *model.Trip) {
	n.add(event{kind: "trip", booking: *b, trip: *t})
}

func (n *recordingNotifier) BookingCreated(_ context.Context, b *model.Booking, _ *model.BookingLocation) {
	n.add(event{kind: "booking.created", booking: *b})
}

func (n *recordingNotifier) BookingStatusChanged(_ context.Context, b *model.Booking) {
	n.add(event{kind: "booking.status", booking: *b})
}

func (n *recordingNotifier) DriverLocationUpdated(context.Context, *model.DriverLocation) {
	n.add(event{kind: "driver.location"})
}

func (n *recordingNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.kind == kind {
			c++
		}
	}
	return c
}

// fixture wires every service against one memDB.
type fixture struct {
	db       *memDB
	notifier *recordingNotifier
	dispatch DispatchService
	bookings BookingService
}

func newFixture(cfg DispatchConfig) *fixture {
	db := newMemDB()
	n := &recordingNotifier{}
	tx := memTx{db: db}
	return &fixture{
		db:       db,
		notifier: n,
		dispatch: NewDispatchService(tx, memBookings{db}, memTrips{db}, memUsers{db}, memAudit{db}, n, cfg),
		bookings: NewBookingService(tx, memBookings{db}, n),
	}
}

func (f *fixture) addUser(role, status string) Actor {
	u := &model.User{Email: uuid.NewString() + "@example.com", Role: role, Status: status}
	_ = memUsers{f.db}.Create(context.Background(), u)
	return Actor{ID: u.ID, Role: role}
}

func (f *fixture) addBooking(customer uuid.UUID, status model.BookingStatus) uuid.UUID {
	b := &model.Booking{CustomerID: customer, Status: status, Currency: "GBP"}
	_ = memBookings{f.db}.Create(context.Background(), b)
	return b.ID
}

func (f *fixture) booking(id uuid.UUID) model.Booking {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.db.bookings[id]
}

func (f *fixture) trip(id uuid.UUID) model.Trip {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.db.trips[id]
}
