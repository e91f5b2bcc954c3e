package reservation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/space-booking-backend/internal/events"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/daterange"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/lock"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/logger"
	"github.com/nekogravitycat/space-booking-backend/internal/space"
	"github.com/nekogravitycat/space-booking-backend/internal/user"
)

var fixedNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

type memRepo struct {
	mu     sync.Mutex
	rows   map[string]*Reservation
	spaces map[string]*space.Space

	// beforeUpdate runs inside UpdateStatus before the compare-and-set.
	beforeUpdate func(id string)
	// activeErr makes ActiveInRange fail.
	activeErr error
}

func newMemRepo(spaces map[string]*space.Space) *memRepo {
	return &memRepo{rows: make(map[string]*Reservation), spaces: spaces}
}

func (m *memRepo) join(r *Reservation) *Reservation {
	c := *r
	if sp, ok := m.spaces[r.SpaceID]; ok {
		c.SpaceTitle = sp.Title
		c.OwnerID = sp.OwnerID
		c.NightlyRate = sp.NightlyRate
	}
	return &c
}

// seed stores a reservation directly, bypassing the engine.
func (m *memRepo) seed(spaceID, tenantID, start, end string, status Status) *Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := &Reservation{
		ID:        uuid.NewString(),
		SpaceID:   spaceID,
		TenantID:  tenantID,
		StartDate: day(start),
		EndDate:   day(end),
		Status:    status,
		CreatedAt: fixedNow,
		UpdatedAt: fixedNow,
	}
	m.rows[r.ID] = r
	return m.join(r)
}

func (m *memRepo) Create(_ context.Context, r *Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.NewString()
	r.CreatedAt = fixedNow
	r.UpdatedAt = fixedNow
	stored := *r
	m.rows[r.ID] = &stored
	*r = *m.join(&stored)
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m.join(r), nil
}

func (m *memRepo) List(_ context.Context, f Filter) ([]*Reservation, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Reservation
	for _, r := range m.rows {
		j := m.join(r)
		if f.SpaceID != "" && j.SpaceID != f.SpaceID ||
			f.TenantID != "" && j.TenantID != f.TenantID ||
			f.OwnerID != "" && j.OwnerID != f.OwnerID {
			continue
		}
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].StartDate.Before(out[k].StartDate) })
	return out, len(out), nil
}

func (m *memRepo) ActiveInRange(_ context.Context, spaceID string, window daterange.Range) ([]*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeErr != nil {
		return nil, m.activeErr
	}
	var out []*Reservation
	for _, r := range m.rows {
		if r.SpaceID == spaceID && r.Status.IsActive() && r.Range().Overlaps(window) {
			out = append(out, m.join(r))
		}
	}
	return out, nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id string, from, to Status) (*Reservation, error) {
	if m.beforeUpdate != nil {
		m.beforeUpdate(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status != from {
		return nil, fmt.Errorf("reservation %s expected %s: %w", id, from, ErrStatusChanged)
	}
	r.Status = to
	r.UpdatedAt = fixedNow.Add(time.Minute)
	return m.join(r), nil
}

func (m *memRepo) ListEndedBefore(_ context.Context, status Status, date time.Time, limit int) ([]*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Reservation
	for _, r := range m.rows {
		if r.Status == status && r.EndDate.Before(date) {
			out = append(out, m.join(r))
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) CountByStatus(_ context.Context, f StatsFilter) (map[Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[Status]int)
	for _, r := range m.rows {
		j := m.join(r)
		if f.SpaceID != "" && j.SpaceID != f.SpaceID ||
			f.TenantID != "" && j.TenantID != f.TenantID ||
			f.OwnerID != "" && j.OwnerID != f.OwnerID {
			continue
		}
		counts[j.Status]++
	}
	return counts, nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memRepo) activeCount(spaceID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.SpaceID == spaceID && r.Status.IsActive() {
			n++
		}
	}
	return n
}

type stubSpaces map[string]*space.Space

func (s stubSpaces) GetByID(_ context.Context, id string) (*space.Space, error) {
	sp, ok := s[id]
	if !ok {
		return nil, space.ErrNotFound
	}
	return sp, nil
}

type stubUsers map[string]*user.User

func (u stubUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	usr, ok := u[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return usr, nil
}

func (u stubUsers) Actor(ctx context.Context, id string) (user.Actor, error) {
	usr, err := u.GetByID(ctx, id)
	if err != nil {
		return user.Actor{}, err
	}
	return user.Actor{UserID: usr.ID, IsAdmin: usr.IsSystemAdmin}, nil
}

type stubBlocks struct {
	mu     sync.Mutex
	ranges map[string][]daterange.Range
	err    error
}

func (b *stubBlocks) add(spaceID, start, end string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ranges == nil {
		b.ranges = make(map[string][]daterange.Range)
	}
	b.ranges[spaceID] = append(b.ranges[spaceID], daterange.Span(day(start), day(end)))
}

func (b *stubBlocks) BlockedRanges(_ context.Context, spaceID string, window daterange.Range) ([]daterange.Range, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	var out []daterange.Range
	for _, r := range b.ranges[spaceID] {
		if r.Overlaps(window) {
			out = append(out, r)
		}
	}
	return out, nil
}

type failingLocker struct{ err error }

func (l failingLocker) Lock(context.Context, string) (func(), error) {
	return nil, l.err
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Name
	}
	return out
}

const (
	loftID       = "space-1"
	ownerUserID  = "owner-1"
	tenantUserID = "tenant-1"
	otherUserID  = "tenant-2"
	adminUserID  = "admin-1"
)

var (
	asOwner    = user.Actor{UserID: ownerUserID}
	asTenant   = user.Actor{UserID: tenantUserID}
	asStranger = user.Actor{UserID: otherUserID}
	asAdmin    = user.Actor{UserID: adminUserID, IsAdmin: true}
)

type fixture struct {
	svc    *service
	repo   *memRepo
	blocks *stubBlocks
	pub    *recorder
}

func newFixture() *fixture {
	spaces := stubSpaces{
		loftID: {ID: loftID, OwnerID: ownerUserID, Title: "Harbour loft", NightlyRate: 10000},
	}
	users := stubUsers{
		ownerUserID:  {ID: ownerUserID, IsActive: true},
		tenantUserID: {ID: tenantUserID, IsActive: true},
		otherUserID:  {ID: otherUserID, IsActive: true},
		adminUserID:  {ID: adminUserID, IsActive: true, IsSystemAdmin: true},
	}
	repo := newMemRepo(spaces)
	blocks := &stubBlocks{}
	pub := &recorder{}

	svc := newService(repo, spaces, users, blocks, lock.NewKeyedMutex(), pub, logger.Discard())
	svc.now = func() time.Time { return fixedNow }
	return &fixture{svc: svc, repo: repo, blocks: blocks, pub: pub}
}
