package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

var errStoreDown = errors.New("store unavailable")

type stubUserRepo struct {
	mu       sync.Mutex
	byID     map[string]*domain.User
	seq      int
	findErr  error // if set, FindByID/FindByEmail return this error
	touchErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) put(u *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[u.ID] = cloneUser(u)
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.seq++
	c := cloneUser(user)
	c.ID = fmt.Sprintf("user-%d", r.seq)
	r.byID[c.ID] = c
	return cloneUser(c), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.byID {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, cloneUser(u))
	}
	return out, nil
}

func (r *stubUserRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.touchErr != nil {
		return r.touchErr
	}
	if u, ok := r.byID[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

type stubProductRepo struct {
	byID map[string]*domain.Product
	seq  int
	err  error
}

func newStubProductRepo(products ...*domain.Product) *stubProductRepo {
	r := &stubProductRepo{byID: make(map[string]*domain.Product)}
	for _, p := range products {
		c := *p
		r.byID[p.ID] = &c
	}
	return r
}

func (r *stubProductRepo) FindByID(_ context.Context, id string) (*domain.Product, error) {
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	c := *p
	return &c, nil
}

func (r *stubProductRepo) List(_ context.Context) ([]*domain.Product, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]*domain.Product, 0, len(r.byID))
	for _, p := range r.byID {
		c := *p
		out = append(out, &c)
	}
	return out, nil
}

func (r *stubProductRepo) Create(_ context.Context, p *domain.Product) error {
	if r.err != nil {
		return r.err
	}
	r.seq++
	p.ID = fmt.Sprintf("product-%d", r.seq)
	c := *p
	r.byID[p.ID] = &c
	return nil
}

func (r *stubProductRepo) Update(_ context.Context, p *domain.Product) error {
	if _, ok := r.byID[p.ID]; !ok {
		return domain.ErrProductNotFound
	}
	c := *p
	r.byID[p.ID] = &c
	return nil
}

func (r *stubProductRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.byID, id)
	return nil
}

// stubOrderRepo mirrors the Mongo conditional update: UpdateStatusIf only
// applies while the stored status equals from.
type stubOrderRepo struct {
	mu        sync.Mutex
	byID      map[string]*domain.Order
	seq       int
	creates   int
	createErr error
	updateErr error
	// beforeUpdate runs inside UpdateStatusIf before the compare, to simulate a concurrent writer.
	beforeUpdate func(o *domain.Order)
	lastFilter   ports.ListOrdersFilter
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{byID: make(map[string]*domain.Order)}
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = append([]domain.OrderItem(nil), o.Items...)
	return &c
}

func (r *stubOrderRepo) seed(id, userID string, status domain.OrderStatus) *domain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := &domain.Order{ID: id, UserID: userID, Status: status, CreatedAt: time.Now().UTC()}
	r.byID[id] = o
	return cloneOrder(o)
}

func (r *stubOrderRepo) status(id string) domain.OrderStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id].Status
}

func (r *stubOrderRepo) Create(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.seq++
	r.creates++
	o.ID = fmt.Sprintf("order-%d", r.seq)
	r.byID[o.ID] = cloneOrder(o)
	return nil
}

func (r *stubOrderRepo) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *stubOrderRepo) List(_ context.Context, f ports.ListOrdersFilter) ([]*domain.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = f

	var matched []*domain.Order
	for _, o := range r.byID {
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		matched = append(matched, cloneOrder(o))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	skip := (f.Page - 1) * f.Limit
	if skip > len(matched) {
		return []*domain.Order{}, total, nil
	}
	end := skip + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], total, nil
}

func (r *stubOrderRepo) UpdateStatusIf(_ context.Context, id string, from, to domain.OrderStatus, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return 0, r.updateErr
	}
	o, ok := r.byID[id]
	if !ok {
		return 0, nil
	}
	if r.beforeUpdate != nil {
		r.beforeUpdate(o)
	}
	if o.Status != from {
		return 0, nil
	}
	o.Status = to
	o.UpdatedAt = at
	return 1, nil
}

func (r *stubOrderRepo) Stats(_ context.Context) (*domain.OrderStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &domain.OrderStats{TotalOrders: int64(len(r.byID))}, nil
}

// stubIdempotency holds "" for a reserved key until Remember stores the id.
type stubIdempotency struct {
	mu         sync.Mutex
	keys       map[string]string
	reserveErr error
	// afterReserve runs once, right after a key is claimed, to let a competing
	// request in while the first create is still running.
	afterReserve func()
}

func newStubIdempotency() *stubIdempotency {
	return &stubIdempotency{keys: make(map[string]string)}
}

func (s *stubIdempotency) Reserve(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	if s.reserveErr != nil {
		s.mu.Unlock()
		return "", false, s.reserveErr
	}
	if id, held := s.keys[key]; held {
		s.mu.Unlock()
		return id, false, nil
	}
	s.keys[key] = ""
	hook := s.afterReserve
	s.afterReserve = nil
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return "", true, nil
}

func (s *stubIdempotency) Remember(_ context.Context, key, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.keys[key]; !held {
		return false, nil
	}
	s.keys[key] = orderID
	return true, nil
}

func (s *stubIdempotency) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func (s *stubIdempotency) held(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.OrderEvent
}

func (n *recordingNotifier) Enqueue(ev domain.OrderEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) all() []domain.OrderEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.OrderEvent(nil), n.events...)
}
