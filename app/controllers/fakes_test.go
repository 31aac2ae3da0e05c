package controllers

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ManuelReschke/PlayerFolio/app/models"
	"github.com/ManuelReschke/PlayerFolio/app/repository"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/billing"
)

var errBoom = errors.New("boom")

type fakeUsers struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*models.User
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{users: map[uint]*models.User{}, nextID: 100}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) copyOf(u *models.User) *models.User {
	cp := *u
	return &cp
}

func (f *fakeUsers) get(id uint) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.copyOf(f.users[id])
}

func (f *fakeUsers) GetByID(_ context.Context, id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return f.copyOf(u), nil
	}
	return nil, billing.ErrSubscriberNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return f.copyOf(u), nil
		}
	}
	return nil, billing.ErrSubscriberNotFound
}

func (f *fakeUsers) GetByProviderSubscriptionID(_ context.Context, code string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Billing().SubscriptionID() == code {
			return f.copyOf(u), nil
		}
	}
	return nil, billing.ErrSubscriberNotFound
}

func (f *fakeUsers) GetByAPIKeyHash(_ context.Context, hash string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.APIKeyHash == hash {
			return f.copyOf(u), nil
		}
	}
	return nil, billing.ErrSubscriberNotFound
}

func (f *fakeUsers) SetBilling(_ context.Context, id uint, b models.Billing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return billing.ErrSubscriberNotFound
	}
	u.SetBilling(b)
	return nil
}

func (f *fakeUsers) DowngradeLapsed(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var changed int64
	for _, u := range f.users {
		if u.Plan != models.PlanFree && u.RenewalDate != nil && u.RenewalDate.Before(cutoff) {
			u.SetBilling(models.FreeBilling())
			changed++
		}
	}
	return changed, nil
}

func (f *fakeUsers) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	user.ID = f.nextID
	f.users[user.ID] = f.copyOf(user)
	return nil
}

func (f *fakeUsers) Update(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.users[user.ID]
	if !ok {
		return billing.ErrSubscriberNotFound
	}
	cp := *user
	cp.SetBilling(stored.Billing())
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUsers) ListSubscribers(_ context.Context, offset, limit int) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		if !u.Deleted {
			all = append(all, *u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset >= len(all) {
		return nil, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (f *fakeUsers) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, u := range f.users {
		if !u.Deleted {
			n++
		}
	}
	return n, nil
}

var _ repository.UserRepository = (*fakeUsers)(nil)

type fakePlans struct {
	mu    sync.Mutex
	plans map[uint]*models.Plan
}

func newFakePlans(plans ...models.Plan) *fakePlans {
	f := &fakePlans{plans: map[uint]*models.Plan{}}
	for i := range plans {
		p := plans[i]
		f.plans[p.ID] = &p
	}
	return f
}

func (f *fakePlans) Create(_ context.Context, plan *models.Plan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	plan.ID = uint(len(f.plans) + 1)
	cp := *plan
	f.plans[plan.ID] = &cp
	return nil
}

func (f *fakePlans) GetByID(_ context.Context, id uint) (*models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.plans[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, billing.ErrPlanNotFound
}

func (f *fakePlans) GetByProviderCode(_ context.Context, code string) (*models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.plans {
		if p.ProviderPlanCode == code && p.IsActive {
			cp := *p
			return &cp, nil
		}
	}
	return nil, billing.ErrPlanNotFound
}

func (f *fakePlans) ListActive(_ context.Context) ([]models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Plan
	for _, p := range f.plans {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePlans) Update(_ context.Context, plan *models.Plan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *plan
	f.plans[plan.ID] = &cp
	return nil
}

type fakeMedia struct {
	mu    sync.Mutex
	items []models.Media
}

func (f *fakeMedia) Create(_ context.Context, m *models.Media) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = uint(len(f.items) + 1)
	f.items = append(f.items, *m)
	return nil
}

func (f *fakeMedia) GetByUUID(_ context.Context, id string) (*models.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.items {
		if m.UUID == id {
			cp := m
			return &cp, nil
		}
	}
	return nil, repository.ErrMediaNotFound
}

func (f *fakeMedia) ListByUserID(_ context.Context, userID uint) ([]models.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Media
	for _, m := range f.items {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMedia) CountByUserID(ctx context.Context, userID uint) (int64, error) {
	items, _ := f.ListByUserID(ctx, userID)
	return int64(len(items)), nil
}

func (f *fakeMedia) Delete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.items {
		if m.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrMediaNotFound
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func (f *fakeObjects) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = raw
	return nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeObjects) URL(key string) string {
	return "https://cdn.example.com/" + key
}

type fakeGateway struct {
	subscriptionCode string
	createSubErr     error
	disableErr       error
	subscribed       []string
	disabled         []string
}

func (g *fakeGateway) CreateSubscription(_ context.Context, customer, planCode string) (string, error) {
	if g.createSubErr != nil {
		return "", g.createSubErr
	}
	g.subscribed = append(g.subscribed, customer+"|"+planCode)
	return g.subscriptionCode, nil
}

func (g *fakeGateway) DisableSubscription(_ context.Context, code string) error {
	if g.disableErr != nil {
		return g.disableErr
	}
	g.disabled = append(g.disabled, code)
	return nil
}

func (g *fakeGateway) CreatePlan(context.Context, billing.PlanInput) (string, error) {
	return "PLN_new", nil
}

func (g *fakeGateway) UpdatePlan(context.Context, string, billing.PlanInput) error { return nil }

func (g *fakeGateway) DeactivatePlan(context.Context, string) error { return nil }
