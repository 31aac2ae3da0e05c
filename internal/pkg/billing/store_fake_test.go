package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ManuelReschke/PlayerFolio/app/models"
)

// memStore is an in-memory Store used by the billing tests.
type memStore struct {
	mu       sync.Mutex
	users    map[uint]*models.User
	writes   int
	setErr   error
	sweepErr error
}

func newMemStore(users ...*models.User) *memStore {
	s := &memStore{users: map[uint]*models.User{}}
	for _, u := range users {
		cp := *u
		s.users[u.ID] = &cp
	}
	return s
}

func (s *memStore) GetByID(_ context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrSubscriberNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrSubscriberNotFound
}

func (s *memStore) GetByProviderSubscriptionID(_ context.Context, subscriptionID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ProviderSubscriptionID != nil && *u.ProviderSubscriptionID == subscriptionID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrSubscriberNotFound
}

func (s *memStore) SetBilling(_ context.Context, id uint, b models.Billing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	u, ok := s.users[id]
	if !ok {
		return ErrSubscriberNotFound
	}
	b = b.Normalize()
	if err := b.Validate(); err != nil {
		return err
	}
	u.SetBilling(b)
	s.writes++
	return nil
}

func (s *memStore) DowngradeLapsed(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sweepErr != nil {
		return 0, s.sweepErr
	}
	var changed int64
	for _, u := range s.users {
		if u.Plan != models.PlanFree && u.RenewalDate != nil && u.RenewalDate.Before(cutoff) {
			u.SetBilling(models.FreeBilling())
			changed++
		}
	}
	s.writes += int(changed)
	return changed, nil
}

func (s *memStore) billing(id uint) models.Billing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id].Billing()
}

// fingerprint renders every record for before/after comparisons.
func (s *memStore) fingerprint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	var sb strings.Builder
	for _, id := range ids {
		b := s.users[uint(id)].Billing()
		renewal := "-"
		if b.RenewalDate != nil {
			renewal = b.RenewalDate.UTC().Format(time.RFC3339Nano)
		}
		fmt.Fprintf(&sb, "%d:%s:%s:%s;", id, b.Plan, renewal, b.SubscriptionID())
	}
	return sb.String()
}

// memPlanStore is an in-memory PlanStore.
type memPlanStore struct {
	mu     sync.Mutex
	nextID uint
	plans  map[uint]*models.Plan
}

func newMemPlanStore(plans ...models.Plan) *memPlanStore {
	s := &memPlanStore{plans: map[uint]*models.Plan{}}
	for _, p := range plans {
		cp := p
		_ = s.Create(context.Background(), &cp)
	}
	return s
}

func (s *memPlanStore) Create(_ context.Context, plan *models.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	plan.ID = s.nextID
	cp := *plan
	s.plans[plan.ID] = &cp
	return nil
}

func (s *memPlanStore) GetByID(_ context.Context, id uint) (*models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, ErrPlanNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memPlanStore) GetByProviderCode(_ context.Context, code string) (*models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.plans {
		if p.ProviderPlanCode == code && p.IsActive {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPlanNotFound
}

func (s *memPlanStore) ListActive(_ context.Context) ([]models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Plan
	for _, p := range s.plans {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memPlanStore) Update(_ context.Context, plan *models.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[plan.ID]; !ok {
		return ErrPlanNotFound
	}
	cp := *plan
	s.plans[plan.ID] = &cp
	return nil
}

// fakeGateway records calls and returns the configured errors.
type fakeGateway struct {
	mu sync.Mutex

	subscriptionCode string
	createSubErr     error
	disableErr       error
	planCode         string
	planErr          error

	subscribed []string
	disabled   []string
	planCalls  []string
}

func (g *fakeGateway) CreateSubscription(_ context.Context, customer, planCode string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subscribed = append(g.subscribed, customer+"|"+planCode)
	if g.createSubErr != nil {
		return "", g.createSubErr
	}
	return g.subscriptionCode, nil
}

func (g *fakeGateway) DisableSubscription(_ context.Context, code string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disabled = append(g.disabled, code)
	return g.disableErr
}

func (g *fakeGateway) CreatePlan(_ context.Context, in PlanInput) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.planCalls = append(g.planCalls, "create:"+in.Name)
	if g.planErr != nil {
		return "", g.planErr
	}
	return g.planCode, nil
}

func (g *fakeGateway) UpdatePlan(_ context.Context, code string, in PlanInput) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.planCalls = append(g.planCalls, "update:"+code)
	return g.planErr
}

func (g *fakeGateway) DeactivatePlan(_ context.Context, code string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.planCalls = append(g.planCalls, "deactivate:"+code)
	return g.planErr
}

var errBoom = errors.New("boom")

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func strPtr(s string) *string {
	return &s
}

func paidUser(id uint, email string, plan models.SubscriptionPlan, renewal time.Time, subscriptionID string) *models.User {
	u := &models.User{ID: id, Name: "Player", Email: email, Active: true}
	u.SetBilling(models.Billing{Plan: plan, RenewalDate: &renewal, ProviderSubscriptionID: models.StringPtr(subscriptionID)})
	return u
}

func freeUser(id uint, email string) *models.User {
	u := &models.User{ID: id, Name: "Player", Email: email, Active: true}
	u.SetBilling(models.FreeBilling())
	return u
}
