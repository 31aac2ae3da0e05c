package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PlayerFolio/app/models"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/billing"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/cache"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/middleware"
)

const testWebhookSecret = "sk_test_webhook"

var testNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	app       *fiber.App
	users     *fakeUsers
	plans     *fakePlans
	media     *fakeMedia
	objects   *fakeObjects
	gateway   *fakeGateway
	processor *billing.Processor
	redis     *miniredis.Miniredis
	keys      map[uint]string
}

func newTestEnv(t *testing.T, users ...*models.User) *testEnv {
	t.Helper()

	env := &testEnv{
		users:   newFakeUsers(),
		plans:   newFakePlans(),
		media:   &fakeMedia{},
		objects: &fakeObjects{},
		gateway: &fakeGateway{subscriptionCode: "SUB_new"},
		redis:   miniredis.RunT(t),
		keys:    map[uint]string{},
	}
	cache.UseClient(redis.NewClient(&redis.Options{Addr: env.redis.Addr()}))

	for _, u := range users {
		key, err := u.IssueAPIKey()
		require.NoError(t, err)
		env.keys[u.ID] = key
		env.users.users[u.ID] = u
	}

	clock := func() time.Time { return testNow }
	catalog := billing.NewCatalog(map[string]models.SubscriptionPlan{
		"PLN_monthly": models.PlanMonthly,
		"PLN_yearly":  models.PlanYearly,
	}, env.plans)

	env.processor = billing.NewProcessor(env.users, catalog, testWebhookSecret, billing.WithSynchronousDispatch(), billing.WithProcessorClock(clock))
	ctl := New(Controller{
		Users:      env.users,
		Media:      env.media,
		Billing:    billing.NewService(env.users, env.plans, env.gateway, catalog, clock),
		Processor:  env.processor,
		Sweeper:    billing.NewSweeper(env.users, 48*time.Hour, clock),
		MediaStore: env.objects,
		Now:        clock,
	})

	app := fiber.New()
	v1 := app.Group("/api/v1")
	v1.Post("/billing/webhook", ctl.HandleBillingWebhook)
	v1.Post("/auth/register", ctl.HandleAuthRegister)
	v1.Post("/auth/login", ctl.HandleAuthLogin)
	v1.Get("/plans", ctl.HandleListPlans)

	auth := v1.Group("", middleware.APIKeyAuthMiddleware(env.users))
	auth.Get("/user/account", ctl.HandleGetUserAccount)
	auth.Get("/user/subscription", ctl.HandleGetSubscription)
	auth.Post("/user/subscription", ctl.HandleSubscribe)
	auth.Get("/user/media", ctl.HandleListMedia)
	auth.Post("/user/media", ctl.HandleUploadMedia)
	auth.Delete("/user/media/:uuid", ctl.HandleDeleteMedia)
	auth.Post("/users/:id/subscription/cancel", ctl.HandleCancelSubscription)

	admin := auth.Group("/admin", middleware.RequireAdmin)
	admin.Get("/subscribers", ctl.HandleListSubscribers)
	admin.Post("/subscriptions/sweep", ctl.HandleRunSweep)
	admin.Post("/users/:id/subscription/reactivate", ctl.HandleReactivateSubscription)
	admin.Post("/plans", ctl.HandleCreatePlan)
	admin.Put("/plans/:id", ctl.HandleUpdatePlan)
	admin.Delete("/plans/:id", ctl.HandleDeletePlan)

	env.app = app
	return env
}

// do sends a request as user id (0 for anonymous) and decodes a JSON body into out.
func (e *testEnv) do(t *testing.T, method, path string, as uint, body interface{}, out interface{}) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != 0 {
		req.Header.Set("X-API-Key", e.keys[as])
	}
	return e.send(t, req, out)
}

func (e *testEnv) send(t *testing.T, req *http.Request, out interface{}) int {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		if len(raw) > 0 {
			require.NoError(t, json.Unmarshal(raw, out), string(raw))
		}
	}
	return resp.StatusCode
}

func player(id uint, email string) *models.User {
	u := &models.User{ID: id, Name: "Player", Email: email, Role: models.ROLE_USER, Active: true, CreatedAt: testNow.AddDate(-1, 0, 0)}
	u.SetBilling(models.FreeBilling())
	return u
}

func adminUser(id uint) *models.User {
	u := player(id, "admin@example.com")
	u.Role = models.ROLE_ADMIN
	return u
}

func subscriber(id uint, email string, plan models.SubscriptionPlan, renewal time.Time, code string) *models.User {
	u := player(id, email)
	u.SetBilling(models.Billing{Plan: plan, RenewalDate: &renewal, ProviderSubscriptionID: models.StringPtr(code)})
	return u
}
