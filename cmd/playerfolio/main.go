package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/PlayerFolio/app/controllers"
	"github.com/ManuelReschke/PlayerFolio/app/repository"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/billing"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/cache"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/database"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/env"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/mail"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/media"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/router"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/scheduler"
)

const shutdownTimeout = 15 * time.Second

func main() {
	app, processor, sched := NewApplication()

	go func() {
		addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
		if err := app.Listen(addr); err != nil {
			log.Fatalf("[Server] Listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("[Server] Shutting down")

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Errorf("[Server] Shutdown failed: %v", err)
	}
	// acknowledged webhooks still being applied
	processor.Close()
	if err := sched.Stop(); err != nil {
		log.Errorf("[Server] %v", err)
	}
}

func NewApplication() (*fiber.App, *billing.Processor, *scheduler.Scheduler) {
	if !env.SetupEnvFile() {
		log.Info("[Config] No .env file found, using process environment")
	}
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()

	billingCfg, err := billing.LoadConfig()
	if err != nil {
		log.Fatalf("[Config] Billing: %v", err)
	}
	if billingCfg.WebhookSecret == "" {
		log.Warn("[Config] PAYSTACK_WEBHOOK_SECRET is not set, webhooks will be rejected")
	}

	catalog := billing.NewCatalog(billingCfg.PlanCodes, repos.Plan)
	notifier := mail.NewBillingNotifier(env.GetEnv("APP_NAME", "PlayerFolio"), mail.SendMail)
	processor := billing.NewProcessor(repos.User, catalog, billingCfg.WebhookSecret, billing.WithNotifier(notifier))
	sweeper := billing.NewSweeper(repos.User, billingCfg.GraceWindow, nil)
	service := billing.NewService(repos.User, repos.Plan, billing.NewPaystackClient(billingCfg), catalog, nil)

	ctx := context.Background()
	mediaCfg, err := media.LoadConfig()
	if err != nil {
		log.Fatalf("[Config] Media store: %v", err)
	}
	mediaStore, err := media.NewS3Store(ctx, mediaCfg)
	if err != nil {
		log.Fatalf("[Media] %v", err)
	}
	if err := mediaStore.EnsureBucket(ctx); err != nil {
		log.Fatalf("[Media] %v", err)
	}

	sched, err := scheduler.New()
	if err != nil {
		log.Fatalf("[Scheduler] %v", err)
	}
	if err := sched.RegisterSweep(sweeper, billingCfg.SweepHour, billingCfg.SweepMinute); err != nil {
		log.Fatalf("[Scheduler] %v", err)
	}
	sched.Start()

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName:   "PlayerFolio",
		BodyLimit: 64 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	router.InstallRouter(app, router.Config{
		Controller: controllers.New(controllers.Controller{
			Users:      repos.User,
			Media:      repos.Media,
			Billing:    service,
			Processor:  processor,
			Sweeper:    sweeper,
			MediaStore: mediaStore,
		}),
		Users:          repos.User,
		LimiterStorage: cache.NewFiberStorage(1),
		MetricsUser:    env.GetEnv("METRICS_USER", ""),
		MetricsPass:    env.GetEnv("METRICS_PASSWORD", ""),
	})

	return app, processor, sched
}
