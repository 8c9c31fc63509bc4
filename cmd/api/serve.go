package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/ligue-crm/internal/config"
	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/cache"
	"github.com/xavierca1/ligue-crm/internal/infra/database"
	"github.com/xavierca1/ligue-crm/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-crm/internal/infra/mail"
	"github.com/xavierca1/ligue-crm/internal/infra/queue"
	"github.com/xavierca1/ligue-crm/internal/infra/worker"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

const memoryCacheSize = 10000

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	clk := clock.New()

	// 1. Database
	store, err := database.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()
	if err := database.NewMigrator(store, log).Up(ctx); err != nil {
		return err
	}

	leadRepo := database.NewLeadRepository(store)
	conversationRepo := database.NewConversationRepository(store)
	campaignRepo := database.NewCampaignRepository(store)
	taskRepo := database.NewTaskRepository(store)
	notificationRepo := database.NewNotificationRepository(store)
	suggestionRepo := database.NewSuggestionRepository(store)
	userRepo := database.NewUserRepository(store)
	dashboardRepo := database.NewDashboardRepository(store)

	checks := map[string]handlers.CheckFunc{"database": store.Ping}

	// 2. Cache
	var dashCache usecase.Cache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer rc.Close()
		dashCache = rc
		checks["cache"] = rc.Ping
	} else {
		mc := cache.NewMemoryCache(memoryCacheSize, cfg.DashboardCacheTTL, clk)
		dashCache = mc
		checks["cache"] = mc.Ping
		log.Info("REDIS_URL not set, using in-process dashboard cache")
	}

	// 3. Event bus
	var (
		events   entity.EventPublisher
		localBus *queue.LocalBus
		rabbit   *queue.RabbitMQ
	)
	if cfg.AMQPURL != "" {
		rabbit, err = queue.NewRabbitMQ(cfg.AMQPURL)
		if err != nil {
			return err
		}
		defer rabbit.Close()
		events = queue.NewProducer(rabbit.Ch)
		checks["rabbitmq"] = func(context.Context) error { return rabbit.Ping() }
	} else {
		localBus = queue.NewLocalBus(log)
		events = localBus
		checks["rabbitmq"] = nil
		log.Info("AMQP_URL not set, dispatching events in-process")
	}

	var mailer usecase.Mailer
	if cfg.MailEnabled() {
		mailer = mail.NewEmailSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.MailFrom)
	} else {
		log.Warn("mail not configured, campaign EMAIL steps will fail")
	}

	// 4. UseCases
	leads := usecase.NewLeadUseCase(leadRepo, events, clk, log)
	conversations := usecase.NewConversationUseCase(conversationRepo, leadRepo, events, clk, log)
	campaigns := usecase.NewCampaignUseCase(campaignRepo, leadRepo, events, clk, log)
	tasks := usecase.NewTaskUseCase(taskRepo, leadRepo, campaignRepo, events, clk, log)
	notifications := usecase.NewNotificationUseCase(notificationRepo, clk, log)
	users := usecase.NewUserUseCase(userRepo, clk, log)
	exports := usecase.NewExportUseCase(leads, tasks, conversationRepo, cfg.ExportRatePerMin, clk, log)

	var dashboard usecase.DashboardService = usecase.NewDashboardUseCase(
		dashboardRepo, leadRepo, taskRepo, suggestionRepo, notificationRepo,
		dashCache, cfg.DashboardCacheTTL, clk, log,
	)
	dashboard = usecase.NewDashboardLogger(log, dashboard)
	eventHandler := usecase.NewEventHandler(dashboard, notifications, log)

	runner := &usecase.CampaignRunner{
		Campaigns:     campaignRepo,
		Leads:         leadRepo,
		Tasks:         taskRepo,
		Conversations: conversationRepo,
		Mailer:        mailer,
		Events:        events,
		Clock:         clk,
		Log:           log,
	}
	reminder := &usecase.TaskReminder{
		Tasks:         taskRepo,
		Notifications: notifications,
		Events:        events,
		Clock:         clk,
		Log:           log,
		Window:        cfg.ReminderWindow,
	}

	// 5. Handlers
	router := handlers.NewRouter(handlers.RouterConfig{
		AuthSecret:    []byte(cfg.AuthSecret),
		CORSOrigins:   cfg.CORSOrigins,
		Log:           log,
		Health:        handlers.NewHealthHandler(version, clk, checks),
		Leads:         handlers.NewLeadHandler(leads, users, log),
		Conversations: handlers.NewConversationHandler(conversations, users, log),
		Campaigns:     handlers.NewCampaignHandler(campaigns, users, log),
		Tasks:         handlers.NewTaskHandler(tasks, users, log),
		Notifications: handlers.NewNotificationHandler(notifications, users, log),
		Dashboard:     handlers.NewDashboardHandler(dashboard, users, log),
		Users:         handlers.NewUserHandler(users, log),
		Exports:       handlers.NewExportHandler(exports, log),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 6. Workers
	g, gctx := errgroup.WithContext(ctx)

	if localBus != nil {
		localBus.Subscribe(eventHandler)
	} else {
		ch, err := rabbit.Conn.Channel()
		if err != nil {
			return fmt.Errorf("open consumer channel: %w", err)
		}
		defer ch.Close()
		consumer := queue.NewWorker(ch, eventHandler, log)
		g.Go(func() error { return consumer.Start(gctx, queue.QueueName) })
	}

	campaignWorker := worker.NewCampaignWorker(runner, cfg.CampaignTick, clk, log)
	reminderWorker := worker.NewReminderWorker(reminder, cfg.ReminderTick, clk, log)
	g.Go(func() error { campaignWorker.Start(gctx); return nil })
	g.Go(func() error { reminderWorker.Start(gctx); return nil })

	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 15*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
