package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"alert-service/internal/api"
	"alert-service/internal/config"
	"alert-service/internal/db"
	"alert-service/internal/kafka"
	"alert-service/internal/location"
	"alert-service/internal/logging"
	"alert-service/internal/metrics"
	"alert-service/internal/notification"
	"alert-service/internal/providers"
	"alert-service/internal/realtime"
	"alert-service/internal/scoring"
	"alert-service/internal/services"
	"alert-service/pkg/email"
	"alert-service/pkg/push"
	"alert-service/pkg/sms"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	dbConn, err := db.New(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()
	if err := dbConn.EnsureSchema(ctx); err != nil {
		log.Fatalf("Schema setup failed: %v", err)
	}

	m := metrics.New()
	hub := realtime.NewHub(cfg.Realtime.MaxSessionsPerUser, logger, m)

	channels, pushChannel := buildChannels(ctx, cfg, logger)

	tracker := notification.NewTracker(channels, dbConn, dbConn, hub, logger, m, notification.Options{
		SendTimeout:    cfg.Notification.SendTimeout,
		MaxConcurrency: cfg.Notification.MaxConcurrency,
	})
	dispatcher := notification.NewDispatcher(tracker, logger, cfg.Notification.QueueSize, cfg.Notification.MaxWorkers, 2*time.Minute)
	var wg sync.WaitGroup
	dispatcher.Start(&wg)

	deps := services.AlertDeps{
		Alerts:     dbConn,
		Users:      dbConn,
		Deliveries: dbConn,
		Dispatcher: dispatcher,
		Publisher:  hub,
		Logger:     logger,
		Metrics:    m,
	}
	if cfg.Geocoding.APIKey != "" {
		deps.Geocoder = location.NewGeocoder(cfg.Geocoding.APIKey, cfg.Geocoding.Timeout, logger)
	}
	alertSvc := services.NewAlertService(deps)

	var scores services.ScoreProvider
	if cfg.Scoring.URL != "" {
		scores = scoring.New(cfg.Scoring.URL, 10*time.Second)
	}
	thresholds := services.Thresholds{
		Overall: cfg.Thresholds.Overall,
		Mood:    cfg.Thresholds.Mood,
		Journal: cfg.Thresholds.Journal,
	}
	monitor := services.NewHealthMonitor(dbConn, scores, pushChannel, hub, thresholds, logger, m)

	// Kafka consumer is optional; scores can also be evaluated on demand
	var consumer *kafka.Consumer
	if cfg.Kafka.Broker != "" {
		consumer = kafka.NewConsumer([]string{cfg.Kafka.Broker}, cfg.Kafka.Topic, cfg.Kafka.GroupID, monitor, logger)
		logger.Infof("Kafka consumer initialized with topic: %s", cfg.Kafka.Topic)
		consumer.Start(ctx, &wg)
	}

	// Start API server
	handler := api.NewHandler(alertSvc, monitor, logger)
	router := api.NewRouter(logger, cfg.API.BasePath, handler, api.NewWSHandler(hub, logger), m.Handler())
	srv := &http.Server{Addr: cfg.API.Port, Handler: router}

	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("API server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Infof("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("API server shutdown failed: %v", err)
	}
	if consumer != nil {
		consumer.Close()
	}
	dispatcher.Stop()
	wg.Wait()
	logger.Infof("Shutdown complete")
}

// buildChannels returns every configured delivery channel, plus the push
// channel on its own for the health monitor (nil when not configured).
func buildChannels(ctx context.Context, cfg config.Config, logger *logging.Logger) ([]providers.Channel, providers.Channel) {
	var channels []providers.Channel
	var pushChannel providers.Channel

	if cfg.SMS.AccountSID != "" && cfg.SMS.AuthToken != "" && cfg.SMS.FromNumber != "" {
		channels = append(channels, providers.NewSMS(sms.New(cfg.SMS.AccountSID, cfg.SMS.AuthToken, cfg.SMS.FromNumber)))
	} else {
		logger.Warnf("SMS channel disabled: Twilio credentials not set")
	}

	if cfg.Email.SMTPServer != "" && cfg.Email.Username != "" {
		channels = append(channels, providers.NewEmail(email.Sender{
			Server:   cfg.Email.SMTPServer,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			FromName: cfg.Email.FromName,
		}))
	} else {
		logger.Warnf("Email channel disabled: SMTP settings not set")
	}

	if cfg.Push.CredentialsFile != "" {
		client, err := push.New(ctx, cfg.Push.CredentialsFile)
		if err != nil {
			logger.Errorf("Push channel disabled: %v", err)
		} else {
			pushChannel = providers.NewPush(client)
			channels = append(channels, pushChannel)
		}
	}

	if cfg.Telegram.BotToken != "" {
		tg, err := providers.NewTelegramBot(cfg.Telegram.BotToken, cfg.Telegram.RateLimit)
		if err != nil {
			logger.Errorf("Telegram channel disabled: %v", err)
		} else {
			channels = append(channels, tg)
		}
	}

	logger.Infof("Configured %d delivery channels", len(channels))
	return channels, pushChannel
}
