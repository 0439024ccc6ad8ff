package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blog/internal/config"
	"blog/internal/database"
	"blog/internal/server"
	"blog/internal/services"
	"blog/pkg/rabbitmq"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load(viper.New())
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	log := newLogger(cfg.LogLevel)

	// --- Database ---
	db, err := database.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("Failed to migrate database")
	}

	// --- Events ---
	events, closeEvents := connectEvents(cfg.RabbitMQURL, log)
	defer closeEvents()

	app, authService := server.NewApp(cfg, db, events, log)

	if cfg.BootstrapSuperuser() {
		if _, err := authService.EnsureSuperuser(context.Background(), cfg.SuperuserUsername, cfg.SuperuserEmail, cfg.SuperuserPassword); err != nil {
			log.WithError(err).Fatal("Failed to create superuser")
		}
	}

	// --- Start HTTP Server ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithField("addr", cfg.AppPort).Info("Starting server")
		if err := app.Listen(cfg.AppPort); err != nil {
			log.WithError(err).Fatal("Server failed to start")
		}
	}()

	<-quit
	log.Info("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.WithError(err).Error("Error during Fiber shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info("Server gracefully stopped")
}

func newLogger(level logrus.Level) *logrus.Logger {
	log := logrus.StandardLogger()
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}
	log.Out = os.Stdout
	log.SetLevel(level)
	return log
}

// connectEvents opens the RabbitMQ publisher and starts the audit consumer.
// Events are optional: without a URL, or when the broker is unreachable,
// the server runs without publishing.
func connectEvents(url string, log *logrus.Logger) (services.EventPublisher, func()) {
	noop := func() {}
	if url == "" {
		log.Info("RABBITMQ_URL not set, domain events disabled")
		return nil, noop
	}

	client, err := rabbitmq.NewClient(rabbitmq.Config{URL: url})
	if err != nil {
		log.WithError(err).Warn("RabbitMQ unavailable, domain events disabled")
		return nil, noop
	}
	if err := client.ConsumeEvents(auditEvent(log)); err != nil {
		log.WithError(err).Warn("Failed to start audit consumer")
	}
	return client, func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Warn("Failed to close RabbitMQ client")
		}
	}
}

// auditEvent returns a consumer that writes each received event to the log.
func auditEvent(log *logrus.Logger) func(rabbitmq.Event) error {
	return func(event rabbitmq.Event) error {
		log.WithFields(logrus.Fields{
			"event":       event.Name,
			"occurred_at": event.OccurredAt,
			"payload":     string(event.Payload),
		}).Info("audit")
		return nil
	}
}
