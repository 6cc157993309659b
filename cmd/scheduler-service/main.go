package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"stable-scheduler/internal/api"
	"stable-scheduler/internal/assignment"
	"stable-scheduler/internal/config"
	"stable-scheduler/internal/database/migrations"
	"stable-scheduler/internal/horses"
	"stable-scheduler/internal/logger"
	"stable-scheduler/internal/notify"
	"stable-scheduler/internal/provisioning"
	"stable-scheduler/internal/registration"
	regdb "stable-scheduler/internal/registration/db"
	"stable-scheduler/internal/roles"
	"stable-scheduler/internal/slotlock"
)

func openDatabase(cfg *config.Config, log *logger.Logger) *bun.DB {
	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open Postgres: %v", err))
	}
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to Postgres: %v", err))
	}
	log.Info("DATABASE", "Postgres connection successful")

	return bun.NewDB(sqldb, pgdialect.New())
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	bunDB := openDatabase(cfg, log)
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := runner.Run(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}
	log.Info("DATABASE", "Migrations applied")

	catalog := roles.Default()

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.Kafka.Enabled {
		topics := []string{
			cfg.Kafka.Topics.Registrations,
			cfg.Kafka.Topics.Unregistrations,
			cfg.Kafka.Topics.AdminBroadcasts,
		}
		if err := notify.EnsureTopicsExist(cfg.Kafka.Brokers, topics); err != nil {
			log.Warn("NOTIFY", fmt.Sprintf("Topic creation failed, continuing: %v", err))
		}
		kafkaNotifier := notify.NewKafkaNotifier(cfg.Kafka)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
		log.Info("NOTIFY", "Kafka dispatch enabled")
	} else {
		log.Warn("NOTIFY", "Kafka disabled, notifications will be dropped")
	}

	var lock registration.SlotLock
	if cfg.Redis.SlotLockEnabled {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warn("REGISTRATION", fmt.Sprintf("Redis unavailable, slot locking disabled: %v", err))
		} else {
			lock = slotlock.New(redisClient, cfg.Redis.SlotLockTTL)
			log.Info("REGISTRATION", "Redis slot locking enabled")
		}
	}

	invites := &notify.ICSInviteGenerator{
		OrganizerName:    cfg.Notify.OrganizerName,
		OrganizerAddress: cfg.Notify.OrganizerAddress,
	}
	passes := notify.NewPassGenerator(cfg.Notify.PassSecret)

	registrationSvc := registration.NewService(&regdb.DB{Bun: bunDB}, catalog, notifier, invites, passes, lock, log)
	assignmentSvc := assignment.NewService(&assignment.Store{Bun: bunDB}, log)
	provisioningStore := &provisioning.Store{Bun: bunDB}
	provisioningSvc := provisioning.NewService(provisioningStore, catalog, log)
	horsesSvc := horses.NewService(&horses.Store{Bun: bunDB}, log)

	handler := &api.Handler{
		Registration: registrationSvc,
		Assignment:   assignmentSvc,
		Provisioning: provisioningSvc,
		Horses:       horsesSvc,
		Events:       provisioningStore,
		Logger:       log,
	}

	r := chi.NewRouter()
	r.Mount("/api", handler.Routes())

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", "Scheduler service on "+cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctxShutdown)
	log.Info("SERVER", "Scheduler service shutdown complete")
}
