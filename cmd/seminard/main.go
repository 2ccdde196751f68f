package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/seminar-scheduler/internal/application"
	"github.com/example/seminar-scheduler/internal/blob"
	"github.com/example/seminar-scheduler/internal/config"
	httptransport "github.com/example/seminar-scheduler/internal/http"
	"github.com/example/seminar-scheduler/internal/persistence/sqlite"
	"github.com/example/seminar-scheduler/internal/persistence/sqlite/backup"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := store.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	blobs, err := blob.NewStore(cfg.BlobDir)
	if err != nil {
		logger.Error("failed to prepare blob storage", "error", err)
		os.Exit(1)
	}

	reconciler := backup.NewReconciler(store.Pool(), logger)
	now := time.Now

	activityService := application.NewActivityService(store.Activity, logger)
	planService := application.NewPlanService(store.Plans, store.Slots, store.Rooms, activityService, logger, now)
	roomService := application.NewRoomService(store.Rooms, activityService, logger, now)
	speakerService := application.NewSpeakerService(store.Speakers, activityService, logger, now)
	suggestionService := application.NewSuggestionService(store.Suggestions, store.Plans, store.Slots, activityService, logger, now)
	workflowService := application.NewWorkflowService(store.Suggestions, activityService, logger, now)
	tokenService := application.NewTokenService(store.Tokens, store.Suggestions, activityService, logger, nil, now)
	assignmentService := application.NewAssignmentService(store.Suggestions, store.Slots, store.Seminars, activityService, logger, now)
	seminarService := application.NewSeminarService(store.Seminars, store.Rooms, blobs, activityService, logger, now)
	deletionService := application.NewDeletionService(store.Plans, store.Rooms, store.Speakers, store.Suggestions, store.Seminars, store.Slots, blobs, activityService, logger)
	adminService := application.NewAdminService(store, reconciler, activityService, logger, cfg.BackupDir, cfg.AdminPasswordHash, nil, now)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Plans:        httptransport.NewPlanHandler(planService, deletionService, logger),
		Rooms:        httptransport.NewRoomHandler(roomService, deletionService, logger),
		Speakers:     httptransport.NewSpeakerHandler(speakerService, deletionService, logger),
		Suggestions:  httptransport.NewSuggestionHandler(suggestionService, deletionService, workflowService, tokenService, assignmentService, logger),
		Slots:        httptransport.NewSlotHandler(assignmentService, deletionService, logger),
		Seminars:     httptransport.NewSeminarHandler(seminarService, deletionService, assignmentService, logger),
		SpeakerPages: httptransport.NewSpeakerPageHandler(tokenService, suggestionService, planService, seminarService, logger),
		Admin:        httptransport.NewAdminHandler(adminService, activityService, logger),
		AdminGate:    httptransport.RequireAdmin(adminService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.SnapshotSchedule, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := reconciler.Snapshot(jobCtx, cfg.BackupDir); err != nil {
			logger.Error("scheduled snapshot failed", "error", err)
		}
	}); err != nil {
		logger.Error("invalid snapshot schedule", "schedule", cfg.SnapshotSchedule, "error", err)
		os.Exit(1)
	}
	if _, err := scheduler.AddFunc(cfg.TokenSweepSchedule, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := tokenService.SweepExpired(jobCtx, cfg.TokenSweepGrace); err != nil {
			logger.Error("token sweep failed", "error", err)
		}
	}); err != nil {
		logger.Error("invalid token sweep schedule", "schedule", cfg.TokenSweepSchedule, "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("seminar API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}
