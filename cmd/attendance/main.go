package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/config"
	httptransport "github.com/example/attendance-engine/internal/http"
	"github.com/example/attendance-engine/internal/persistence/sqlite"
)

func main() {
	// Deployment drops a .env next to the binary; absence is fine.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := sqlite.Migrate(ctx, pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	userRepo := sqlite.NewUserRepository(pool)
	eventRepo := sqlite.NewEventRepository(pool)
	systemRepo := sqlite.NewSystemStateRepository(pool)
	sessionRepo := sqlite.NewSessionRepository(pool)

	systemService := application.NewSystemService(systemRepo, userRepo, time.Now, logger)
	if err := systemService.Load(ctx); err != nil {
		logger.Error("failed to restore system state", "error", err)
		os.Exit(1)
	}
	now := systemService.NowFunc()

	attendanceService := application.NewAttendanceService(userRepo, eventRepo, systemService, uuid.NewString, now, cfg.SweepWritesEvent, logger)
	payrollService := application.NewPayrollService(userRepo, eventRepo, now, logger)
	userService := application.NewUserService(userRepo, systemService, nil, now, logger)
	authService := application.NewAuthService(userRepo, sessionRepo, nil, tokenGenerator, time.Now, cfg.SessionTTL, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Check:          httptransport.NewCheckHandler(attendanceService, logger),
		System:         httptransport.NewSystemHandler(systemService, logger),
		Auth:           httptransport.NewAuthHandler(authService, logger),
		Users:          httptransport.NewUserHandler(userService, attendanceService, logger),
		Payroll:        httptransport.NewPayrollHandler(payrollService, userService, now, logger),
		RequireSession: httptransport.RequireSession(authService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	if cfg.SweepEnabled {
		go runMorningSweep(ctx, attendanceService, now, logger)
	}

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

	logger.Info("attendance API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// runMorningSweep force-checks-out lingering users once per simulated day
// when the clock crosses the end of the curfew window. The tick interval is
// coarse; the sweep itself is idempotent for already checked-out users.
func runMorningSweep(ctx context.Context, service *application.AttendanceService, now func() time.Time, logger *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastSweepDay string
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current := now()
			day := current.Format("2006-01-02")
			if current.Hour() < application.CurfewEndHour || day == lastSweepDay {
				continue
			}
			lastSweepDay = day
			swept, err := service.ForceCheckoutAll(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "morning sweep failed", "error", err)
				continue
			}
			if swept > 0 {
				logger.InfoContext(ctx, "morning sweep completed", "swept", swept, "day", day)
			}
		}
	}
}

func tokenGenerator() string {
	buf := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(buf)
}
