// attendancectl is the operator CLI: it seeds development data and resets
// administrator passwords directly against the database, bypassing the API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/config"
	"github.com/example/attendance-engine/internal/persistence"
	"github.com/example/attendance-engine/internal/persistence/sqlite"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "attendancectl",
		Short:         "Operator tooling for the attendance service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSeedCommand())
	root.AddCommand(newResetAdminCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// cliEnv bundles the wired services a subcommand operates on.
type cliEnv struct {
	users  *application.UserService
	events persistence.EventRepository
	now    func() time.Time
}

// seedRecord mirrors the starter roster handed to new installations.
type seedRecord struct {
	username    string
	password    string
	displayName string
	uid         string
	role        string
	position    string
	hourlyRate  int64
	rooms       []string
}

func starterRoster() []seedRecord {
	return []seedRecord{
		{"admin", "admin", "Administrator", "04A1B2C3", application.RoleAdmin, "manager", 200000, []string{persistence.RoomAll}},
		{"tanaka", "password1", "Tanaka Hiroshi", "04D4E5F6", application.RoleStaff, "staff", 50000, []string{persistence.RoomAll}},
		{"suzuki", "password2", "Suzuki Yuki", "04A7B8C9", application.RoleStaff, "staff", 55000, []string{"office", "lab"}},
		{"sato", "password3", "Sato Kenta", "04DAEBFC", application.RoleStaff, "intern", 25000, []string{"office"}},
	}
}

func newSeedCommand() *cobra.Command {
	var withLogs bool
	var logDays int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the starter roster in an empty database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *cliEnv) error {
				operator := application.Principal{Username: "attendancectl", IsAdmin: true}
				for _, record := range starterRoster() {
					_, err := env.users.CreateUser(ctx, application.CreateUserParams{
						Principal: operator,
						Input: application.UserInput{
							Username:     record.username,
							Password:     record.password,
							DisplayName:  record.displayName,
							UID:          record.uid,
							Role:         record.role,
							Position:     record.position,
							HourlyRate:   record.hourlyRate,
							AllowedRooms: record.rooms,
						},
					})
					if err != nil {
						return fmt.Errorf("failed to seed user %q: %w", record.username, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", record.username, record.uid)

					if withLogs && record.role != application.RoleAdmin {
						written, err := seedDemoLog(ctx, env, record.uid, logDays)
						if err != nil {
							return fmt.Errorf("failed to seed log for %q: %w", record.username, err)
						}
						fmt.Fprintf(cmd.OutOrStdout(), "wrote %d events for %s\n", written, record.username)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&withLogs, "with-logs", false, "also generate demo attendance logs for staff")
	cmd.Flags().IntVar(&logDays, "log-days", 30, "how many past days of demo logs to generate")
	return cmd
}

// seedDemoLog writes one completed weekday cycle per day for the past n days.
// Checkout times vary by day so the payroll views show a mix of plain and
// evening-rate sessions.
func seedDemoLog(ctx context.Context, env *cliEnv, uid string, days int) (int, error) {
	today := env.now()
	dayStart := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())

	written := 0
	for offset := days; offset >= 1; offset-- {
		day := dayStart.AddDate(0, 0, -offset)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		checkin := day.Add(9 * time.Hour)
		checkout := day.Add(time.Duration(17+offset%3) * time.Hour)
		for _, stamp := range []struct {
			action persistence.Action
			ts     time.Time
		}{{persistence.ActionIn, checkin}, {persistence.ActionOut, checkout}} {
			event := persistence.Event{
				ID:        uuid.NewString(),
				UID:       uid,
				Action:    stamp.action,
				Timestamp: stamp.ts,
			}
			if err := env.events.AppendEvent(ctx, event); err != nil {
				return written, err
			}
			written++
		}
	}
	return written, nil
}

func newResetAdminCommand() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "reset-admin <new-password>",
		Short: "Reset an administrator password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *cliEnv) error {
				operator := application.Principal{Username: "attendancectl", IsAdmin: true}

				listed, err := env.users.ListUsers(ctx, operator)
				if err != nil {
					return fmt.Errorf("failed to list users: %w", err)
				}
				var target *persistence.User
				for i := range listed {
					if listed[i].Username == username {
						target = &listed[i]
						break
					}
				}
				if target == nil {
					return fmt.Errorf("no user named %q", username)
				}

				_, err = env.users.UpdateUser(ctx, application.UpdateUserParams{
					Principal: operator,
					UID:       target.UID,
					Input: application.UserInput{
						Username:     target.Username,
						Password:     args[0],
						DisplayName:  target.DisplayName,
						UID:          target.UID,
						Role:         application.RoleAdmin,
						Position:     target.Position,
						HourlyRate:   target.HourlyRate,
						AllowedRooms: target.AllowedRooms,
					},
				})
				if err != nil {
					return fmt.Errorf("failed to reset password: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "password reset for %s\n", username)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "admin", "administrator account to reset")
	return cmd
}

// withEnv opens the configured database, migrates it, and hands wired
// services to fn. Seeded rows go through the same validation and hashing
// path as API-created ones.
func withEnv(ctx context.Context, fn func(context.Context, *cliEnv) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() { _ = pool.Close() }()

	if err := sqlite.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	userRepo := sqlite.NewUserRepository(pool)
	systemRepo := sqlite.NewSystemStateRepository(pool)
	eventRepo := sqlite.NewEventRepository(pool)

	systemService := application.NewSystemService(systemRepo, userRepo, time.Now, logger)
	if err := systemService.Load(ctx); err != nil {
		return fmt.Errorf("failed to restore system state: %w", err)
	}

	env := &cliEnv{
		users:  application.NewUserService(userRepo, systemService, nil, systemService.NowFunc(), logger),
		events: eventRepo,
		now:    systemService.NowFunc(),
	}
	return fn(ctx, env)
}
