// Command alerts is the Leoncito alert engine CLI.
//
// Usage:
//
//	leoncito-alerts schedule run
//	leoncito-alerts pending --user 7f3a...
//	leoncito-alerts cancel --bet 42
//	leoncito-alerts prefs get --user 7f3a...
//	leoncito-alerts prefs set --user 7f3a... --master=false
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JeffersonAlvarez16/leoncito/internal/config"
	"github.com/JeffersonAlvarez16/leoncito/internal/db"
	"github.com/JeffersonAlvarez16/leoncito/internal/notifications"
	"github.com/JeffersonAlvarez16/leoncito/internal/picks"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "leoncito-alerts",
		Short: "Leoncito alert engine CLI",
	}

	root.AddCommand(scheduleCmd())
	root.AddCommand(pendingCmd())
	root.AddCommand(cancelCmd())
	root.AddCommand(prefsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// schedule command
// --------------------------------------------------------------------------

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run scheduling passes",
	}
	cmd.AddCommand(scheduleRunCmd())
	return cmd
}

func scheduleRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fan out upcoming published picks to all opted-in recipients",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				gate := notifications.NewGate(notifications.StaticCapability{
					IsSupported: true,
					Result:      notifications.PermissionGranted,
				})
				gate.Request(ctx)

				builder := notifications.NewBuilder(
					picks.NewPGSource(pool.Pool),
					notifications.NewPGRecipients(pool.Pool),
					notifications.NewPGPreferences(pool.Pool),
					notifications.NewPGStore(pool.Pool),
					gate, logger)

				start := time.Now()
				result, err := builder.Run(ctx)
				if err != nil {
					return err
				}
				logger.Info("Scheduling pass finished",
					"duration", time.Since(start).Round(time.Millisecond),
					"summary", result.Summary())
				return nil
			})
		},
	}
	return cmd
}

// --------------------------------------------------------------------------
// pending command
// --------------------------------------------------------------------------

func pendingCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List unsent scheduled notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				store := notifications.NewPGStore(pool.Pool)

				var (
					records []notifications.ScheduledNotification
					err     error
				)
				if userID != "" {
					records, err = store.ListPending(ctx, userID)
				} else {
					records, err = store.ListAllPending(ctx)
				}
				if err != nil {
					return err
				}

				if len(records) == 0 {
					fmt.Println("no pending notifications")
					return nil
				}
				for _, n := range records {
					fmt.Printf("%6d  %-28s  %-8s  %s  %s\n",
						n.ID, n.DedupTag(), n.Channel,
						n.ScheduledTime.Format(time.RFC3339), n.UserID)
				}
				fmt.Printf("total: %d\n", len(records))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Filter by user ID; empty = all users")
	return cmd
}

// --------------------------------------------------------------------------
// cancel command
// --------------------------------------------------------------------------

func cancelCmd() *cobra.Command {
	var betID int64
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Remove all unsent notifications for a withdrawn pick",
		RunE: func(cmd *cobra.Command, args []string) error {
			if betID == 0 {
				return fmt.Errorf("--bet is required")
			}
			return runWithDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				store := notifications.NewPGStore(pool.Pool)
				ids, err := store.DeleteByEvent(ctx, betID)
				if err != nil {
					return err
				}
				logger.Info("Pick notifications cancelled", "bet_id", betID, "removed", len(ids))
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&betID, "bet", 0, "Bet ID to cancel")
	return cmd
}

// --------------------------------------------------------------------------
// prefs command
// --------------------------------------------------------------------------

func prefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Inspect and update notification preferences",
	}
	cmd.AddCommand(prefsGetCmd())
	cmd.AddCommand(prefsSetCmd())
	return cmd
}

func prefsGetCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show a user's preferences (creates defaults on first read)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			return runWithDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				prefs, err := notifications.NewPGPreferences(pool.Pool).Get(ctx, userID)
				if err != nil {
					return err
				}
				fmt.Printf("user=%s master=%t 30min=%t 5min=%t live=%t\n",
					prefs.UserID, prefs.Master, prefs.Before30Min, prefs.Before5Min, prefs.Live)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID")
	return cmd
}

func prefsSetCmd() *cobra.Command {
	var (
		userID                         string
		master, before30, before5, liv bool
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace a user's preference flags",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			return runWithDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				prefs := notifications.Preferences{
					UserID:      userID,
					Master:      master,
					Before30Min: before30,
					Before5Min:  before5,
					Live:        liv,
				}
				if err := notifications.NewPGPreferences(pool.Pool).Put(ctx, prefs); err != nil {
					return err
				}
				logger.Info("Preferences updated", "user_id", userID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID")
	cmd.Flags().BoolVar(&master, "master", true, "Master switch")
	cmd.Flags().BoolVar(&before30, "30min", true, "30 minutes before kickoff")
	cmd.Flags().BoolVar(&before5, "5min", true, "5 minutes before kickoff")
	cmd.Flags().BoolVar(&liv, "live", true, "At kickoff")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// runWithDB handles config loading, DB connection, and context cancellation.
func runWithDB(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}
