package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Freeeeeet/therapy_scheduler/internal/app"
	"github.com/Freeeeeet/therapy_scheduler/internal/config"
	"github.com/Freeeeeet/therapy_scheduler/internal/controller"
	"github.com/Freeeeeet/therapy_scheduler/internal/model"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "scheduler",
		Short:         "Recurring therapy session scheduler",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(runCmd(), migrateCmd(), scheduleCmd(), rescheduleCmd(), reassignCmd(), batchCmd(), linkCodeCmd(), agendaCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp загружает конфиг, поднимает зависимости и выполняет fn
func withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := app.NewLogger(cfg.Environment)
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", zap.Error(err))
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Apply migrations and run the daily agenda job and the therapist bot until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withApp(ctx, func(ctx context.Context, a *app.App) error {
				if err := migrate(ctx, a, true); err != nil {
					return err
				}

				job := app.NewAgendaJob(a.Agenda, a.Config.AgendaHour, a.Config.Location, a.Logger)
				job.Start(ctx)

				if a.Bot != nil {
					botController := controller.NewBotController(a.Bot, a.Directory, a.Links, a.Sessions, a.Calendars, a.Config.Location, a.Logger)
					if err := botController.RegisterHandlers(ctx); err != nil {
						a.Logger.Warn("Failed to register bot commands menu", zap.Error(err))
					}
					go botController.Start(ctx)
				}

				a.Logger.Info("Scheduler started",
					zap.String("environment", a.Config.Environment),
					zap.Bool("telegram_enabled", a.Config.TelegramToken != ""),
					zap.Bool("redis_enabled", a.Redis != nil))

				<-ctx.Done()
				job.Stop()
				return nil
			})
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return migrate(ctx, a, true)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return migrate(ctx, a, false)
			})
		},
	})

	return cmd
}

func migrate(ctx context.Context, a *app.App, up bool) error {
	migrator, err := app.NewMigrator(a.Pool, a.Config.MigrationsPath, a.Logger)
	if err != nil {
		return err
	}
	defer migrator.Close()

	if up {
		return migrator.Run(ctx)
	}
	return migrator.Status(ctx)
}

func scheduleCmd() *cobra.Command {
	var (
		req  model.RecurrenceRequest
		days string
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Create a recurring series of sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Weekdays = splitList(days)
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				result, err := a.Scheduling.ScheduleRecurring(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}

	cmd.Flags().Int64Var(&req.StudentID, "student", 0, "student id")
	cmd.Flags().Int64Var(&req.TherapistID, "therapist", 0, "therapist id")
	cmd.Flags().Int64Var(&req.LeccionID, "leccion", 0, "lesson id")
	cmd.Flags().StringVar(&days, "days", "", "comma separated weekdays, e.g. lunes,miercoles")
	cmd.Flags().StringVar(&req.TimeOfDay, "time", "", "start time HH:MM")
	cmd.Flags().IntVar(&req.DurationMinutes, "duration", 45, "duration in minutes")
	cmd.Flags().IntVar(&req.WeekCount, "weeks", 1, "number of weeks")
	for _, name := range []string{"student", "therapist", "days", "time"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func rescheduleCmd() *cobra.Command {
	var (
		sessionID int64
		start     string
		duration  int
	)

	cmd := &cobra.Command{
		Use:   "reschedule",
		Short: "Move a single session to a new time",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				newStart, err := time.ParseInLocation("2006-01-02 15:04", start, a.Config.Location)
				if err != nil {
					return fmt.Errorf("invalid --start %q, expected \"YYYY-MM-DD HH:MM\": %w", start, err)
				}

				session, err := a.Scheduling.RescheduleSession(ctx, sessionID, newStart, duration)
				if err != nil {
					return err
				}
				return printJSON(session)
			})
		},
	}

	cmd.Flags().Int64Var(&sessionID, "session", 0, "session id")
	cmd.Flags().StringVar(&start, "start", "", "new start, YYYY-MM-DD HH:MM")
	cmd.Flags().IntVar(&duration, "duration", 45, "duration in minutes")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("start")

	return cmd
}

func reassignCmd() *cobra.Command {
	var studentID, therapistID int64

	cmd := &cobra.Command{
		Use:   "reassign",
		Short: "Move all sessions of a student to another therapist",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				result, err := a.Scheduling.ReassignTherapist(ctx, studentID, therapistID)
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}

	cmd.Flags().Int64Var(&studentID, "student", 0, "student id")
	cmd.Flags().Int64Var(&therapistID, "therapist", 0, "new therapist id")
	_ = cmd.MarkFlagRequired("student")
	_ = cmd.MarkFlagRequired("therapist")

	return cmd
}

func batchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch <batch_id>",
		Short: "Show all sessions of one recurring series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid batch id %q: %w", args[0], err)
			}

			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				batch, err := a.Scheduling.GetBatch(ctx, batchID)
				if err != nil {
					return err
				}
				return printJSON(batch)
			})
		},
	}
}

func linkCodeCmd() *cobra.Command {
	var (
		therapistID int64
		ttl         time.Duration
	)

	cmd := &cobra.Command{
		Use:   "link-code",
		Short: "Issue a one-time code a therapist sends to the bot with /vincular",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				code, err := a.Links.CreateLinkCode(ctx, therapistID, ttl)
				if err != nil {
					return err
				}
				return printJSON(code)
			})
		},
	}

	cmd.Flags().Int64Var(&therapistID, "therapist", 0, "therapist id")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "how long the code stays valid")
	_ = cmd.MarkFlagRequired("therapist")

	return cmd
}

func agendaCmd() *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Send therapists their agenda for a day right now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				date := time.Now().In(a.Config.Location).AddDate(0, 0, 1)
				if day != "" {
					parsed, err := time.ParseInLocation("2006-01-02", day, a.Config.Location)
					if err != nil {
						return fmt.Errorf("invalid --day %q: %w", day, err)
					}
					date = parsed
				}

				sent, err := a.Agenda.SendAgenda(ctx, date)
				if err != nil {
					return err
				}
				fmt.Printf("agenda sent to %d therapists\n", sent)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "day YYYY-MM-DD (default tomorrow)")

	return cmd
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
