package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	appExpiry "github.com/turtacn/FreshGuard/internal/application/expiry"
	domainExpiry "github.com/turtacn/FreshGuard/internal/domain/expiry"
	"github.com/turtacn/FreshGuard/internal/infrastructure/monitoring/logging"
)

const dailyReminderJob = "daily_reminder"

// notifySummary renders a NotifyResult for text output.
type notifySummary struct {
	*appExpiry.NotifyResult
	Skipped bool `json:"skipped,omitempty"`
}

func (s notifySummary) String() string {
	if s.Skipped {
		return "reminder already sent today"
	}
	r := s.Report
	status := "delivered"
	if !s.Delivered {
		status = "NOT delivered: " + s.Error
	}
	return fmt.Sprintf("%s %s: critical %d/%d unprocessed, warning %d/%d unprocessed, %s",
		r.Kind, r.Date, r.CriticalUnprocessed, r.CriticalTotal, r.WarningUnprocessed, r.WarningTotal, status)
}

// NewRemindCmd sends the daily reminder. With --once the send is guarded
// by a redis claim, so several schedulers can trigger it safely.
func NewRemindCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Send the daily expiry reminder",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			app, err := cliCtx.App(ctx, BootstrapOptions{Redis: once})
			if err != nil {
				return err
			}
			defer app.Close()

			if once {
				day := app.Calendar.Today().Format(domainExpiry.DateLayout)
				claimed, err := app.Redis.ClaimDaily(ctx, dailyReminderJob, day)
				if err != nil {
					return err
				}
				if !claimed {
					cliCtx.Logger.Info("daily reminder already claimed", logging.String("date", day))
					return PrintResult(cmd, notifySummary{Skipped: true})
				}
			}

			res, err := app.Service.DailyReminder(ctx)
			if err != nil {
				return err
			}
			if err := PrintResult(cmd, notifySummary{NotifyResult: res}); err != nil {
				return err
			}
			if !res.Delivered {
				return fmt.Errorf("daily reminder not delivered: %s", res.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "send at most once per day across hosts (needs redis)")
	return cmd
}

// NewNotifyCmd forwards the current unprocessed counts.
func NewNotifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Forward current unprocessed counts to the notification topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			app, err := cliCtx.App(cmd.Context(), BootstrapOptions{})
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.Service.CheckAndNotify(cmd.Context())
			if err != nil {
				return err
			}
			if err := PrintResult(cmd, notifySummary{NotifyResult: res}); err != nil {
				return err
			}
			if !res.Delivered {
				return fmt.Errorf("unprocessed counts not delivered: %s", res.Error)
			}
			return nil
		},
	}
}
