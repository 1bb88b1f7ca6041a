package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	domainExpiry "github.com/turtacn/FreshGuard/internal/domain/expiry"
)

type classifyResult struct {
	Today    string                      `json:"today"`
	Expiry   string                      `json:"expiryDate"`
	Settings domainExpiry.Settings       `json:"settings"`
	Result   domainExpiry.Classification `json:"classification"`
}

func (r classifyResult) String() string {
	return fmt.Sprintf("%s (days until expiry: %d, today %s, warning %d, critical %d)",
		r.Result.Band, r.Result.DaysUntilExpiry, r.Today, r.Settings.WarningDays, r.Settings.CriticalDays)
}

// NewClassifyCmd runs the band classifier offline. Thresholds default to the
// configured seed values.
func NewClassifyCmd() *cobra.Command {
	var (
		expiry   string
		today    string
		warning  int
		critical int
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify an expiry date against the thresholds",
		Example: `  freshguard classify --expiry 2024-03-12 --today 2024-03-10
  freshguard classify --expiry 2024-03-12 --warning-days 5 --critical-days 1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cliCtx.Config.Expiry

			exp, err := domainExpiry.ParseDate(expiry)
			if err != nil {
				return fmt.Errorf("--expiry must be YYYY-MM-DD: %w", err)
			}
			var day time.Time
			if today != "" {
				if day, err = domainExpiry.ParseDate(today); err != nil {
					return fmt.Errorf("--today must be YYYY-MM-DD: %w", err)
				}
			} else {
				cal, err := domainExpiry.LoadCalendar(domainExpiry.SystemClock{}, cfg.Timezone)
				if err != nil {
					return err
				}
				day = cal.Today()
			}

			s := domainExpiry.Settings{Enabled: true, WarningDays: cfg.WarningDays, CriticalDays: cfg.CriticalDays}
			if cmd.Flags().Changed("warning-days") {
				s.WarningDays = warning
			}
			if cmd.Flags().Changed("critical-days") {
				s.CriticalDays = critical
			}
			if err := s.Validate(); err != nil {
				return err
			}

			p := &domainExpiry.Product{ID: "cli", ExpiryDate: &exp}
			return PrintResult(cmd, classifyResult{
				Today:    day.Format(domainExpiry.DateLayout),
				Expiry:   expiry,
				Settings: s,
				Result:   domainExpiry.Classify(p, s, day),
			})
		},
	}
	cmd.Flags().StringVar(&expiry, "expiry", "", "expiry date, YYYY-MM-DD")
	cmd.Flags().StringVar(&today, "today", "", "reference day, YYYY-MM-DD (default: today in expiry.timezone)")
	cmd.Flags().IntVar(&warning, "warning-days", 0, "override expiry.warning_days")
	cmd.Flags().IntVar(&critical, "critical-days", 0, "override expiry.critical_days")
	_ = cmd.MarkFlagRequired("expiry")
	return cmd
}
