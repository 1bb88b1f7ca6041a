package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	appExpiry "github.com/turtacn/FreshGuard/internal/application/expiry"
	domainExpiry "github.com/turtacn/FreshGuard/internal/domain/expiry"
	"github.com/turtacn/FreshGuard/internal/infrastructure/storage/minio"
)

type archiveSummary struct {
	*appExpiry.ArchiveResult
}

func (s archiveSummary) String() string {
	return fmt.Sprintf("archived %d entries for %s to %s (%d bytes)", s.Entries, s.Date, s.Key, s.Bytes)
}

type archiveListing []minio.ObjectInfo

func (l archiveListing) String() string {
	if len(l) == 0 {
		return "no archived days"
	}
	var b strings.Builder
	for _, o := range l {
		fmt.Fprintf(&b, "%s\t%d\t%s\n", o.Key, o.Size, o.LastModified.UTC().Format("2006-01-02T15:04:05Z"))
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewArchiveCmd exports one ledger day to object storage. Without --date
// it archives yesterday in the configured timezone.
func NewArchiveCmd() *cobra.Command {
	var (
		date  string
		list  bool
		limit int
	)

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Export a day of the action ledger to object storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if !cliCtx.Config.MinIO.Enabled {
				return fmt.Errorf("archive needs minio.enabled=true")
			}
			ctx := cmd.Context()
			app, err := cliCtx.App(ctx, BootstrapOptions{})
			if err != nil {
				return err
			}
			defer app.Close()

			if list {
				objects, err := app.Archive.List(ctx, cliCtx.Config.Expiry.ArchivePrefix+"/", limit)
				if err != nil {
					return err
				}
				return PrintResult(cmd, archiveListing(objects))
			}

			day := app.Calendar.Today().AddDate(0, 0, -1)
			if date != "" {
				if day, err = domainExpiry.ParseDate(date); err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
			}
			res, err := app.Service.ArchiveDay(ctx, day)
			if err != nil {
				return err
			}
			return PrintResult(cmd, archiveSummary{res})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to archive, YYYY-MM-DD (default: yesterday)")
	cmd.Flags().BoolVar(&list, "list", false, "list archived days instead of writing one")
	cmd.Flags().IntVar(&limit, "limit", 31, "maximum objects to list")
	return cmd
}
