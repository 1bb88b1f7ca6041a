package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	domainExpiry "github.com/turtacn/FreshGuard/internal/domain/expiry"
	"github.com/turtacn/FreshGuard/internal/infrastructure/monitoring/logging"
)

// importRecord is one catalog product in an import file.
type importRecord struct {
	ID                     string `json:"id"`
	Name                   string `json:"name"`
	Category               string `json:"category"`
	Barcode                string `json:"barcode"`
	ExpiryDate             string `json:"expiryDate"`
	ExcludeFromExpiryCheck bool   `json:"excludeFromExpiryCheck"`
}

func (r importRecord) product() (*domainExpiry.Product, error) {
	if r.ID == "" {
		return nil, fmt.Errorf("product without id")
	}
	p := &domainExpiry.Product{
		ID:                     r.ID,
		Name:                   r.Name,
		Category:               r.Category,
		Barcode:                r.Barcode,
		ExcludeFromExpiryCheck: r.ExcludeFromExpiryCheck,
	}
	if r.ExpiryDate != "" {
		d, err := domainExpiry.ParseDate(r.ExpiryDate)
		if err != nil {
			return nil, fmt.Errorf("product %s: expiryDate must be YYYY-MM-DD", r.ID)
		}
		p.ExpiryDate = &d
	}
	return p, nil
}

// decodeImport parses a JSON array of products, failing on the first bad
// record before anything is written.
func decodeImport(raw []byte) ([]*domainExpiry.Product, error) {
	var records []importRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	out := make([]*domainExpiry.Product, 0, len(records))
	for _, r := range records {
		p, err := r.product()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// NewImportCmd seeds catalog products into the store. The catalog owns
// products in production; this serves development and migration setups.
func NewImportCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load catalog products from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			products, err := decodeImport(raw)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := cliCtx.App(ctx, BootstrapOptions{})
			if err != nil {
				return err
			}
			defer app.Close()

			importer, ok := app.Store.(ProductImporter)
			if !ok {
				return fmt.Errorf("store backend %q does not accept products", cliCtx.Config.Expiry.StoreBackend)
			}
			for _, p := range products {
				if err := importer.UpsertProduct(ctx, p); err != nil {
					return fmt.Errorf("import %s: %w", p.ID, err)
				}
			}
			cliCtx.Logger.Info("products imported", logging.Int("count", len(products)), logging.String("file", file))
			return PrintResult(cmd, fmt.Sprintf("imported %d products", len(products)))
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON array of products")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
