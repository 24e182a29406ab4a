package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/solidsystems/qr-trackr/pkg/core/domain"
	"github.com/solidsystems/qr-trackr/pkg/logger"
	"github.com/solidsystems/qr-trackr/pkg/ports"
)

func newExportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every QR code record to stdout",
		Example: `  qrtrackr export > codes.json
  qrtrackr export --format yaml > codes.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportCodes(cmd.Context(), repo, cmd.OutOrStdout(), format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	return cmd
}

func newImportCmd() *cobra.Command {
	var file, format string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load QR code records exported by 'export'",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			if format == "" {
				format = formatFromPath(file)
			}
			imported, skipped, err := importCodes(cmd.Context(), repo, f, format)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d QR codes, skipped %d\n", imported, skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "file to import")
	cmd.Flags().StringVar(&format, "format", "", "input format: json or yaml (default: from extension)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	}
	return "json"
}

func exportCodes(ctx context.Context, repo ports.QRCodeRepository, w io.Writer, format string) error {
	codes, err := repo.Dump(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(codes)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(codes)
	}
	return fmt.Errorf("unknown format %q", format)
}

// importCodes inserts records whose short code is not present yet. Counters
// and metadata are carried over as exported.
func importCodes(ctx context.Context, repo ports.QRCodeRepository, r io.Reader, format string) (imported, skipped int, err error) {
	var codes []domain.QRCode
	switch format {
	case "json":
		err = json.NewDecoder(r).Decode(&codes)
	case "yaml":
		err = yaml.NewDecoder(r).Decode(&codes)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("decode: %w", err)
	}

	for _, qr := range codes {
		if !domain.ValidShortCode(qr.ShortCode) {
			logger.Warn().Str("short_code", qr.ShortCode).Msg("skipping invalid short code")
			skipped++
			continue
		}
		if qr.Scans < 0 {
			qr.Scans = 0
		}
		qr.ID = 0
		err := repo.Create(ctx, &qr)
		if errors.Is(err, domain.ErrShortCodeTaken) {
			logger.Info().Str("short_code", qr.ShortCode).Msg("skipping existing code")
			skipped++
			continue
		}
		if err != nil {
			return imported, skipped, fmt.Errorf("import %s: %w", qr.ShortCode, err)
		}
		imported++
	}
	return imported, skipped, nil
}
