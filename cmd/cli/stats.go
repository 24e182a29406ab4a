package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/solidsystems/qr-trackr/pkg/core/services"
)

func newStatsCmd() *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show scan statistics for a short code",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := services.NewQRCodeService(repo, cfg.BaseURL, cfg.FallbackURL, cfg.IPHashKey)
			qr, err := svc.GetByShortCode(cmd.Context(), code)
			if err != nil {
				return fmt.Errorf("%s: %w", code, err)
			}
			stats, err := svc.Stats(cmd.Context(), qr.ID)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Code:\t%s\n", qr.ShortCode)
			fmt.Fprintf(w, "Label:\t%s\n", qr.Label)
			fmt.Fprintf(w, "Scans:\t%d\n", qr.Scans)
			if qr.LastScannedAt != nil {
				fmt.Fprintf(w, "Last scan:\t%s\n", qr.LastScannedAt.Format("2006-01-02 15:04"))
			}

			referrers := make([]string, 0, len(stats.Referrers))
			for ref := range stats.Referrers {
				referrers = append(referrers, ref)
			}
			sort.Slice(referrers, func(i, j int) bool {
				return stats.Referrers[referrers[i]] > stats.Referrers[referrers[j]]
			})
			for _, ref := range referrers {
				fmt.Fprintf(w, "  %s\t%d\n", ref, stats.Referrers[ref])
			}
			for _, day := range stats.DailyScans {
				fmt.Fprintf(w, "  %s\t%d\n", day.Date, day.Count)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "short code")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}
