package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solidsystems/qr-trackr/pkg/adapters/qrimage"
	"github.com/solidsystems/qr-trackr/pkg/core/services"
	"github.com/solidsystems/qr-trackr/pkg/ports"
)

func newCreateCmd() *cobra.Command {
	var (
		in     ports.CreateQRCodeInput
		postID int64
		show   bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a QR code for a URL or a post",
		Example: `  qrtrackr create --url "https://example.com/menu" --label "Table menu"
  qrtrackr create --post 42 --code spring --ref SHOP1 --show`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("post") {
				in.PostID = &postID
			}
			svc := services.NewQRCodeService(repo, cfg.BaseURL, cfg.FallbackURL, cfg.IPHashKey)
			qr, err := svc.Create(cmd.Context(), in)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			trackingURL := svc.TrackingURL(qr.ShortCode)
			fmt.Fprintf(out, "Created %s (id %d)\n%s\n", qr.ShortCode, qr.ID, trackingURL)
			if show {
				art, err := qrimage.NewGenerator(nil).Terminal(trackingURL)
				if err != nil {
					return err
				}
				fmt.Fprint(out, art)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&in.DestinationURL, "url", "", "external destination URL")
	cmd.Flags().Int64Var(&postID, "post", 0, "internal post ID destination")
	cmd.Flags().StringVar(&in.Label, "label", "", "human readable label")
	cmd.Flags().StringVar(&in.ShortCode, "code", "", "custom short code (generated when empty)")
	cmd.Flags().StringVar(&in.ReferralCode, "ref", "", "referral code appended as ?ref=")
	cmd.Flags().BoolVar(&show, "show", false, "print the QR code in the terminal")
	cmd.MarkFlagsMutuallyExclusive("url", "post")
	cmd.MarkFlagsOneRequired("url", "post")
	return cmd
}
