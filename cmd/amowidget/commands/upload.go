package commands

import (
	"fmt"

	"amowidget/internal/components/chrono"
	"amowidget/internal/components/telemetry"
	"amowidget/internal/installer"

	"github.com/spf13/cobra"
)

var (
	uploadMarketplace bool
	uploadRedirectUri string
	uploadLocale      string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <widget.zip>",
	Short: "Create or update the widget registration and upload the archive.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		baseUrl, err := cfg.accountUrl()
		if err != nil {
			return err
		}
		creds, err := cfg.credentials()
		if err != nil {
			return err
		}
		dump, err := dumpOutput()
		if err != nil {
			return err
		}

		opts := installer.Options{
			BaseUrl:       baseUrl,
			Credentials:   creds,
			ArchivePath:   args[0],
			RedirectUri:   cfg.RedirectUri,
			DefaultLocale: cfg.DefaultLocale,
			Marketplace:   cfg.Marketplace,
			Dump:          dump,
		}
		if cmd.Flags().Changed("marketplace") {
			opts.Marketplace = uploadMarketplace
		}
		if uploadRedirectUri != "" {
			opts.RedirectUri = uploadRedirectUri
		}
		if uploadLocale != "" {
			opts.DefaultLocale = uploadLocale
		}

		inst, err := installer.New(opts, telemetry.SlogAPI{}, chrono.NewStandardImpl())
		if err != nil {
			return err
		}
		res, err := inst.Upload(cmd.Context())
		if err != nil {
			return err
		}

		action := "updated"
		if res.Created {
			action = "created"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s widget %s\n", action, res.Uuid)
		return nil
	},
}

func init() {
	uploadCmd.Flags().BoolVar(&uploadMarketplace, "marketplace", false, "Search the paginated marketplace listing for an existing registration.")
	uploadCmd.Flags().StringVar(&uploadRedirectUri, "redirect-uri", "", "The OAuth redirect uri of the registration.")
	uploadCmd.Flags().StringVar(&uploadLocale, "locale", "", "The locale manifest.json is written in.")
	rootCmd.AddCommand(uploadCmd)
}
