package commands

import (
	"amowidget/internal/archive"
	"amowidget/internal/components/telemetry"
	"amowidget/internal/installer"
	"amowidget/internal/manifest"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var inspectLocale string

var inspectCmd = &cobra.Command{
	Use:   "inspect <widget.zip>",
	Short: "Show the localized name and description that would be uploaded.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pkg, err := archive.Open(args[0])
		if err != nil {
			return err
		}

		locale := cfg.DefaultLocale
		if inspectLocale != "" {
			locale = inspectLocale
		}
		if locale == "" {
			locale = installer.DefaultLocale
		}
		resolver := manifest.NewResolver(pkg, locale, telemetry.SlogAPI{})

		t := newTable(cmd)
		t.AppendHeader(table.Row{"Locale", "Name", "Description"})
		for _, l := range installer.Locales() {
			name, err := resolver.LocalizedOrEmpty(installer.NameKey, l)
			if err != nil {
				return err
			}
			description, err := resolver.LocalizedOrEmpty(installer.DescriptionKey, l)
			if err != nil {
				return err
			}
			t.AppendRow(table.Row{l, name, description})
		}
		t.Render()
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectLocale, "locale", "", "The locale manifest.json is written in.")
	rootCmd.AddCommand(inspectCmd)
}
