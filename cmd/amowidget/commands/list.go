package commands

import (
	"amowidget/internal/amocrm"
	"amowidget/internal/components/telemetry"
	"amowidget/lib/restyutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var listMarketplace bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the integrations the account owns.",
	Args:  cobra.NoArgs,
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

		session, err := amocrm.NewSession(baseUrl, telemetry.SlogAPI{})
		if err != nil {
			return err
		}
		restyutil.Dump(session.Http, dump)

		err = session.Authenticate(cmd.Context(), creds)
		if err != nil {
			return err
		}

		marketplace := cfg.Marketplace
		if cmd.Flags().Changed("marketplace") {
			marketplace = listMarketplace
		}
		records, err := amocrm.NewLocator(session, marketplace).List(cmd.Context())
		if err != nil {
			return err
		}

		t := newTable(cmd)
		t.AppendHeader(table.Row{"Code", "Name", "Type", "UUID"})
		for _, r := range records {
			t.AppendRow(table.Row{r.Code, r.Name, r.Type, r.Uuid})
		}
		t.Render()
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listMarketplace, "marketplace", false, "Use the paginated marketplace listing.")
	rootCmd.AddCommand(listCmd)
}
