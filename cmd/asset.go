package cmd

import (
	"fmt"

	"github.com/PolarWolf314/coffer/internal/finance"
	"github.com/PolarWolf314/coffer/internal/ui"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	assetName     string
	assetCategory string
	assetValue    amountValue
	assetCurrency string
	assetNotes    string
	assetHistory  bool
)

func init() {
	for _, c := range []*cobra.Command{assetAddCmd, assetUpdateCmd} {
		c.Flags().StringVar(&assetName, "name", "", "asset name")
		c.Flags().StringVar(&assetCategory, "category", "", "asset category, for example savings or property")
		c.Flags().Var(&assetValue, "value", "current value")
		c.Flags().StringVar(&assetNotes, "notes", "", "free-form notes")
	}
	assetAddCmd.Flags().StringVar(&assetCurrency, "currency", "", "currency of the value (default: your display currency)")
	assetListCmd.Flags().BoolVar(&assetHistory, "history", false, "show the change history instead")

	assetCmd.AddCommand(assetAddCmd)
	assetCmd.AddCommand(assetUpdateCmd)
	assetCmd.AddCommand(assetListCmd)
	assetCmd.AddCommand(assetRemoveCmd)
}

var assetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Track what you own",
	Long:  `Adds, updates, lists and removes assets. Every change is kept in the asset history.`,
}

var assetAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an asset",
	Long: `Adds an asset with its current value.

Examples:
  coffer asset add --name "Savings account" --category savings --value 2500`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting asset add command")

		e, err := openEnv(cmd.Context(), true)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		asset, err := e.ledger().AddAsset(finance.AssetInput{
			Name:     assetName,
			Category: assetCategory,
			Value:    assetValue.amount,
			Currency: assetCurrency,
			Notes:    assetNotes,
		})
		if err != nil {
			return report(err)
		}

		fmt.Println(ui.Success.Sprint("✓") + " Added asset " + ui.Highlight.Sprint(asset.Name) + " " +
			ui.Amount.Sprint(finance.FormatAmount(asset.Value, assetCurrencyOr(asset, e.currency()))) + " " + ui.Muted.Sprint(asset.ID))
		return nil
	},
}

var assetUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change an asset",
	Long: `Changes the given fields of an asset. Fields you leave out are kept.

Examples:
  coffer asset update 3f2a... --value 2750`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting asset update command")

		var update finance.AssetUpdate
		if cmd.Flags().Changed("name") {
			update.Name = &assetName
		}
		if cmd.Flags().Changed("category") {
			update.Category = &assetCategory
		}
		if cmd.Flags().Changed("notes") {
			update.Notes = &assetNotes
		}
		update.Value = assetValue.pointer()

		e, err := openEnv(cmd.Context(), true)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		asset, err := e.ledger().UpdateAsset(args[0], update)
		if err != nil {
			return report(err)
		}

		fmt.Println(ui.Success.Sprint("✓") + " Updated asset " + ui.Highlight.Sprint(asset.Name) + " " +
			ui.Amount.Sprint(finance.FormatAmount(asset.Value, assetCurrencyOr(asset, e.currency()))))
		return nil
	},
}

var assetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List assets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting asset list command")

		e, err := openEnv(cmd.Context(), true)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		ledger := e.ledger()
		currency := e.currency()

		if assetHistory {
			history, err := ledger.AssetHistory()
			if err != nil {
				return report(err)
			}
			if len(history) == 0 {
				fmt.Println("No asset history yet.")
				return nil
			}
			for _, h := range history {
				change := finance.FormatAmount(h.Value, currency)
				if h.PreviousValue != nil {
					change = finance.FormatAmount(*h.PreviousValue, currency) + " -> " + change
				}
				fmt.Printf("%s  %-8s  %s  %s\n", h.Timestamp.Local().Format("2006-01-02 15:04"), h.Action, ui.Highlight.Sprint(h.Name), change)
			}
			return nil
		}

		assets, err := ledger.Assets()
		if err != nil {
			return report(err)
		}
		if len(assets) == 0 {
			fmt.Println("No assets yet.")
			printHint("Run " + ui.Code.Sprint("coffer asset add") + " to add one")
			return nil
		}

		total := decimal.Zero
		for _, a := range assets {
			fmt.Printf("%s  %-24s  %-12s  %s\n", ui.Muted.Sprint(a.ID), a.Name, a.Category, ui.Amount.Sprint(finance.FormatAmount(a.Value, assetCurrencyOr(a, currency))))
			total = total.Add(a.Value)
		}
		fmt.Println()
		fmt.Println("Total: " + ui.Amount.Sprint(finance.FormatAmount(total, currency)))
		return nil
	},
}

var assetRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove"},
	Short:   "Remove an asset",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting asset rm command")

		e, err := openEnv(cmd.Context(), true)
		if err != nil {
			return reportFlow(err)
		}
		defer e.Close()

		if err := e.ledger().DeleteAsset(args[0]); err != nil {
			return report(err)
		}
		fmt.Println(ui.Success.Sprint("✓") + " Removed asset " + ui.Highlight.Sprint(args[0]))
		return nil
	},
}

func assetCurrencyOr(a finance.Asset, fallback string) string {
	if a.Currency != "" {
		return a.Currency
	}
	return fallback
}
