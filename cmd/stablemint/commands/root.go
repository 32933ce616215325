package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const Version = "1.0.0"

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "stablemint",
	Short: "Overcollateralized stablecoin engine",
	Long: `Stablemint is a collateralized-debt engine: participants deposit
approved collateral assets, mint a USD-pegged stablecoin against their
value, and any participant may liquidate under-collateralized positions
for a bonus. No governance, no fees; solvency rests on a 200%
overcollateralization requirement enforced on every debt-increasing or
collateral-decreasing operation.`,
	Version: Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}
