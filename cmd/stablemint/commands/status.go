package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the solvency status of a running node",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://localhost:8080", "node API address")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 10 * time.Second}

	resp, err := client.Get(statusAddr + "/api/v1/solvency")
	if err != nil {
		return fmt.Errorf("query node: %w", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			TotalCollateralUSD string `json:"total_collateral_usd"`
			TotalDebt          string `json:"total_debt"`
			Solvent            bool   `json:"solvent"`
		} `json:"data"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !envelope.Success {
		return fmt.Errorf("node error: %s", envelope.Error)
	}

	fmt.Printf("Total collateral (USD, 1e18): %s\n", envelope.Data.TotalCollateralUSD)
	fmt.Printf("Total debt (1e18):            %s\n", envelope.Data.TotalDebt)
	fmt.Printf("Solvent:                      %v\n", envelope.Data.Solvent)
	return nil
}
