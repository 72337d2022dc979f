package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"lufs-timeline/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `config prints the configuration after the file and flags are applied. With
--write it is saved to the configuration file for later runs.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().Bool("write", false,
		"Save the effective configuration to the configuration file")
}

func runConfig(cmd *cobra.Command, args []string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	fmt.Println(string(data))

	if write, _ := cmd.Flags().GetBool("write"); write {
		if err := config.Save(configPath, cfg); err != nil {
			return err
		}
		fmt.Printf("✓ Saved to %s\n", configPath)
	}

	return nil
}
