// ABOUTME: Import command for restoring trips from a YAML backup
// ABOUTME: Trips already in the database are skipped

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/harper/rotograma/internal/storage"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import trips from a YAML backup",
	Long: `Import trips from a YAML backup file created with 'rotograma backup'.

Trips whose ID is already stored are left untouched.

Examples:
  rotograma import trips.yaml
  rotograma import ~/backups/trips-20240501.yaml --confirm`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := args[0]

		data, err := os.ReadFile(filename) //nolint:gosec // user-chosen backup file
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			fmt.Printf("Import trips from '%s'? [y/N] ", filename)
			reader := bufio.NewReader(os.Stdin)
			response, _ := reader.ReadString('\n')
			response = strings.TrimSpace(strings.ToLower(response))
			if response != "y" && response != "yes" {
				fmt.Println("Canceled.")
				return nil
			}
		}

		summary, err := storage.ImportBackup(db, data)
		if err != nil {
			return fmt.Errorf("failed to import: %w", err)
		}

		color.Green("Import complete")
		fmt.Printf("  %d trips imported, %d already present\n", summary.Imported, summary.Skipped)
		return nil
	},
}

func init() {
	importCmd.Flags().Bool("confirm", false, "skip confirmation prompt")

	rootCmd.AddCommand(importCmd)
}
