// ABOUTME: Trip show command
// ABOUTME: Prints a trip summary and its captures, or a markdown report

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/harper/rotograma/internal/export"
	"github.com/harper/rotograma/internal/storage"
	"github.com/harper/rotograma/internal/ui"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a recorded trip",
	Long: `Show a trip's summary and labelled captures.

The trip can be named by its full ID or any unique prefix.

Examples:
  rotograma show 0b7f5a52
  rotograma show 0b7f5a52 --markdown > trip.md`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := db.ResolveSession(args[0])
		if err != nil {
			return fmt.Errorf("trip '%s' not found: %w", args[0], err)
		}

		if md, _ := cmd.Flags().GetBool("markdown"); md {
			data, err := storage.ExportToMarkdown(db, &sess.ID)
			if err != nil {
				return fmt.Errorf("failed to generate markdown: %w", err)
			}
			_, err = os.Stdout.Write(data)
			return err
		}

		sum := export.Summarize(sess)
		color.New(color.Bold).Printf("Trip %s\n", sess.ID)
		fmt.Printf("  started   %s\n", sess.StartedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("  duration  %s\n", ui.FormatDuration(sum.Duration))
		fmt.Printf("  distance  %s\n", ui.FormatDistance(sum.DistanceM))
		fmt.Printf("  climb     %s\n", ui.FormatDistance(sum.ElevationGainM))
		fmt.Printf("  points    %d\n", sum.PointCount)
		if sess.Video != nil {
			fmt.Printf("  video     %s, %d bytes\n", sess.Video.MIMEType, len(sess.Video.Data))
		} else {
			fmt.Printf("  video     %s\n", color.YellowString("not saved"))
		}

		if len(sess.CaptureEvents) == 0 {
			fmt.Println("\nNo captures.")
			return nil
		}
		fmt.Printf("\nCaptures (%d, %d without map):\n", sum.CaptureCount, sum.DegradedCount)
		for i, ev := range sess.CaptureEvents {
			fmt.Println(ui.FormatCapture(i, ev))
		}
		return nil
	},
}

func init() {
	showCmd.Flags().BoolP("markdown", "m", false, "print a markdown report instead")

	rootCmd.AddCommand(showCmd)
}
