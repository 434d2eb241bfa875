package continuity

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/storyweave/continuity/pkg/config"
)

var (
	scanStoryID string
	scanUserID  string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a one-off contradiction scan for a story",
	RunE:  runScan,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the stored contradiction report for a story",
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(reportCmd)

	for _, cmd := range []*cobra.Command{scanCmd, reportCmd} {
		cmd.Flags().StringVar(&scanStoryID, "story-id", "", "Story to scan (required)")
		cmd.Flags().StringVar(&scanUserID, "user-id", "", "User owning the story scope")
		cmd.MarkFlagRequired("story-id")
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client, _, err := initializeClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	result := client.DetectContradictions(context.Background(), scanStoryID, scanUserID)
	if result.Error != "" {
		fmt.Fprintf(os.Stderr, "scan failed: %s\n", result.Error)
	}
	return printJSON(result)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client, _, err := initializeClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	report := client.ConsistencyReport(context.Background(), scanStoryID, scanUserID)
	if report.Error != "" {
		fmt.Fprintf(os.Stderr, "report failed: %s\n", report.Error)
	}
	return printJSON(report)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
