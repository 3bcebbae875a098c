package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/azure/outreach-dashboard/internal/app"
	"github.com/azure/outreach-dashboard/internal/config"
	"github.com/azure/outreach-dashboard/internal/models"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	startDate string
	endDate   string
	outputDir string
)

var rootCmd = &cobra.Command{
	Use:   "export-report",
	Short: "Render the social media publications report",
	Long: `Renders the publications report for the given period (or for every
publication when no period is given), writes it to the output directory and
hands it to the configured archive and delivery channels.`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&startDate, "start", "", "first day of the period (YYYY-MM-DD)")
	rootCmd.Flags().StringVar(&endDate, "end", "", "last day of the period (YYYY-MM-DD)")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", ".", "directory the rendered report is written to")
}

func run(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	filters, err := models.ParseFilters(startDate, endDate)
	if err != nil {
		return err
	}

	ctx := context.Background()
	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	doc, err := application.Social.ExportReportFor(ctx, filters)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(outputDir, doc.Filename)
	if err := os.WriteFile(path, doc.Data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	fmt.Printf("Report written to %s (%s)\n", path, filters.Signature())
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
