package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/abhisek/vidya/internal/export"
	"github.com/abhisek/vidya/internal/store"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <conversation-id>",
	Short: "Export a conversation as markdown, JSON, or YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("output")

		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}
		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		ctx := context.Background()
		conv, err := s.Conversations().Get(ctx, args[0])
		if err != nil {
			return fmt.Errorf("load conversation: %w", err)
		}
		if conv == nil {
			return fmt.Errorf("conversation %q not found", args[0])
		}

		if outPath == "" {
			return exporter.Export(conv, os.Stdout)
		}

		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		if err := exporter.Export(conv, f); err != nil {
			return err
		}
		fmt.Printf("Exported to %s\n", outPath)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("format", "f", "md", "Output format: md, json, or yaml")
	exportCmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
}
