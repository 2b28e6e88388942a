package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "typebus",
		Short: "Inspect typebus message envelopes",
		Long: `typebus is a CLI tool for working with the JSON envelopes accepted by
Client.HandleEnvelope. Envelopes are read one per line.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildTime),
		SilenceUsage: true,
	}

	var verbose bool
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	var strict bool
	inspectCmd := &cobra.Command{
		Use:   "inspect [files...]",
		Short: "Summarize envelopes by type and correlation id",
		Long:  "Read newline-delimited envelopes from the given files, or stdin when none are given, and print their headers.",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			var summary summary
			if len(args) == 0 {
				if err := inspect(cmd.InOrStdin(), "stdin", &summary, logger); err != nil {
					return err
				}
			}
			for _, path := range args {
				if err := inspectFile(path, &summary, logger); err != nil {
					return err
				}
			}

			printSummary(cmd.OutOrStdout(), &summary)
			if strict && summary.invalid > 0 {
				return fmt.Errorf("%d invalid envelopes", summary.invalid)
			}
			return nil
		},
	}
	inspectCmd.Flags().BoolVar(&strict, "strict", false, "Fail when any envelope is invalid")

	rootCmd.AddCommand(inspectCmd)
	return rootCmd
}

func inspectFile(path string, summary *summary, logger *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return inspect(f, path, summary, logger)
}

func printSummary(w io.Writer, s *summary) {
	fmt.Fprintf(w, "%-50s %-10s %-12s\n", "Type", "Count", "Body bytes")
	for _, row := range s.rows() {
		fmt.Fprintf(w, "%-50s %-10d %-12d\n", truncate(row.typeName, 50), row.count, row.bodyBytes)
	}
	fmt.Fprintf(w, "\nEnvelopes: %d  Correlations: %d  Invalid: %d\n", s.total, len(s.correlations), s.invalid)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
