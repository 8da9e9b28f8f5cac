package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jpfielding/fairdata.go/pkg/archive"
	"github.com/jpfielding/fairdata.go/pkg/batch"
	"github.com/jpfielding/fairdata.go/pkg/logging"
)

func NewRoot(ctx context.Context, gitsha string) *cobra.Command {
	var logFile io.Closer
	cmd := &cobra.Command{
		Use:          "fairctl",
		Short:        "a CLI to convert, classify and describe AI-READI data",
		Long:         "Converts vendor DICOM to the de-identified layout, classifies and identifies acquisitions, tabulates metadata and writes the FAIR dataset files.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logLevel, _ := cmd.Flags().GetString("log-level")
			asJSON, _ := cmd.Flags().GetBool("log-json")
			path, _ := cmd.Flags().GetString("log-file")

			var level slog.Level
			levelErr := level.UnmarshalText([]byte(strings.ToUpper(logLevel)))
			if levelErr != nil {
				level = slog.LevelInfo
			}
			var w io.Writer = os.Stderr
			if path != "" {
				f := logging.RotatingFile(path, 0, 3)
				logFile, w = f, f
			}
			slog.SetDefault(logging.Logger(w, asJSON, level))

			if levelErr != nil {
				slog.WarnContext(ctx, "Invalid log level, defaulting to INFO", "level", logLevel, "error", levelErr)
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logFile != nil {
				logFile.Close()
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd.OutOrStdout(), cmd, 0)
		},
	}
	cmd.AddCommand(
		NewVersionCmd(ctx, gitsha),
		NewDumpCmd(ctx),
		NewConvertCmd(ctx),
		NewClassifyCmd(ctx),
		NewSummaryCmd(ctx),
		NewIdentifyCmd(ctx),
		NewMetadataCmd(ctx),
		NewValidateCmd(ctx),
		NewGenerateCmd(ctx),
	)
	pf := cmd.PersistentFlags()
	pf.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	pf.Bool("log-json", false, "log as json")
	pf.String("log-file", "", "log to a rotated file instead of stderr")
	return cmd
}

func printCommandTree(w io.Writer, cmd *cobra.Command, indent int) {
	fmt.Fprintln(w, strings.Repeat("\t", indent), cmd.Name()+":", cmd.Short)
	for _, subCmd := range cmd.Commands() {
		printCommandTree(w, subCmd, indent+1)
	}
}

func NewVersionCmd(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "git sha for this build",
		Long:  "git sha for this build",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), gitsha)
		},
	}
	return cmd
}

// inputs expands args into files. Directories are walked and filtered by
// the --glob patterns.
func inputs(cmd *cobra.Command, args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one input file or directory is required")
	}
	patterns, _ := cmd.Flags().GetStringSlice("glob")
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			// missing files are reported per item by the batch
			files = append(files, arg)
			continue
		}
		found, err := archive.Walk(arg, patterns...)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

func addGlobFlag(cmd *cobra.Command, def ...string) {
	cmd.Flags().StringSlice("glob", def, "patterns selecting files inside directory inputs")
}

var printer = message.NewPrinter(language.English)

// printCounts writes the closing tally of a batch and fails the command
// when any item failed
func printCounts[T any](cmd *cobra.Command, verb string, report batch.Report[T]) error {
	ok, failed := len(report.Succeeded()), len(report.Failed())
	printer.Fprintf(cmd.ErrOrStderr(), "%s %d of %d files (%d failed), run %s\n",
		verb, ok, len(report.Results), failed, report.RunID)
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(report.Results))
	}
	return nil
}
