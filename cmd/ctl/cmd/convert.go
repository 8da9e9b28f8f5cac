package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpfielding/fairdata.go/pkg/convert"
	"github.com/jpfielding/fairdata.go/pkg/logging"
)

// NewConvertCmd rewrites vendor files with a conversion rule
func NewConvertCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [files or dirs...]",
		Short: "Convert DICOM files or vendor zips",
		Long: "Rewrites each input, a DICOM file or a zip holding one, with the Keep/Blank/Harmonize decisions of a conversion rule. " +
			"A single input may be written to --out, anything else lands in --out-dir.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ruleName, _ := cmd.Flags().GetString("rule")
			rulesFile, _ := cmd.Flags().GetString("rules")
			out, _ := cmd.Flags().GetString("out")
			outDir, _ := cmd.Flags().GetString("out-dir")

			rule, err := loadRule(ruleName, rulesFile)
			if err != nil {
				return err
			}
			files, err := inputs(cmd, args)
			if err != nil {
				return err
			}
			ctx := logging.AppendCtx(ctx, slog.String("rule", rule.Name))

			if out != "" {
				if len(files) != 1 {
					return fmt.Errorf("--out takes exactly one input, got %d; use --out-dir", len(files))
				}
				if err := convert.Convert(ctx, rule, files[0], out); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}
			if outDir == "" {
				return fmt.Errorf("--out or --out-dir is required")
			}
			report := convert.ConvertBatch(ctx, rule, files, outDir)
			for _, res := range report.Succeeded() {
				fmt.Fprintln(cmd.OutOrStdout(), res.Value)
			}
			return printCounts(cmd, "converted", report)
		},
	}
	pf := cmd.Flags()
	pf.String("rule", "cfpir", "built-in conversion rule ("+strings.Join(convert.Rules(), "|")+")")
	pf.String("rules", "", "conversion rule YAML file, overrides --rule")
	pf.StringP("out", "o", "", "output file for a single input")
	pf.String("out-dir", "", "output directory")
	addGlobFlag(cmd, "**.dcm", "**.zip")
	return cmd
}

func loadRule(name, file string) (*convert.ConversionRule, error) {
	if file != "" {
		return convert.LoadRuleFile(file)
	}
	return convert.RuleByName(strings.ToLower(name))
}
