package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpfielding/fairdata.go/pkg/batch"
	"github.com/jpfielding/fairdata.go/pkg/classify"
	"github.com/jpfielding/fairdata.go/pkg/identify"
)

// NewClassifyCmd labels DICOM files with the first matching rule
func NewClassifyCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [files or dirs...]",
		Short: "Label DICOM files by protocol or image type",
		Long:  "Extracts the classification attributes of each file and prints the name of the first rule they satisfy.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rulesName, _ := cmd.Flags().GetString("rules")
			rules, err := classify.RulesByName(rulesName)
			if err != nil {
				return err
			}
			files, err := inputs(cmd, args)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			report := batch.Run(ctx, files, func(ctx context.Context, path string) (string, error) {
				return classify.Classify(path, rules)
			})
			for _, res := range report.Succeeded() {
				fmt.Fprintf(w, "%s\t%s\n", res.Item, res.Value)
			}
			return printCounts(cmd, "classified", report)
		},
	}
	cmd.Flags().String("rules", "protocol", "rule table (protocol|image) or a rules YAML file")
	addGlobFlag(cmd, "**.dcm")
	return cmd
}

// NewSummaryCmd prints the protocol summary of DICOM files as JSON lines
func NewSummaryCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary [files or dirs...]",
		Short: "Summarize DICOM files as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			describe, _ := cmd.Flags().GetBool("describe")
			files, err := inputs(cmd, args)
			if err != nil {
				return err
			}
			summarize := classify.Summarize
			if describe {
				summarize = classify.Describe
			}
			report := batch.Run(ctx, files, func(ctx context.Context, path string) (classify.Summary, error) {
				return summarize(path)
			})
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, res := range report.Succeeded() {
				if err := enc.Encode(res.Value); err != nil {
					return err
				}
			}
			return printCounts(cmd, "summarized", report)
		},
	}
	cmd.Flags().Bool("describe", false, "add the device and image description")
	addGlobFlag(cmd, "**.dcm")
	return cmd
}

// NewIdentifyCmd identifies the acquisition inside device zips
func NewIdentifyCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identify [zips or dirs...]",
		Short: "Identify device zips as JSON lines",
		Long:  "Works out the patient, laterality and protocol of environmental, ECG, FLIO and DICOM zips from their names and contents.",
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := inputs(cmd, args)
			if err != nil {
				return err
			}
			report := identify.IdentifyBatch(ctx, files)
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, res := range report.Succeeded() {
				if err := enc.Encode(res.Value); err != nil {
					return err
				}
			}
			return printCounts(cmd, "identified", report)
		},
	}
	addGlobFlag(cmd, "**.zip")
	return cmd
}
