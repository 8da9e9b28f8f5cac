package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpfielding/fairdata.go/pkg/dcm"
)

// NewDumpCmd prints the elements of a DICOM file
func NewDumpCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump [file]",
		Short: "Dump DICOM file structure",
		Long:  "Parses a DICOM file and prints its meta group and body, nesting sequence items. Pixel data is skipped unless asked for.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath, _ := cmd.Flags().GetString("file")
			if filePath == "" && len(args) > 0 {
				filePath = args[0]
			}
			if filePath == "" {
				return fmt.Errorf("file path is required. Use --file flag or provide as argument")
			}
			format, _ := cmd.Flags().GetString("format")
			pixels, _ := cmd.Flags().GetBool("pixels")
			validate, _ := cmd.Flags().GetBool("validate")

			var opts []dcm.ReadOption
			if !pixels {
				opts = append(opts, dcm.WithoutPixelData())
			}
			f, err := dcm.ReadFile(filePath, opts...)
			if err != nil {
				return fmt.Errorf("parse error: %w", err)
			}

			w := cmd.OutOrStdout()
			switch format {
			case "json":
				if err := dcm.DumpJSON(w, f.Elements()); err != nil {
					return err
				}
			default:
				fmt.Fprintf(w, "TransferSyntax: %s\n", f.Syntax().Name())
				fmt.Fprintf(w, "Total elements: %d\n\n", len(f.Elements()))
				if err := dcm.Dump(w, f.Elements()); err != nil {
					return err
				}
			}

			if !validate {
				return nil
			}
			res := dcm.QuickValidate(f.Elements())
			for _, e := range res.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", e)
			}
			for _, e := range res.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", e)
			}
			if !res.IsValid() {
				return fmt.Errorf("%s failed validation", filePath)
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("file", "f", "", "DICOM file path to dump")
	pf.String("format", "text", "output format (text|json)")
	pf.Bool("pixels", false, "read pixel data too")
	pf.Bool("validate", false, "check the attributes every converted file carries")
	return cmd
}
