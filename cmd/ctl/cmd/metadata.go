package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpfielding/fairdata.go/pkg/domain"
)

// NewMetadataCmd tabulates DICOM files of one domain as TSV
func NewMetadataCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata [files or dirs...]",
		Short: "Write the metadata TSV of a data domain",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, _ := cmd.Flags().GetString("profile")
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			d, err := domain.Lookup(profile)
			if err != nil {
				return err
			}
			files, err := inputs(cmd, args)
			if err != nil {
				return err
			}
			if err := d.Metadata(ctx, files, out); err != nil {
				return err
			}
			printer.Fprintf(cmd.ErrOrStderr(), "tabulated %d files into %s\n", len(files), out)
			return nil
		},
	}
	cmd.Flags().String("profile", "cfpir", "data domain (cfpir|oct)")
	cmd.Flags().StringP("out", "o", "", "output TSV file")
	addGlobFlag(cmd, "**.dcm")
	return cmd
}
