package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jpfielding/fairdata.go/pkg/batch"
	"github.com/jpfielding/fairdata.go/pkg/fairdata"
)

// readDocument loads a JSON or YAML document
func readDocument(path string) (any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &doc)
	default:
		err = json.Unmarshal(b, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}

func validator(cmd *cobra.Command) *fairdata.Validator {
	dir, _ := cmd.Flags().GetString("schemas")
	if dir == "" {
		return nil
	}
	return fairdata.NewValidator(dir)
}

// NewValidateCmd checks metadata documents against their schema
func NewValidateCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [documents...]",
		Short: "Validate metadata documents against a JSON schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _ := cmd.Flags().GetString("kind")
			license, _ := cmd.Flags().GetString("license")
			licenses, _ := cmd.Flags().GetString("licenses")
			w := cmd.OutOrStdout()

			if license != "" {
				ok, err := fairdata.ValidateLicense(licenses, license)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("license %q is not listed in %s", license, licenses)
				}
				fmt.Fprintf(w, "%s\tvalid\n", license)
				if len(args) == 0 {
					return nil
				}
			}

			v := validator(cmd)
			if v == nil {
				return fmt.Errorf("--schemas is required")
			}
			files, err := inputs(cmd, args)
			if err != nil {
				return err
			}
			report := batch.Run(ctx, files, func(ctx context.Context, path string) (string, error) {
				doc, err := readDocument(path)
				if err != nil {
					return "", err
				}
				return "valid", v.Validate(fairdata.Kind(kind), doc)
			})
			for _, res := range report.Results {
				var ve *fairdata.ValidationError
				switch {
				case res.OK():
					fmt.Fprintf(w, "%s\t%s\n", res.Item, res.Value)
				case errors.As(res.Err, &ve):
					fmt.Fprintf(w, "%s\tinvalid\t%s\t%s\n", res.Item, ve.Location, ve.Message)
				}
			}
			return printCounts(cmd, "validated", report)
		},
	}
	pf := cmd.Flags()
	pf.String("kind", string(fairdata.DatasetDescription), "schema kind ("+kindNames()+")")
	pf.String("schemas", "", "directory holding <kind>.schema.json files")
	pf.String("license", "", "license identifier to look up")
	pf.String("licenses", "licenses.json", "SPDX licenses file")
	addGlobFlag(cmd, "**.json", "**.yaml")
	return cmd
}

func kindNames() string {
	names := make([]string, len(fairdata.Kinds))
	for i, k := range fairdata.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, "|")
}

// NewGenerateCmd groups the metadata file generators
func NewGenerateCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate FAIR metadata files",
	}
	cmd.AddCommand(
		newDocumentCmd("dataset-description", "Write the dataset description (json|xml)",
			(*fairdata.Generator).GenerateDatasetDescription),
		newDocumentCmd("study-description", "Write the study description (json|xml)",
			(*fairdata.Generator).GenerateStudyDescription),
		newDocumentCmd("readme", "Write the readme (txt|md)",
			(*fairdata.Generator).GenerateReadme),
		newChangelogCmd(),
		newLicenseCmd(),
		newDatatypeCmd(),
	)
	pf := cmd.PersistentFlags()
	pf.StringP("out", "o", "", "output file")
	pf.String("type", "", "output file type, defaults to the --out extension")
	pf.String("schemas", "", "validate input against the schemas in this directory")
	return cmd
}

// outputFlags resolves --out and --type
func outputFlags(cmd *cobra.Command) (string, fairdata.FileType, error) {
	out, _ := cmd.Flags().GetString("out")
	ft, _ := cmd.Flags().GetString("type")
	if out == "" {
		return "", "", fmt.Errorf("--out is required")
	}
	if ft == "" {
		ft = strings.TrimPrefix(filepath.Ext(out), ".")
	}
	if ft == "yml" {
		ft = string(fairdata.YAML)
	}
	return out, fairdata.FileType(strings.ToLower(ft)), nil
}

func newDocumentCmd(use, short string, gen func(*fairdata.Generator, any, string, fairdata.FileType) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " [document]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, ft, err := outputFlags(cmd)
			if err != nil {
				return err
			}
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			if err := gen(fairdata.NewGenerator(validator(cmd)), doc, out, ft); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	return cmd
}

func newChangelogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changelog [text file]",
		Short: "Write the changelog (txt|md)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, ft, err := outputFlags(cmd)
			if err != nil {
				return err
			}
			text, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := fairdata.NewGenerator(nil).GenerateChangelog(string(text), out, ft); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	return cmd
}

func newLicenseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "license",
		Short: "Write the license (txt|md) from text or an identifier",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, ft, err := outputFlags(cmd)
			if err != nil {
				return err
			}
			id, _ := cmd.Flags().GetString("id")
			textFile, _ := cmd.Flags().GetString("text")
			licenses, _ := cmd.Flags().GetString("licenses")
			var text string
			if textFile != "" {
				b, err := os.ReadFile(textFile)
				if err != nil {
					return err
				}
				text = string(b)
			}
			if err := fairdata.NewGenerator(nil).GenerateLicense(out, ft, id, text, licenses); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().String("id", "", "SPDX license identifier")
	cmd.Flags().String("text", "", "file with the license text, takes precedence over --id")
	cmd.Flags().String("licenses", "licenses.json", "SPDX licenses file")
	return cmd
}

func newDatatypeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datatype [codes...]",
		Short: "Write the datatype dictionary (yaml) for code names or aliases",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, ft, err := outputFlags(cmd)
			if err != nil {
				return err
			}
			dict, _ := cmd.Flags().GetString("dictionary")
			if err := fairdata.NewGenerator(validator(cmd)).GenerateDatatypeDictionary(args, out, ft, dict); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().String("dictionary", "datatype_dictionary.yaml", "full datatype dictionary")
	return cmd
}
