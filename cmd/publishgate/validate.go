package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"PublishGate/internal/app"
	"PublishGate/internal/domain"
)

// errRejected makes the process exit non-zero when the record cannot be published.
var errRejected = errors.New("content cannot be published")

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a JSON content record and print the verdict",
		Long: `Validate runs every pre-publish check over a content record read from --file
(or stdin when --file is "-") and prints the verdict as JSON. Identifier lookups
are skipped, so shortcode identifiers are only checked syntactically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var in io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("open record: %w", err)
				}
				defer f.Close()
				in = f
			}

			var record domain.ContentRecord
			if err := json.NewDecoder(in).Decode(&record); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}

			v := app.BuildValidator(opts.cfg, nil, opts.logger, nil)
			verdict := v.Validate(record, opts.cfg.Policy)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(verdict); err != nil {
				return err
			}
			if !verdict.CanPublish {
				return errRejected
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "content record JSON file, - for stdin")
	return cmd
}
