package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gotrs-io/boardcheck/internal/config"
	"github.com/gotrs-io/boardcheck/internal/dataset"
)

var validateDataset string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and dataset without opening a browser",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateDataset, "dataset", "", "Dataset file (overrides the configured one)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "config: ok (engine %s, base URL %s)\n", cfg.Browser.Engine, cfg.BaseURL)

	path := cfg.Dataset
	if validateDataset != "" {
		path = validateDataset
	}
	ds, err := dataset.Load(path)
	if err != nil {
		var verr *dataset.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(out, "dataset %s: %d problems\n", path, len(verr.Errors))
			for _, fe := range verr.Errors {
				fmt.Fprintf(out, "  %s: %s\n", fe.Path, fe.Message)
			}
		}
		return err
	}
	fmt.Fprintf(out, "dataset: ok (%d scenarios across %s)\n", len(ds), strings.Join(ds.Apps(), ", "))

	if dups := ds.DuplicateIDs(); len(dups) > 0 {
		fmt.Fprintf(out, "warning: duplicate scenario ids: %s\n", strings.Join(dups, ", "))
	}
	return nil
}
