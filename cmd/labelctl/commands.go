package main

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/cynaps/labelstate/pkg/results"
)

func newValidateCmd() *cobra.Command {
	var (
		schemaPath string
		resultPath string
		items      int
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check required controls against a result list",
		Long: `Deserialize a result list and run required-control validation.
Regions are discovered from the result itself. Exits 1 when any warning is reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := load(schemaPath, resultPath, cmd.InOrStdin())
			if err != nil {
				return err
			}

			if items <= 0 {
				items = l.itemCount()
			}

			warnings := results.Validate(l.store, l.schema, results.Scope{
				Items:   items,
				Regions: results.DiscoverRegions(l.store),
			})

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(map[string]any{
					"valid":    len(warnings) == 0,
					"items":    items,
					"report":   l.report,
					"warnings": warnings,
				}); err != nil {
					return err
				}
			} else {
				for _, w := range warnings {
					fmt.Fprintf(out, "%s: %s\n", w.Control, w.Message)
				}
				if len(warnings) == 0 {
					fmt.Fprintf(out, "ok: %d records, %d items\n", len(l.records), items)
				}
			}

			if len(warnings) > 0 {
				return errFindings
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "Control schema file (YAML or JSON)")
	cmd.Flags().StringVar(&resultPath, "result", "-", "Result list file, - for stdin")
	cmd.Flags().IntVar(&items, "items", 0, "Item count (default: inferred from item_index)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	cmd.MarkFlagRequired("schema")

	return cmd
}

func newRoundTripCmd() *cobra.Command {
	var (
		schemaPath string
		resultPath string
	)

	cmd := &cobra.Command{
		Use:   "roundtrip",
		Short: "Check that a result list survives deserialize and serialize unchanged",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := load(schemaPath, resultPath, cmd.InOrStdin())
			if err != nil {
				return err
			}

			diffs, err := compare(l.records, results.Serialize(l.store))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, d := range diffs {
				fmt.Fprintln(out, d)
			}
			if len(diffs) > 0 {
				return errFindings
			}

			fmt.Fprintf(out, "ok: %d records (%d bound, %d opaque)\n",
				len(l.records), l.report.Bound, l.report.Opaque)
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "Control schema file (YAML or JSON)")
	cmd.Flags().StringVar(&resultPath, "result", "-", "Result list file, - for stdin")

	return cmd
}

func newNormalizeCmd() *cobra.Command {
	var (
		schemaPath string
		resultPath string
		compact    bool
	)

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Re-serialize a result list to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := load(schemaPath, resultPath, cmd.InOrStdin())
			if err != nil {
				return err
			}

			out := results.Serialize(l.store)
			if compact {
				data, err := results.EncodeRecords(out)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "Control schema file (YAML or JSON)")
	cmd.Flags().StringVar(&resultPath, "result", "-", "Result list file, - for stdin")
	cmd.Flags().BoolVar(&compact, "compact", false, "Write a single line")

	return cmd
}

// compare reports records that differ between two result lists once both are
// reduced to generic JSON values.
func compare(want, got []results.Record) ([]string, error) {
	w, err := generic(want)
	if err != nil {
		return nil, err
	}
	g, err := generic(got)
	if err != nil {
		return nil, err
	}

	var diffs []string
	if len(w) != len(g) {
		diffs = append(diffs, fmt.Sprintf("length: got %d, want %d", len(g), len(w)))
	}
	for i := range min(len(w), len(g)) {
		if !reflect.DeepEqual(w[i], g[i]) {
			diffs = append(diffs, fmt.Sprintf("record %d: got %v, want %v", i, g[i], w[i]))
		}
	}
	return diffs, nil
}

func generic(records []results.Record) ([]any, error) {
	data, err := results.EncodeRecords(records)
	if err != nil {
		return nil, err
	}
	var out []any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
