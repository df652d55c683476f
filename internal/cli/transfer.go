package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tamween/internal/core"
)

func newExportCmd(st *state) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:       "export json|csv",
		Short:     "Export the register as a JSON backup or a CSV table",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"json", "csv"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				exp core.Export
				err error
			)
			if args[0] == "json" {
				exp, err = st.service.ExportJSON()
			} else {
				exp, err = st.service.ExportCSV()
			}
			if err != nil {
				return err
			}

			if output == "-" {
				_, err := cmd.OutOrStdout().Write(exp.Data)
				return err
			}
			path := output
			if path == "" {
				path = exp.Filename
			}
			if err := os.WriteFile(path, exp.Data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `Output file ("-" for stdout; default: dated file name)`)
	return cmd
}

func newImportCmd(st *state) *cobra.Command {
	var (
		policy string
		yes    bool
	)
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Restore a JSON backup by replacing or merging",
		Long: "Restore a JSON backup. --policy is required: replace discards every " +
			"current record, merge keeps current records and adds the new ids.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := core.ParseImportPolicy(policy)
			if err != nil {
				return withCode(ExitUsage, err)
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer f.Close()

			q := fmt.Sprintf("Merge %s into the %d current customers?", args[0], st.service.Len())
			if p == core.PolicyReplace {
				q = fmt.Sprintf("Replace all %d current customers with %s?", st.service.Len(), args[0])
			}
			if err := confirm(cmd, yes, q); err != nil {
				return err
			}

			res, err := st.service.Import(st.ctx(cmd), f, p)
			if !applied(err) {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d duplicates, %d customers now\n",
				res.Imported, res.Duplicates, res.Total)
			return err
		},
	}
	cmd.Flags().StringVarP(&policy, "policy", "p", "", "replace or merge (required)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	_ = cmd.MarkFlagRequired("policy")
	return cmd
}
