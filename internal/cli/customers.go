package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tamween/internal/core"
)

type listOptions struct {
	search string
	sort   string
	json   bool
}

func newListCmd(st *state) *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List customers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view := st.service.View(core.Query{Search: opts.search, Sort: core.ParseSortOrder(opts.sort)})
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), view)
			}
			return printTable(cmd.OutOrStdout(), st, view.Records)
		},
	}
	cmd.Flags().StringVarP(&opts.search, "search", "s", "", "Filter by name or page number")
	cmd.Flags().StringVar(&opts.sort, "sort", string(core.SortLatest), "Sort order: latest, alphabetical, family")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the view as JSON")
	return cmd
}

func newShowCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one customer as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := st.service.Get(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), c)
		},
	}
}

func newAddCmd(st *state) *cobra.Command {
	var c core.Candidate
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a customer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := st.service.Add(st.ctx(cmd), c)
			if !applied(err) {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rec.ID)
			return err
		},
	}
	cmd.Flags().StringVar(&c.Name, "name", "", "Customer name (required)")
	cmd.Flags().StringVar(&c.PageNumber, "page", "", "Page number in the ration book (required)")
	cmd.Flags().IntVar(&c.FamilyCount, "family", 1, "Number of family members")
	cmd.Flags().StringVar(&c.SecretPin, "pin", "", "Card PIN (required)")
	return cmd
}

// newUpdateCmd changes only the fields whose flags are given.
func newUpdateCmd(st *state) *cobra.Command {
	var c core.Candidate
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update fields of a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p core.Patch
			flags := cmd.Flags()
			if flags.Changed("name") {
				p.Name = &c.Name
			}
			if flags.Changed("page") {
				p.PageNumber = &c.PageNumber
			}
			if flags.Changed("family") {
				p.FamilyCount = &c.FamilyCount
			}
			if flags.Changed("pin") {
				p.SecretPin = &c.SecretPin
			}
			if p == (core.Patch{}) {
				return withCode(ExitUsage, fmt.Errorf("nothing to update: pass at least one of --name, --page, --family, --pin"))
			}

			rec, err := st.service.Update(st.ctx(cmd), args[0], p)
			if !applied(err) {
				return err
			}
			if werr := writeJSON(cmd.OutOrStdout(), rec); werr != nil {
				return werr
			}
			return err
		},
	}
	cmd.Flags().StringVar(&c.Name, "name", "", "New name")
	cmd.Flags().StringVar(&c.PageNumber, "page", "", "New page number")
	cmd.Flags().IntVar(&c.FamilyCount, "family", 1, "New number of family members")
	cmd.Flags().StringVar(&c.SecretPin, "pin", "", "New PIN")
	return cmd
}

func newDeleteCmd(st *state) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := st.service.Get(args[0])
			if err != nil {
				return err
			}
			q := fmt.Sprintf("Delete %q (page %s)?", c.Name, c.PageNumber)
			if err := confirm(cmd, yes, q); err != nil {
				return err
			}
			return st.service.Delete(st.ctx(cmd), c.ID)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newStatsCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show register totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := st.service.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "customers:   %d\nindividuals: %d\naverage:     %s\n",
				s.Customers, s.Individuals, s.Average)
			return nil
		},
	}
}

func newResetCmd(st *state) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove every customer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := fmt.Sprintf("Remove all %d customers?", st.service.Len())
			if err := confirm(cmd, yes, q); err != nil {
				return err
			}
			return st.service.Reset(st.ctx(cmd))
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// printTable writes records under the localized column headers.
func printTable(w io.Writer, st *state, records []core.Customer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	h := core.CSVHeader(st.lang)
	fmt.Fprintf(tw, "ID\t%s\t%s\t%s\t%s\t%s\n", h[0], h[1], h[2], h[3], h[4])
	dates := st.service.Dates()
	for _, c := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			c.ID, c.Name, c.PageNumber, c.FamilyCount, c.SecretPin, dates.Format(c.CreatedAt))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
