package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/failure"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/store"
)

// maxPrinted bounds how many array values find prints.
const maxPrinted = 20

func newFindCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "find QUERY",
		Short: "Print the container value whose path contains QUERY",
		Long: "Resolves QUERY against every dataset path of tmp_hdf_path. Exactly one path must " +
			"match; with --all every matching path is listed instead.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := ctx.openStore(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if all {
				paths, err := st.ResolveAll(args[0])
				if err != nil {
					return err
				}
				for _, p := range paths {
					fmt.Fprintln(out, p)
				}
				return nil
			}
			p, err := st.Resolve(args[0])
			if err != nil {
				if cands := failure.Candidates(err); len(cands) > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "candidates:\n  %s\n", strings.Join(cands, "\n  "))
				}
				return err
			}
			v, err := st.ReadValue(p)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s = ", p)
			printValue(out, v)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "List every matching path")
	return cmd
}

func printValue(out io.Writer, v any) {
	switch v := v.(type) {
	case float64:
		fmt.Fprintln(out, strconv.FormatFloat(v, 'g', -1, 64))
	case string:
		fmt.Fprintf(out, "%q\n", v)
	case []string:
		fmt.Fprintf(out, "%q\n", v)
	case *store.Array:
		n := min(len(v.Data), maxPrinted)
		vals := make([]string, n)
		for i := range vals {
			vals[i] = strconv.FormatFloat(v.Data[i], 'g', 6, 64)
		}
		more := ""
		if len(v.Data) > n {
			more = ", ..."
		}
		fmt.Fprintf(out, "array%s [%s%s]\n", formatShape(v.Shape), strings.Join(vals, ", "), more)
	default:
		fmt.Fprintln(out, v)
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete PATH",
		Short: "Delete a group or dataset from the container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := ctx.openStore(cmd)
			if err != nil {
				return err
			}
			if err := st.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
