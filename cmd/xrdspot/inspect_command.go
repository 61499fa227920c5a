package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ishizawa2468/XRDSpotAnalyzer/hdf5"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/config"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/store"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var preview int

	cmd := &cobra.Command{
		Use:         "inspect [FILE]",
		Short:       "List the groups and datasets of an HDF5 file",
		Long:        "Lists every group and dataset of FILE, or of tmp_hdf_path when FILE is omitted.",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				s, err := ctx.ensureSettings()
				if err != nil {
					return err
				}
				if err := s.Require(config.KeyTmpHDFPath); err != nil {
					return err
				}
				path = s.TmpHDFPath
			}

			f, err := hdf5.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			entries, err := store.Describe(f, preview)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			size := "unknown"
			if st, err := os.Stat(path); err == nil {
				size = humanize.IBytes(uint64(st.Size()))
			}
			fmt.Fprintf(out, "%s: superblock v%d, %s\n", path, f.Version(), size)
			fmt.Fprintln(out, renderTable(
				[]string{"Path", "Type", "Shape", "Size", "Preview"},
				entryRows(entries),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&preview, "preview", "n", 5, "Number of leading values shown per dataset")
	return cmd
}

func entryRows(entries []store.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		switch {
		case e.Err != nil && e.Dtype == "":
			rows = append(rows, []string{e.Path, "error", "", "", e.Err.Error()})
		case e.Group:
			rows = append(rows, []string{e.Path, "group", "", "", ""})
		default:
			preview := strings.Join(e.Preview, ", ")
			if e.Err != nil {
				preview = e.Err.Error()
			}
			rows = append(rows, []string{e.Path, e.Dtype, formatShape(e.Shape), humanize.IBytes(e.Bytes), preview})
		}
	}
	return rows
}

func formatShape(shape []uint64) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = fmt.Sprint(d)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
