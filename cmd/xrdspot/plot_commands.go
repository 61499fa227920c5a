package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	gonumplot "gonum.org/v1/plot"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/failure"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/plot"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/store"
)

func newPlotCommand(ctx *commandContext) *cobra.Command {
	plotCmd := &cobra.Command{
		Use:   "plot",
		Short: "Render container data as PNG images",
	}

	plotCmd.AddCommand(newPlotPatternCommand(ctx))
	plotCmd.AddCommand(newPlotCakeCommand(ctx))
	plotCmd.AddCommand(newPlotPeakCommand(ctx))

	return plotCmd
}

func savePlot(cmd *cobra.Command, out string, p *gonumplot.Plot) error {
	if err := plot.Save(out, p); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
	return nil
}

func newPlotPatternCommand(ctx *commandContext) *cobra.Command {
	var out string
	var frame int

	cmd := &cobra.Command{
		Use:   "pattern",
		Short: "Plot the pattern of every frame against 2theta",
		Long:  "Draws all patterns as a heatmap, or the pattern of a single frame as a line with --frame.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := ctx.openStore(cmd)
			if err != nil {
				return err
			}
			tth, err := st.FindArray(store.TTHArrQuery)
			if err != nil {
				return err
			}
			if frame >= 0 {
				path, err := st.Resolve(store.PatternQuery)
				if err != nil {
					return err
				}
				row, err := st.ReadRows(path, frame, frame+1)
				if err != nil {
					return err
				}
				if row.Len() == 0 {
					return failure.Newf(failure.OutOfRange, "plot pattern", failure.Frame(frame), "%s has fewer frames", path)
				}
				p, err := plot.Line(tth.Data, row.Data, plot.Labels{
					Title: fmt.Sprintf("pattern, frame %d", frame), X: "2θ (deg)", Y: "intensity",
				})
				if err != nil {
					return err
				}
				return savePlot(cmd, out, p)
			}
			pattern, err := st.FindArray(store.PatternQuery)
			if err != nil {
				return err
			}
			p, err := plot.Pattern(tth.Data, pattern)
			if err != nil {
				return err
			}
			return savePlot(cmd, out, p)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "pattern.png", "Output image")
	cmd.Flags().IntVar(&frame, "frame", -1, "Plot only this frame")
	return cmd
}

func newPlotCakeCommand(ctx *commandContext) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "cake FRAME",
		Short: "Plot the cake of one frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("frame must be an integer, got %q", args[0])
			}
			st, _, err := ctx.openStore(cmd)
			if err != nil {
				return err
			}
			tth, err := st.FindArray(store.TTHArrQuery)
			if err != nil {
				return err
			}
			azi, err := st.FindArray(store.AziArrQuery)
			if err != nil {
				return err
			}
			ft, err := st.Fetcher(store.CakeQuery)
			if err != nil {
				return err
			}
			fr, err := ft.Fetch(index)
			if err != nil {
				return err
			}
			p, err := plot.CakeFrame(index, tth.Data, azi.Data, fr)
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("cake_%d.png", index)
			}
			return savePlot(cmd, out, p)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output image (default cake_FRAME.png)")
	return cmd
}

func newPlotPeakCommand(ctx *commandContext) *cobra.Command {
	var out string
	var axis string

	cmd := &cobra.Command{
		Use:   "peak N",
		Short: "Plot a reduced peak series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parsePeakNumber(args[0])
			if err != nil {
				return err
			}
			if axis != "tth" && axis != "azi" {
				return fmt.Errorf("axis must be tth or azi, got %q", axis)
			}
			d, err := ctx.peakDefinition(n)
			if err != nil {
				return err
			}
			st, _, err := ctx.openStore(cmd)
			if err != nil {
				return err
			}
			tth, err := st.FindArray(store.TTHArrQuery)
			if err != nil {
				return err
			}
			azi, err := st.FindArray(store.AziArrQuery)
			if err != nil {
				return err
			}
			b, err := d.Bounds(tth.Data, azi.Data)
			if err != nil {
				return err
			}
			path, coords, label := store.PeakTTHPath(n), tth.Data[b.FromTTH:max(b.FromTTH, b.ToTTH)], "2θ"
			if axis == "azi" {
				path, coords, label = store.PeakAziPath(n), azi.Data[b.FromAzi:max(b.FromAzi, b.ToAzi)], "azimuth"
			}
			series, err := st.Read(path)
			if err != nil {
				return err
			}
			p, err := plot.PeakSeries(n, label, coords, series)
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("peak%d_%s.png", n, axis)
			}
			return savePlot(cmd, out, p)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output image (default peakN_AXIS.png)")
	cmd.Flags().StringVar(&axis, "axis", "tth", "Series to plot: tth or azi")
	return cmd
}
