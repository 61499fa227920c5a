package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/config"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/failure"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/peak"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/store"
)

func newPeakCommand(ctx *commandContext) *cobra.Command {
	peakCmd := &cobra.Command{
		Use:   "peak",
		Short: "Manage and reduce peak windows",
	}

	peakCmd.AddCommand(newPeakSetCommand(ctx))
	peakCmd.AddCommand(newPeakShowCommand(ctx))
	peakCmd.AddCommand(newPeakReduceCommand(ctx))

	return peakCmd
}

func parsePeakNumber(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("peak number must be a non-negative integer, got %q", arg)
	}
	return n, nil
}

// peakDefinition loads peak n from the configured peak table.
func (c *commandContext) peakDefinition(n int) (peak.Definition, error) {
	s, err := c.ensureSettings()
	if err != nil {
		return peak.Definition{}, err
	}
	if err := s.Require(config.KeyPeaksPath); err != nil {
		return peak.Definition{}, err
	}
	peaks, err := config.LoadPeaks(s.PeaksPath)
	if err != nil {
		return peak.Definition{}, err
	}
	rec, err := peaks.Get(n)
	if err != nil {
		return peak.Definition{}, err
	}
	return peak.FromRecord(n, rec), nil
}

func newPeakSetCommand(ctx *commandContext) *cobra.Command {
	var rec config.Peak

	cmd := &cobra.Command{
		Use:   "set N",
		Short: "Create or update the window of peak N",
		Long:  "Only the given flags change; other fields keep their stored values.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parsePeakNumber(args[0])
			if err != nil {
				return err
			}
			s, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			if err := s.Require(config.KeyPeaksPath); err != nil {
				return err
			}
			peaks, err := config.LoadPeaks(s.PeaksPath)
			if err != nil {
				return err
			}
			merged := peaks[n]
			flags := cmd.Flags()
			for name, apply := range map[string]func(){
				"from-tth":   func() { merged.FromTTH = rec.FromTTH },
				"to-tth":     func() { merged.ToTTH = rec.ToTTH },
				"from-azi":   func() { merged.FromAzi = rec.FromAzi },
				"to-azi":     func() { merged.ToAzi = rec.ToAzi },
				"from-frame": func() { merged.FromFrame = rec.FromFrame },
				"to-frame":   func() { merged.ToFrame = rec.ToFrame },
			} {
				if flags.Changed(name) {
					apply()
				}
			}
			if err := config.UpdatePeak(s.PeaksPath, n, merged); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "peak %d: %s\n", n, describePeak(merged))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&rec.FromTTH, "from-tth", 0, "Lower 2theta edge (deg)")
	flags.Float64Var(&rec.ToTTH, "to-tth", 0, "Upper 2theta edge (deg)")
	flags.Float64Var(&rec.FromAzi, "from-azi", 0, "Lower azimuth edge (deg)")
	flags.Float64Var(&rec.ToAzi, "to-azi", 0, "Upper azimuth edge (deg)")
	flags.IntVar(&rec.FromFrame, "from-frame", 0, "First frame of interest")
	flags.IntVar(&rec.ToFrame, "to-frame", 0, "Last frame of interest")
	return cmd
}

func describePeak(p config.Peak) string {
	return fmt.Sprintf("2θ %g..%g, azimuth %g..%g, frames %d..%d",
		p.FromTTH, p.ToTTH, p.FromAzi, p.ToAzi, p.FromFrame, p.ToFrame)
}

func newPeakShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List the peak table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			if err := s.Require(config.KeyPeaksPath); err != nil {
				return err
			}
			peaks, err := config.LoadPeaks(s.PeaksPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(peaks) == 0 {
				fmt.Fprintf(out, "No peaks in %s\n", s.PeaksPath)
				return nil
			}
			var rows [][]string
			g := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
			for _, n := range peaks.Numbers() {
				p := peaks[n]
				rows = append(rows, []string{
					strconv.Itoa(n), g(p.FromTTH), g(p.ToTTH), g(p.FromAzi), g(p.ToAzi),
					strconv.Itoa(p.FromFrame), strconv.Itoa(p.ToFrame),
				})
			}
			right := []columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight}
			fmt.Fprintln(out, renderTable(
				[]string{"Peak", "From 2θ", "To 2θ", "From azi", "To azi", "From frame", "To frame"}, rows, right))
			return nil
		},
	}
}

func newPeakReduceCommand(ctx *commandContext) *cobra.Command {
	var frames int
	var workers int

	cmd := &cobra.Command{
		Use:   "reduce N",
		Short: "Average the cake over the window of peak N",
		Long: "Writes the 2theta and azimuth series of peak N for every frame into tmp_hdf_path, " +
			"replacing earlier results. The frame count defaults to the stored frame_num.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parsePeakNumber(args[0])
			if err != nil {
				return err
			}
			d, err := ctx.peakDefinition(n)
			if err != nil {
				return err
			}
			st, s, err := ctx.openStore(cmd)
			if err != nil {
				return err
			}
			if frames <= 0 {
				if frames, err = storedFrameCount(st); err != nil {
					return err
				}
			}
			if workers <= 0 {
				workers = s.Workers
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			progress := newProgress(cmd.ErrOrStderr())
			defer progress.finish()
			label := fmt.Sprintf("peak %d", n)
			r := peak.NewReducer(st, peak.Options{
				Workers:  workers,
				Progress: func(done, total int) { progress.update(label, done, total) },
				Logger:   logger,
			})
			res, err := r.Reduce(cmd.Context(), d, frames)
			if err != nil {
				return err
			}
			progress.finish()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: window %s over %d frames -> %s, %s\n",
				label, res.Bounds, res.Frames, res.TTHPath, res.AziPath)
			return nil
		},
	}

	cmd.Flags().IntVar(&frames, "frames", 0, "Number of frames to reduce")
	cmd.Flags().IntVarP(&workers, "workers", "j", 0, "Concurrent frames (default from settings or CPU count)")
	return cmd
}

func storedFrameCount(st *store.Store) (int, error) {
	v, err := st.ReadValue(store.FrameNumPath)
	if err != nil {
		return 0, err
	}
	n, ok := v.(float64)
	if !ok {
		return 0, failure.Newf(failure.TypeMismatch, "peak reduce", store.FrameNumPath, "frame count is not a scalar")
	}
	return int(n), nil
}
