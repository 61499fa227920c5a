package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/bulk"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/config"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/integrate"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/source"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/store"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var dataQuery string

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Integrate every source frame into the container",
		Long: "Writes acquisition parameters, coordinate arrays, the 1-D pattern of every frame " +
			"and the 2-D cake of every frame into tmp_hdf_path, replacing earlier results.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			if err := s.Require(config.KeyXRDPath, config.KeyPoniPath, config.KeyTmpHDFPath,
				config.KeyNptTTH, config.KeyNptAzi); err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}

			src, err := source.Open(s.XRDPath, source.Options{DataQuery: dataQuery})
			if err != nil {
				return err
			}
			engine := &integrate.Exec{
				Command: s.Integration.Command,
				Args:    s.Integration.Args,
				Timeout: time.Duration(s.Integration.TimeoutSeconds) * time.Second,
				Logger:  logger,
			}
			adapter, err := integrate.NewAdapter(engine, s.PoniPath, s.MaskPath)
			if err != nil {
				return err
			}
			st, err := store.Open(s.TmpHDFPath, store.WithLogger(logger))
			if err != nil {
				return err
			}

			progress := newProgress(cmd.ErrOrStderr())
			defer progress.finish()
			w, err := bulk.New(st, src, adapter, bulk.Options{
				NptTTH:   s.NptTTH,
				NptAzi:   s.NptAzi,
				Progress: progress.update,
				Logger:   logger,
			})
			if err != nil {
				return err
			}
			start := time.Now()
			if err := w.Run(cmd.Context()); err != nil {
				return err
			}
			progress.finish()
			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d frames of %s into %s in %s\n",
				src.FrameCount(), s.XRDPath, s.TmpHDFPath, time.Since(start).Round(time.Second))
			return nil
		},
	}

	cmd.Flags().StringVar(&dataQuery, "data", "", "Substring selecting the frame dataset of plain HDF5 sources (default \"data\")")
	return cmd
}
