package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ironsheep/raster-pipeline/internal/catalog"
	"github.com/ironsheep/raster-pipeline/internal/detection"
	"github.com/ironsheep/raster-pipeline/internal/imaging"
	"github.com/ironsheep/raster-pipeline/internal/pipeline"
	"github.com/ironsheep/raster-pipeline/internal/server"
)

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	var a *app

	root := &cobra.Command{
		Use:          "raster-pipeline",
		Short:        "Fetch cat photos and run image transformations over them",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			var err error
			a, err = newApp(flags, cmd.ErrOrStderr())
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a != nil {
				a.Close()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.envFile, "env-file", "", "environment file to load (default .env)")
	pf.StringVar(&flags.photoDir, "photo-dir", "", "base directory for saved images (overrides PHOTO_DIR)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides LOG_LEVEL)")
	pf.StringVar(&flags.logFile, "log-file", "", "also append logs to this file (overrides LOG_FILE)")
	pf.IntVar(&flags.workers, "workers", 0, "transform workers (overrides PIPELINE_WORKERS)")
	pf.BoolVar(&flags.noCatalog, "no-catalog", false, "do not record results in the catalog")

	appFn := func() *app { return a }
	root.AddCommand(
		newConvolutionCmd(appFn),
		newGrayscaleCmd(appFn),
		newEdgesCmd(appFn),
		newCornersCmd(appFn),
		newGammaCmd(appFn),
		newServeCmd(appFn),
		newHistoryCmd(appFn),
		newVersionCmd(),
	)
	return root
}

// transformCmd builds a command that applies the op returned by build
// either to a batch of downloaded images or to a single local file.
func transformCmd(appFn func() *app, use, short string, build func() (pipeline.Op, error)) *cobra.Command {
	var (
		limit         int
		image         string
		output        string
		saveOriginals bool
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			op, err := build()
			if err != nil {
				return err
			}
			if err := pipeline.Validate(op); err != nil {
				return err
			}

			a := appFn()
			if image != "" {
				return a.runSingle(cmd.Context(), op, image, output, cmd.OutOrStdout())
			}
			if limit < 1 {
				return errors.New("--limit must be at least 1")
			}
			return a.runBatch(cmd.Context(), op, limit, output, saveOriginals, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.IntVarP(&limit, "limit", "l", 0, "number of images to download and process")
	f.StringVarP(&image, "image", "i", "", "process a single local image instead of downloading")
	f.StringVarP(&output, "output", "o", "", "output directory, relative to the photo directory unless absolute")
	f.BoolVar(&saveOriginals, "save-originals", true, "also save downloaded originals (batch mode)")
	cmd.MarkFlagsMutuallyExclusive("limit", "image")
	cmd.MarkFlagsOneRequired("limit", "image")
	return cmd
}

func newConvolutionCmd(appFn func() *app) *cobra.Command {
	var kernel, engine string
	cmd := transformCmd(appFn, "convolution", "Convolve images with a kernel", func() (pipeline.Op, error) {
		k, err := parseKernel(kernel)
		if err != nil {
			return nil, err
		}
		switch engine {
		case server.EngineNaive:
			return pipeline.Convolve{Kernel: k}, nil
		case server.EngineBild:
			return pipeline.BildConvolve{Kernel: k}, nil
		default:
			return nil, fmt.Errorf("unknown engine %q, want %q or %q", engine, server.EngineNaive, server.EngineBild)
		}
	})
	cmd.Flags().StringVarP(&kernel, "kernel", "k", "", `kernel rows separated by ";" with comma separated weights (default 3x3 of 0.01)`)
	cmd.Flags().StringVar(&engine, "engine", server.EngineNaive, "convolution engine: naive or bild")
	return cmd
}

func newGrayscaleCmd(appFn func() *app) *cobra.Command {
	return transformCmd(appFn, "grayscale", "Convert images to grayscale", func() (pipeline.Op, error) {
		return pipeline.Grayscale{}, nil
	})
}

func newEdgesCmd(appFn func() *app) *cobra.Command {
	return transformCmd(appFn, "edges", "Detect edges with the Sobel operator", func() (pipeline.Op, error) {
		return pipeline.Edges{}, nil
	})
}

func newCornersCmd(appFn func() *app) *cobra.Command {
	opts := detection.DefaultCornerOptions()
	cmd := transformCmd(appFn, "corners", "Detect and mark Harris corners", func() (pipeline.Op, error) {
		return pipeline.Corners{Options: opts}, nil
	})

	f := cmd.Flags()
	f.Float64VarP(&opts.Threshold, "threshold", "t", opts.Threshold, "relative response threshold in [0, 1]")
	f.Float64Var(&opts.K, "k", opts.K, "Harris sensitivity")
	f.Float64Var(&opts.Sigma, "sigma", opts.Sigma, "Gaussian window sigma")
	f.IntVar(&opts.NMSRadius, "nms-radius", opts.NMSRadius, "non-maximum suppression radius")
	f.IntVar(&opts.MarkerRadius, "marker-radius", opts.MarkerRadius, "corner marker radius")
	f.StringVar(&opts.MarkerColor, "marker-color", opts.MarkerColor, "corner marker color as #rrggbb")
	return cmd
}

func newGammaCmd(appFn func() *app) *cobra.Command {
	var g float64
	cmd := transformCmd(appFn, "gamma", "Apply gamma correction", func() (pipeline.Op, error) {
		gm, err := imaging.NewGamma(g)
		if err != nil {
			return nil, err
		}
		return pipeline.Gamma{G: gm}, nil
	})
	cmd.Flags().Float64VarP(&g, "gamma", "g", imaging.DefaultGamma, "gamma value")
	return cmd
}

func newServeCmd(appFn func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the image tools over MCP on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFn()
			a.logger.WithField("version", Version).Info("MCP server starting")
			srv := server.New(a.store, a.logger, Version)
			return srv.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func newHistoryCmd(appFn func() *app) *cobra.Command {
	var (
		limit int
		runID string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently saved images from the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFn()
			if a.catalog == nil {
				return errors.New("catalog is not available")
			}

			var (
				entries []catalog.Entry
				err     error
			)
			if runID != "" {
				entries, err = a.catalog.ByRun(cmd.Context(), runID)
			} else {
				entries, err = a.catalog.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return fmt.Errorf("failed to read catalog: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tRUN\tINDEX\tSTAGE\tKIND\tPATH")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
					e.CreatedAt.Format(time.DateTime), shortID(e.RunID), e.Index, e.Stage, e.Kind, e.Path)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", catalog.DefaultLimit, "number of entries to show")
	cmd.Flags().StringVar(&runID, "run", "", "show every entry of one run")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "raster-pipeline %s\n", Version)
			fmt.Fprintf(w, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
		},
	}
}

// parseKernel parses "a,b,c;d,e,f;..." into a kernel. An empty string
// yields the default kernel.
func parseKernel(s string) (imaging.Kernel, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return imaging.DefaultKernel(), nil
	}

	var rows [][]float64
	for _, line := range strings.Split(s, ";") {
		var row []float64
		for _, field := range strings.Split(line, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return imaging.Kernel{}, fmt.Errorf("%w: %v", imaging.ErrInvalidKernel, err)
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return imaging.KernelFromRows(rows)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
