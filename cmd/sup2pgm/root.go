package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"sup2pgm/internal/config"
	"sup2pgm/internal/convert"
	"sup2pgm/internal/input"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCommand() *cobra.Command {
	var (
		configFlag string
		verbose    bool
		inputPath  string
		outputBase string
	)

	ctx := newCommandContext(&configFlag, &verbose)

	rootCmd := &cobra.Command{
		Use:   "sup2pgm [-i file] [-o base_name] [-v]",
		Short: "Convert BluRay SUP subtitles to PGM images with SRT timecodes",
		Long: `sup2pgm reads a BluRay presentation graphics stream (SUP subtitles) and
writes every caption as a grayscale PGM image, together with a cue index
(<base_name>.srtx) listing each image with its display interval, ready to be
transcoded or OCRed into text.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("input") && strings.TrimSpace(inputPath) == "" {
				return errors.New("please specify an input file")
			}
			if flags.Changed("output") && strings.TrimSpace(outputBase) == "" {
				return errors.New("please specify the base name for PGM images")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyOutputBase(cfg, outputBase); err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			summary, err := convert.Run(cmd.Context(), convert.Job{
				Input:  inputPath,
				Config: cfg,
				Logger: logger,
			})
			if err != nil {
				if errors.Is(err, input.ErrTerminal) {
					return fmt.Errorf("%w (see %s -h)", err, cmd.Name())
				}
				return err
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Be verbose: trace every parsed packet")
	rootCmd.Flags().StringVarP(&inputPath, "input", "i", input.StdinName, "Input SUP file, - for stdin")
	rootCmd.Flags().StringVarP(&outputBase, "output", "o", "", "Base name for output files, optionally with a directory (default from config: movie_subtitle)")

	rootCmd.AddCommand(newProbeCommand())
	rootCmd.AddCommand(newBatchCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}

// applyOutputBase splits a -o value into output directory and base name. A
// bare name keeps the configured directory.
func applyOutputBase(cfg *config.Config, base string) error {
	base = strings.TrimSpace(base)
	if base == "" {
		return nil
	}
	dir, name := filepath.Split(base)
	if name == "" {
		return fmt.Errorf("output base %q names a directory, not a file prefix", base)
	}
	cfg.Output.BaseName = name
	if dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return fmt.Errorf("resolve output directory: %w", err)
		}
		cfg.Output.Dir = expanded
	}
	return cfg.Validate()
}
