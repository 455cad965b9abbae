package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"reframe/internal/config"
	"reframe/internal/processor"
	"reframe/internal/tui"
)

var (
	settings   = config.Defaults()
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "reframe -f <file|dir> [flags]",
	Short: "reframe - resize, rotate and convert images in bulk",
	Long: "reframe resizes and/or rotates an image or every matching image in a directory, " +
		"writing the result next to the source under a new name, or in its place with --override.",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := resolveOptions(cmd)
		if err != nil {
			return err
		}

		logger := newLogger(os.Stderr, logLevel(opts))
		runner := processor.NewRunner(opts, logger, newConfirmer())
		summary, err := runner.Run(cmd.Context())
		printSummary(opts, summary)
		return err
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveOptions layers the defaults file (if any) under the flags the user
// actually set and validates the result.
func resolveOptions(cmd *cobra.Command) (config.Options, error) {
	s := settings
	if configPath != "" {
		file, err := config.LoadFile(configPath, config.Defaults())
		if err != nil {
			return config.Options{}, err
		}
		s = s.Merge(file, cmd.Flags().Changed)
	}
	return s.Build()
}

func logLevel(opts config.Options) log.Level {
	switch {
	case verbose:
		return log.DebugLevel
	case opts.Quiet:
		return log.WarnLevel
	default:
		return log.InfoLevel
	}
}

// newConfirmer asks through a terminal prompt when stdin is interactive and
// falls back to reading answer lines otherwise.
func newConfirmer() processor.Confirmer {
	fd := os.Stdin.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return processor.ConfirmFunc(func(err error) bool {
			ok, promptErr := tui.Confirm(os.Stdin, os.Stderr, err)
			return promptErr == nil && ok
		})
	}
	return processor.NewLineConfirmer(os.Stdin, os.Stderr)
}

func printSummary(opts config.Options, summary processor.Summary) {
	if opts.Quiet || summary.Total == 0 {
		return
	}
	rows := []tui.SummaryRow{
		{Label: "Files examined", Value: fmt.Sprintf("%d", summary.Total)},
		{Label: "Written", Value: fmt.Sprintf("%d", summary.Written)},
		{Label: "Already in shape", Value: fmt.Sprintf("%d", summary.Skipped)},
		{Label: "Sources deleted", Value: fmt.Sprintf("%d", summary.Deleted)},
		{Label: "Errors", Value: fmt.Sprintf("%d", summary.Errors), Alert: summary.Errors > 0},
	}
	fmt.Fprintln(os.Stdout, tui.RenderSummary(rows))
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&settings.Target, "file", "f", "", "file or directory to process (required)")
	flags.BoolVarP(&settings.Recursive, "recursive", "r", false, "descend into subdirectories when --file is a directory")
	flags.IntVarP(&settings.Width, "width", "w", 0, "target width; 0 follows the height's aspect ratio, or the original when height is 0 too")
	flags.IntVarP(&settings.Height, "height", "h", 0, "target height; 0 follows the width's aspect ratio, or the original when width is 0 too")
	flags.BoolVarP(&settings.Override, "override", "o", false, "replace the source file (the source is always deleted)")
	flags.StringVarP(&settings.Ext, "ext", "e", "", "output format: bmp, gif, jpeg, jpg, png, tif, tiff, or original to keep each file's format (default: jpg)")
	flags.StringSliceVarP(&settings.Filter, "filter", "t", config.DefaultFilter, "extensions included when scanning a directory")
	flags.BoolVarP(&settings.Quiet, "quiet", "q", false, "do not report progress")
	flags.Float64VarP(&settings.Angle, "angle", "a", 0, "clockwise rotation in degrees; only values between 0 and 360 rotate")
	flags.IntVar(&settings.Quality, "quality", settings.Quality, "JPEG quality (1-100)")
	flags.StringVar(&settings.Resample, "resample", settings.Resample, "resampling filter: nearest, linear, catmullrom, lanczos")
	flags.StringVarP(&configPath, "config", "c", "", "YAML or TOML file with default values for the flags above")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	// -h is the height; help keeps only its long form.
	flags.Bool("help", false, "help for reframe")
}
