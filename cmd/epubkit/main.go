package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yuanying/epubkit/internal/builder"
	"github.com/yuanying/epubkit/internal/epub"
)

const (
	envPrefix               = "EPUBKIT"
	defaultVersion          = "3.0"
	defaultCoverMaxWidth    = 1600
	defaultCoverJPEGQuality = 90
	defaultLogLevel         = "info"
	defaultLogFormat        = "text"
)

// cliOptions is the resolved configuration of one build invocation.
type cliOptions struct {
	builder.Options
	Logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "epubkit",
		Short: "Build EPUB publications from XHTML chapters",
		Long: `epubkit assembles XHTML chapter files, their stylesheets and images into
an EPUB 3 (or EPUB 2) publication with a generated package document,
navigation document and NCX.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Book configuration file (yaml, toml or json)")
	pf.String("log-level", defaultLogLevel, "Log level: debug, info, warn, error")
	pf.String("log-format", defaultLogFormat, "Log format: text, json")
	pf.BoolP("verbose", "v", false, "Enable debug logging (overrides --log-level)")

	root.AddCommand(newBuildCmd(), newMediaTypeCmd())
	return root
}

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [flags] chapter.xhtml...",
		Short: "Build an EPUB from chapter files in reading order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd, args)
			if err != nil {
				return err
			}

			opts.Logger.Info("building", "chapters", len(opts.Chapters), "output", opts.OutputPath)
			if err := builder.NewPipeline(opts.Options).Build(); err != nil {
				return fmt.Errorf("build failed: %w", err)
			}
			opts.Logger.Info("done", "output", opts.OutputPath)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringP("output", "o", "", "Output file path (default: first chapter with .epub extension)")
	f.String("base-dir", "", "Directory manifest hrefs are relative to (default: first chapter's directory)")
	f.StringP("title", "t", "", "Book title (default: first chapter heading)")
	f.StringP("language", "l", "", "Book language as a BCP 47 tag")
	f.StringSlice("creator", nil, "Author name (repeatable)")
	f.String("identifier", "", "Publication identifier (default: generated urn:uuid)")
	f.String("publisher", "", "Publisher")
	f.String("description", "", "Description")
	f.String("rights", "", "Rights statement")
	f.StringSlice("subject", nil, "Subject (repeatable)")
	f.String("date", "", "Publication date")
	f.String("epub-version", defaultVersion, "OPF version: 2.0 or 3.0")
	f.Bool("backward-compat", false, "Also write EPUB 2 fallbacks (NCX, opf: attributes) in an EPUB 3 package")
	f.String("layout", "", "rendition:layout: reflowable or pre-paginated")
	f.String("direction", "", "Page progression direction: ltr, rtl or default")
	f.String("cover", "", "Cover image (default: image whose file name contains \"cover\")")
	f.Int("cover-max-width", defaultCoverMaxWidth, "Maximum cover width in pixels")
	f.Int("cover-quality", defaultCoverJPEGQuality, "JPEG quality for the cover (1-100)")
	return cmd
}

func newMediaTypeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mediatype href...",
		Short: "Print the media type guessed for each href",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			unknown := 0
			for _, href := range args {
				mt, ok := epub.GuessMediaType(href)
				if !ok {
					mt = "unknown"
					unknown++
				}
				fmt.Fprintf(out, "%s\t%s\n", href, mt)
			}
			if unknown > 0 {
				return fmt.Errorf("%d of %d hrefs have no known media type", unknown, len(args))
			}
			return nil
		},
	}
}

// newViper binds the command's flags, EPUBKIT_* environment variables and the
// optional --config file. Flags set on the command line win over the
// environment, which wins over the file.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read --config %s: %w", path, err)
		}
	}
	return v, nil
}

func readCLIOptions(cmd *cobra.Command, args []string) (cliOptions, error) {
	v, err := newViper(cmd)
	if err != nil {
		return cliOptions{}, err
	}

	level := strings.ToLower(v.GetString("log-level"))
	if !isValidLogLevel(level) {
		return cliOptions{}, fmt.Errorf("invalid --log-level %q: must be one of debug, info, warn, error", level)
	}
	format := strings.ToLower(v.GetString("log-format"))
	if format != "text" && format != "json" {
		return cliOptions{}, fmt.Errorf("invalid --log-format %q: must be text or json", format)
	}
	if v.GetBool("verbose") {
		level = "debug"
	}

	quality := v.GetInt("cover-quality")
	if quality < 1 || quality > 100 {
		return cliOptions{}, fmt.Errorf("invalid --cover-quality %d: must be between 1 and 100", quality)
	}
	maxWidth := v.GetInt("cover-max-width")
	if maxWidth <= 0 {
		return cliOptions{}, fmt.Errorf("invalid --cover-max-width %d: must be positive", maxWidth)
	}

	output := v.GetString("output")
	if output == "" && len(args) > 0 {
		output = defaultOutputPath(args[0])
	}

	logger := buildLogger(cmd.ErrOrStderr(), level, format)
	return cliOptions{
		Options: builder.Options{
			Chapters:         args,
			BaseDir:          v.GetString("base-dir"),
			OutputPath:       output,
			Title:            v.GetString("title"),
			Language:         v.GetString("language"),
			Creators:         v.GetStringSlice("creator"),
			Identifier:       v.GetString("identifier"),
			Publisher:        v.GetString("publisher"),
			Description:      v.GetString("description"),
			Rights:           v.GetString("rights"),
			Subjects:         v.GetStringSlice("subject"),
			Date:             v.GetString("date"),
			Version:          v.GetString("epub-version"),
			BackwardCompat:   v.GetBool("backward-compat"),
			Layout:           v.GetString("layout"),
			Direction:        v.GetString("direction"),
			CoverPath:        v.GetString("cover"),
			CoverMaxWidth:    maxWidth,
			CoverJPEGQuality: quality,
			Logger:           logger,
		},
		Logger: logger,
	}, nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

func buildLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func defaultOutputPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".epub"
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
