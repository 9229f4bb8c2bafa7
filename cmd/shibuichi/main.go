package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/Hanaasagi/shibuichi/cmd"
	"github.com/Hanaasagi/shibuichi/internal/logger"
	"github.com/Hanaasagi/shibuichi/pkg/expand"
	"github.com/Hanaasagi/shibuichi/pkg/gitinfo"
	"github.com/adrg/xdg"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName     = "shibuichi"
	defaultSize = 4096
)

var (
	Version     = "0.1.0"
	CommitSha   = "unknown"
	FullVersion = Version + "-" + CommitSha
)

var (
	appDir     = filepath.Join(xdg.StateHome, appName)
	configPath = filepath.Join(xdg.ConfigHome, appName, "config.toml")
)

// AppConfig holds the command line of one run
type AppConfig struct {
	prompts     []string
	separator   string
	null        bool
	dir         string
	configPath  string
	explain     bool
	showVersion bool
}

// InfoFactory builds the provider answering git questions for a run
type InfoFactory func(ctx context.Context, config *Config, dir string) (expand.Info, error)

func newGitInfo(ctx context.Context, config *Config, dir string) (expand.Info, error) {
	domains, err := config.DomainMap()
	if err != nil {
		return nil, err
	}

	return gitinfo.New(ctx,
		gitinfo.WithRunner(gitinfo.ExecRunner{Binary: config.Git.Binary}),
		gitinfo.WithTimeout(config.Git.Timeout),
		gitinfo.WithDomains(domains),
		gitinfo.WithDir(dir),
	), nil
}

// initLogging points slog at the state directory and records crashes next to it
func initLogging(config *Config) {
	level := logger.ResolveLevel(config.Core.LogLevel)
	if _, err := logger.InitLogger(filepath.Join(appDir, appName+".log"), level); err != nil {
		// A prompt must still render when the state directory is unusable
		logger.Discard()
		return
	}

	if f, err := os.Create(filepath.Join(appDir, "crash")); err == nil {
		_ = debug.SetCrashOutput(f, debug.CrashOptions{})
	}
}

// resolveSeparator applies --null, then --sep, then the configured separator
func resolveSeparator(app *AppConfig, config *Config, sepChanged bool) (string, error) {
	if app.null {
		return "\x00", nil
	}
	if sepChanged {
		return parseSeparator(app.separator)
	}
	return parseSeparator(config.Core.Separator)
}

// runApp expands every prompt to stdout
func runApp(ctx context.Context, app *AppConfig, config *Config, sep string, newInfo InfoFactory, stdout io.Writer) error {
	parser := config.Parser()

	info, err := newInfo(ctx, config, app.dir)
	if err != nil {
		return err
	}

	writer := bufio.NewWriterSize(stdout, defaultSize)

	colored := false
	if f, ok := stdout.(*os.File); ok {
		colored = term.IsTerminal(int(f.Fd()))
	}

	for i, prompt := range app.prompts {
		slog.Debug("Expanding prompt", "index", i, "prompt", prompt)

		if app.explain {
			if i > 0 {
				writer.WriteByte('\n') // nolint: errcheck
			}
			if err := explain(writer, parser, prompt, info, colored); err != nil {
				return fmt.Errorf("explaining prompt %d: %w", i, err)
			}
			continue
		}

		if i > 0 {
			if _, err := writer.WriteString(sep); err != nil {
				return fmt.Errorf("writing separator: %w", err)
			}
		}
		if err := expand.ExpandWith(parser, prompt, info, writer); err != nil {
			return fmt.Errorf("expanding prompt %d: %w", i, err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func newRootCmd(app *AppConfig, newInfo InfoFactory, setupLogging func(*Config)) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   appName + " [flags] PROMPT...",
		Short: "Expand git information in zsh prompts",
		Long: color.New(color.FgHiMagenta).Sprintf(
			"Expand git-aware escapes in zsh prompt strings, leaving the rest for zsh. %s",
			color.New(color.FgBlue).Sprintf("(%s)", FullVersion),
		),
		Example: `  PROMPT="$(shibuichi '%(G.%r%(y.*.) .)%~ %# ')"
  psvar=("${(@0)$(shibuichi -0 '%r' '%1(p.↑%p.)')}")`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, args []string) error {
			app.prompts = args

			if app.showVersion {
				_, err := fmt.Fprintf(c.OutOrStdout(), "%s version: %s\n", appName, FullVersion)
				return err
			}

			config, err := LoadConfigFromFile(app.configPath)
			if err != nil {
				return err
			}
			if setupLogging != nil {
				setupLogging(config)
			}

			sep, err := resolveSeparator(app, config, c.Flags().Changed("sep"))
			if err != nil {
				return err
			}

			return runApp(c.Context(), app, config, sep, newInfo, c.OutOrStdout())
		},
	}

	rootCmd.Flags().StringVarP(&app.separator, "sep", "s", "\n", "Separator written between expanded prompts (one character)")
	rootCmd.Flags().BoolVarP(&app.null, "null", "0", false, "Use the NUL character as separator")
	rootCmd.Flags().StringVarP(&app.dir, "dir", "C", "", "Directory to inspect instead of the current one")
	rootCmd.Flags().StringVar(&app.configPath, "config", configPath, "Config file, NONE to skip it")
	rootCmd.Flags().BoolVar(&app.explain, "explain", false, "Show how each prompt is parsed and expanded")
	rootCmd.Flags().BoolVarP(&app.showVersion, "version", "v", false, "Print version and exit")

	rootCmd.SetHelpTemplate(cmd.HelpTemplate)
	rootCmd.SetUsageFunc(func(c *cobra.Command) error {
		return cmd.ColorUsageFunc(c.OutOrStderr(), c)
	})

	return rootCmd
}

func main() {
	rootCmd := newRootCmd(&AppConfig{}, newGitInfo, initLogging)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("Error executing command", "error", err)
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}
