package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"pycdump/internal/pycfmt"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fatal(err)
	}
}

// app carries the configuration shared by all subcommands.
type app struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "pycdump",
		Short: "Inspect compiled Python (.pyc) files",
		Long: `pycdump decodes the header and marshalled body of a .pyc file and
prints the bytecode of every code unit it contains.

Settings may also come from PYCDUMP_* environment variables or a
.pycdump.yaml file in the working directory.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default .pycdump.yaml)")
	pf.BoolP("verbose", "v", false, "log decoder diagnostics to stderr")
	pf.Bool("no-color", false, "disable colored output")
	pf.Int("max-depth", pycfmt.DefaultMaxDepth, "maximum nesting depth of marshalled values")
	pf.Bool("skip-cache", false, "hide inline CACHE entries (3.11+)")
	pf.String("python", "", "decode as this release (e.g. 3.9) instead of reading the magic")
	if err := a.v.BindPFlags(pf); err != nil {
		fatal(err)
	}

	root.AddCommand(
		a.dumpCmd(),
		a.infoCmd(),
		a.graphCmd(),
		a.versionsCmd(),
	)
	return root
}

// setup loads the config file and environment, then applies the color and
// logging settings.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.v.SetEnvPrefix("pycdump")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if path := a.v.GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	} else {
		a.v.SetConfigName(".pycdump")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
		if err := a.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("config: %w", err)
			}
		}
	}

	if a.v.GetBool("no-color") {
		color.NoColor = true
	}
	if a.v.GetBool("verbose") {
		cfg := zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{"stderr"}
		l, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		pycfmt.SetLogger(l)
	}
	return nil
}

// decodeOptions returns the decoder settings from flags, env and config.
func (a *app) decodeOptions() pycfmt.Options {
	return pycfmt.Options{
		MaxDepth:  a.v.GetInt("max-depth"),
		SkipCache: a.v.GetBool("skip-cache"),
		Version:   a.v.GetString("python"),
	}
}
