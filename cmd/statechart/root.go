package main

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "STATECHART"

// settings are the resolved values of flags, environment and defaults.
type settings struct {
	LogLevel string
	Format   string
	StateDir string
	ID       string
	Output   string
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("log-level", "info")
	v.SetDefault("format", "yaml")

	root := &cobra.Command{
		Use:           "statechart",
		Short:         "Drive and inspect the microwave reference statechart",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return v.BindPFlags(cmd.Flags())
		},
	}
	root.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().String("format", "yaml", "snapshot format (yaml or json)")
	root.AddCommand(newDiagramCommand(v), newRunCommand(v))
	return root
}

func load(v *viper.Viper) settings {
	return settings{
		LogLevel: v.GetString("log-level"),
		Format:   v.GetString("format"),
		StateDir: v.GetString("state-dir"),
		ID:       v.GetString("id"),
		Output:   v.GetString("output"),
	}
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		parsed = zerolog.InfoLevel
	}
	if parsed < zerolog.GlobalLevel() {
		zerolog.SetGlobalLevel(parsed)
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(parsed).
		With().
		Timestamp().
		Str("service", "statechart").
		Logger()
}
