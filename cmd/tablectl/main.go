// Command tablectl validates table config documents and previews how the
// engine formats and renders rows, without running the HTTP service.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/JonMunkholm/facilitytables/internal/core"
	_ "github.com/JonMunkholm/facilitytables/internal/core/tables" // Register all tables
	"github.com/JonMunkholm/facilitytables/internal/format"
	"github.com/JonMunkholm/facilitytables/internal/logging"
	"github.com/JonMunkholm/facilitytables/internal/store"
	"github.com/JonMunkholm/facilitytables/internal/strategy"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Settings resolve from flags, then
// TABLECTL_* environment variables, then the optional config file.
func newRootCmd(out, errOut io.Writer) *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "tablectl",
		Short:         "Inspect facility table configs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			if err := loadSettings(v); err != nil {
				return err
			}
			slog.SetDefault(slog.New(logging.NewHandler(errOut, v.GetString("log-level"), "pretty")))
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.String("config", "", "settings file (yaml, json or toml)")
	pf.String("config-dir", "", "directory of stored <table_type>.yaml documents")
	pf.String("locale", "ja", "BCP 47 locale for number grouping")
	pf.String("empty-marker", format.DefaultEmptyMarker, "text shown for empty values")
	pf.String("date-layout", format.DefaultDateLayout, "Go time layout for dates")
	pf.String("phone-pattern", "", "phone digit grouping such as 3-4-4")
	pf.Int("lazy-threshold", strategy.DefaultLazyThreshold, "row count above which lazy loading starts")
	pf.Int("virtual-threshold", strategy.DefaultVirtualThreshold, "row count above which virtual scrolling starts")
	pf.String("log-level", "warn", "log level: debug, info, warn or error")
	_ = v.BindPFlags(pf)

	root.AddCommand(
		newValidateCmd(),
		newRenderCmd(v),
		newStrategyCmd(v),
		newSchemaCmd(),
		newTypesCmd(),
	)
	return root
}

func loadSettings(v *viper.Viper) error {
	v.SetEnvPrefix("TABLECTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	file := v.GetString("config")
	if file == "" {
		return nil
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read settings %s: %w", file, err)
	}
	return nil
}

func newStrategist(v *viper.Viper) *strategy.Strategist {
	return strategy.New(strategy.Thresholds{
		Lazy:    v.GetInt("lazy-threshold"),
		Virtual: v.GetInt("virtual-threshold"),
	})
}

// newEngine builds an engine without a cache. Stored documents are read
// from config-dir when it is set; otherwise built-in defaults apply.
func newEngine(v *viper.Viper) (*core.Engine, error) {
	opts := core.Options{
		Formatter: format.New(format.Options{
			EmptyMarker:  v.GetString("empty-marker"),
			DateLayout:   v.GetString("date-layout"),
			Locale:       v.GetString("locale"),
			PhonePattern: v.GetString("phone-pattern"),
		}),
		Strategist: newStrategist(v),
	}
	if dir := v.GetString("config-dir"); dir != "" {
		s, err := store.NewYAMLStore(dir)
		if err != nil {
			return nil, err
		}
		opts.Store = s
	}
	return core.NewEngine(opts), nil
}
