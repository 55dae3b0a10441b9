package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/hashicorp/go-hclog"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tosih/map-rescaler/pkg/config"
	"github.com/tosih/map-rescaler/pkg/logging"
	"github.com/tosih/map-rescaler/pkg/models"
	"github.com/tosih/map-rescaler/pkg/renderer"
)

const version = "0.2.0"

// app holds what every command needs once flags and settings are merged.
type app struct {
	configPath  string
	catalogPath string
	logLevel    string
	displayMode string

	settings config.Settings
	catalog  *models.Catalog
	log      hclog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "map-rescaler",
		Short:         "Rescale ECU calibration maps onto a new axis",
		Long:          `Decode calibration tables from a firmware image, rescale them onto a new load axis and write them back.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "map-rescaler.ini", "Settings file (INI)")
	flags.StringVar(&a.catalogPath, "catalog", "", "Calibration catalog (YAML); built-in catalog when empty")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.StringVar(&a.displayMode, "mode", "", "Display mode: values, heatmap, symbols")

	rootCmd.AddCommand(
		a.listCmd(),
		a.showCmd(),
		a.rescaleCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.compareCmd(),
		a.scanCmd(),
		a.serveCmd(),
	)
	return rootCmd
}

// setup merges settings under flags, then builds the logger and catalog.
func (a *app) setup(cmd *cobra.Command) error {
	settings, err := config.LoadSettings(a.configPath)
	if err != nil {
		return err
	}
	a.settings = settings

	flags := cmd.Flags()
	if !flags.Changed("catalog") {
		a.catalogPath = settings.CatalogPath
	}
	if !flags.Changed("log-level") {
		a.logLevel = logging.GetLogLevel(settings.LogLevel)
	}
	if !flags.Changed("mode") {
		a.displayMode = settings.DisplayMode
	}
	if !slices.Contains(renderer.Modes, a.displayMode) {
		return fmt.Errorf("unknown display mode %q", a.displayMode)
	}

	a.log = logging.NewLogger("map-rescaler", a.logLevel, cmd.ErrOrStderr())

	if a.catalogPath == "" {
		a.catalog = models.DefaultCatalog()
		a.log.Debug("using built-in catalog", "variants", a.catalog.Len())
		return nil
	}
	a.catalog, err = config.LoadCatalog(a.catalogPath)
	if err != nil {
		return err
	}
	a.log.Info("catalog loaded", "path", a.catalogPath, "variants", a.catalog.Len())
	return nil
}

// variant resolves the --variant flag, defaulting to the only variant of a
// single-variant catalog.
func (a *app) variant(name string) (models.Variant, error) {
	if name == "" {
		names := a.catalog.Names()
		if len(names) != 1 {
			return models.Variant{}, fmt.Errorf("%w: --variant required, catalog has %d variants",
				models.ErrUnknownVariant, len(names))
		}
		name = names[0]
	}
	return a.catalog.Variant(name)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
