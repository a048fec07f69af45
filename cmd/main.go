package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"catastro/internal/config"
	"catastro/internal/municipio"
)

var (
	// Global flags
	verbose    bool
	configPath string
	envFile    string

	logger *zap.Logger
	cfg    *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "catastro",
	Short: "Reconcile cadastral predio exports between two vigencias",
	Long: `catastro compares the per-municipality Registro_catastral_XXXXX.xml exports
of two vigencias, reports incomplete records, accumulates the predios that
changed and checks them against the tramites and resoluciones systems.

Database credentials are read from the environment (TRAMITES_DB_*,
RESOLUCIONES_DB_*), optionally through a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("env-file") {
				return fmt.Errorf("load env file %s: %w", envFile, err)
			}
			logger.Debug("no env file found, using process environment", zap.String("path", envFile))
		}

		cfg, err = loadConfig(configPath, cmd.Flags().Changed("config"))
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// loadConfig reads path, falling back to the defaults when the file is
// missing and was not asked for explicitly.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !explicit {
		logger.Debug("no config file found, using defaults", zap.String("path", path))
		return config.Default(), nil
	}
	c, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("config loaded", zap.String("path", path), zap.Int("references", len(c.References)))
	return c, nil
}

// loadMunicipios loads the boundary layer when one is configured. A missing
// layer only costs the names in the reports.
func loadMunicipios() *municipio.Directory {
	m := cfg.Municipalities
	if m.Shapefile == "" {
		return nil
	}
	dir, err := municipio.Load(m.Shapefile, municipio.Fields{Code: m.CodeField, Name: m.NameField, Department: m.DepartmentField})
	if err != nil {
		logger.Warn("municipality names unavailable", zap.Error(err))
		return nil
	}
	logger.Debug("municipality names loaded", zap.Int("municipios", dir.Len()))
	return dir
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "catastro.toml", "Run configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "File with database credentials")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(explainCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
