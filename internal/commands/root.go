// internal/commands/root.go
package mmrag

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwiater/mmrag/internal/appconfig"
	"github.com/mwiater/mmrag/internal/logging"
)

var (
	cfgFile       string
	configLoaded  bool
	currentConfig *appconfig.Config
	appVersion    = "dev"
	appCommit     = "none"
	appDate       = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "mmrag",
	Short:         "mmrag: multimodal multi-vector retrieval over text, tables and images",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureConfigLoaded(); err != nil {
			return err
		}

		cfg := appconfig.Default()
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("unmarshal config: %w", err)
		}
		if configLoaded {
			cfg.ConfigPath = viper.ConfigFileUsed()
		}
		cfg.Normalize()
		if err := cfg.Validate(); err != nil {
			return err
		}
		currentConfig = &cfg

		if err := logging.Init(currentConfig.LogFilePath(), currentConfig.Debug); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", appVersion, appCommit, appDate)

	err := rootCmd.Execute()
	_ = logging.Close()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	def := appconfig.Default()
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", appconfig.DefaultConfigPath, "config file (e.g., config/config.json)")

	flags.Bool("debug", false, "enable debug logging")
	flags.String("logFile", "", "path to the log file")
	flags.Bool("metrics", false, "record per-model call metrics into the storage directory")
	flags.String("provider", def.Provider, "model provider: ollama or openai")
	flags.String("host", def.Host.URL, "base URL of the model host")
	flags.String("llm", "", "text model used for summaries")
	flags.String("mm-llm", "", "multimodal model used for image summaries and answers")
	flags.String("embedding-model", "", "embedding model (defaults to --llm)")
	flags.String("storage", def.StorageDir, "index storage directory")
	flags.Int("timeout", def.TimeoutSeconds, "model request timeout in seconds")

	bindings := map[string]string{
		"debug":          "debug",
		"logFile":        "logFile",
		"metrics":        "metrics",
		"provider":       "provider",
		"host.url":       "host",
		"llm":            "llm",
		"mmLlm":          "mm-llm",
		"embeddingModel": "embedding-model",
		"storageDir":     "storage",
		"timeout":        "timeout",
	}
	for key, flag := range bindings {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	_ = godotenv.Load()

	viper.SetEnvPrefix("MMRAG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// ensureConfigLoaded reads the config file; a missing file leaves the defaults in place.
func ensureConfigLoaded() error {
	configLoaded = false
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load config: %w", err)
	}
	configLoaded = true
	return nil
}

// GetConfig returns the loaded application configuration for other packages.
func GetConfig() *appconfig.Config {
	return currentConfig
}

// DebugEnabled returns true if debug mode is enabled.
func DebugEnabled() bool { return viper.GetBool("debug") }

// SetVersionInfo allows the main package to inject build-time variables.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}
