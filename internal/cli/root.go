package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/model"
)

// Version is the client release
const Version = "cortex v0.3.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cortex",
	Short: "CORTEX - Clinical Oriented Request Translator for EXecutable SQL",
	Long: `CORTEX turns clinical questions written in free text into SQL.

The question is sent to the CORTEX backend, which highlights the medical
terms it finds. Each term is confirmed against a terminology (SNOMED CT
concepts) before SQL is generated from the confirmed terms, and the result
can be edited and checked against the clinical database.

Results are produced by a language model and may not be correct.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.cortex/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	flags.String("api-url", "", "CORTEX backend URL")
	flags.String("medical-url", "", "medical NLP backend URL (default: --api-url)")
	flags.String("storage", "", "where the session is kept: memory, file or sqlite")
	flags.String("storage-path", "", "session file or database path")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("api.base_url", flags.Lookup("api-url"))
	_ = viper.BindPFlag("api.medical_url", flags.Lookup("medical-url"))
	_ = viper.BindPFlag("storage.backend", flags.Lookup("storage"))
	_ = viper.BindPFlag("storage.path", flags.Lookup("storage-path"))

	setDefaults(model.DefaultConfig())

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// setDefaults registers every config key so env vars and Unmarshal see them
func setDefaults(cfg *model.Config) {
	viper.SetDefault("api.base_url", cfg.API.BaseURL)
	viper.SetDefault("api.medical_url", cfg.API.MedicalURL)
	viper.SetDefault("http.timeout", cfg.HTTP.Timeout)
	viper.SetDefault("http.user_agent", cfg.HTTP.UserAgent)
	viper.SetDefault("http.http_proxy", cfg.HTTP.HTTPProxy)
	viper.SetDefault("http.https_proxy", cfg.HTTP.HTTPSProxy)
	viper.SetDefault("rate_limiting.requests_per_second", cfg.RateLimiting.RequestsPerSecond)
	viper.SetDefault("rate_limiting.burst_size", cfg.RateLimiting.BurstSize)
	viper.SetDefault("rate_limiting.medical_requests_per_second", cfg.RateLimiting.MedicalRequestsPerSecond)
	viper.SetDefault("rate_limiting.medical_burst_size", cfg.RateLimiting.MedicalBurstSize)
	viper.SetDefault("cache.enabled", cfg.Cache.Enabled)
	viper.SetDefault("cache.dir", cfg.Cache.Dir)
	viper.SetDefault("cache.memory_ttl", cfg.Cache.MemoryTTL)
	viper.SetDefault("cache.disk_ttl", cfg.Cache.DiskTTL)
	viper.SetDefault("storage.backend", cfg.Storage.Backend)
	viper.SetDefault("storage.path", cfg.Storage.Path)
	viper.SetDefault("terminology.page_size", cfg.Terminology.PageSize)
	viper.SetDefault("concurrency.prefetch_workers", cfg.Concurrency.PrefetchWorkers)
	viper.SetDefault("web.addr", cfg.Web.Addr)
	viper.SetDefault("web.cors_origins", cfg.Web.CORSOrigins)
	viper.SetDefault("web.session_ttl", cfg.Web.SessionTTL)
	viper.SetDefault("log.level", cfg.Log.Level)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := cortexDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(dir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match CORTEX_*, e.g. CORTEX_API_BASE_URL
	viper.SetEnvPrefix("CORTEX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig resolves the effective configuration
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	switch cfg.Storage.Backend {
	case model.StorageMemory, model.StorageFile, model.StorageSQLite:
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want memory, file or sqlite)", cfg.Storage.Backend)
	}
	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("api.base_url is not set")
	}
	return cfg, nil
}

// cortexDir is where config, session and cache live
func cortexDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cortex"), nil
}
