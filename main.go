package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"car-scout/apiclient"
	"car-scout/cache"
	"car-scout/config"
	"car-scout/models"
	"car-scout/services"
	"car-scout/storage"
	"car-scout/utils"
)

var (
	cfg    *config.Config
	logger *utils.Logger
)

var rootCmd = &cobra.Command{
	Use:   "car-scout",
	Short: "Score and rank used-car listings",
	Long: `car-scout scrapes used-car listings, matches them against reliability reference
data, scores reliability and value for money, and ranks the result.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		logger = utils.NewLoggerWithConfig(utils.LogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Info("[config] Using config file: %s", used)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("config", "", "scoring config file (default: ./car-scout.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("car-scout")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "car-scout"))
		}
	}

	viper.SetEnvPrefix("CARSCOUT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		fmt.Fprintln(os.Stderr, "Reading config file:", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newPipeline builds the ranking pipeline from the scoring config file and
// the environment.
func newPipeline() (*services.Pipeline, error) {
	scoring, err := config.LoadScoring(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return services.NewPipeline(scoring, logger, services.WithCountry(cfg.Country))
}

// referenceCache picks Redis when REDIS_ADDR is set and the local SQLite
// catalog otherwise. The returned close func is never nil.
func referenceCache(ctx context.Context) (cache.ReferenceCache, func(), error) {
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisReferenceCache(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      time.Duration(cfg.CacheTTLHours) * time.Hour,
		})
		if err != nil {
			return nil, func() {}, err
		}
		logger.Info("[cache] Using Redis reference cache at %s", cfg.RedisAddr)
		return rc, func() { _ = rc.Close() }, nil
	}

	store, err := storage.NewReferenceStore(cfg.SQLitePath)
	if err != nil {
		return nil, func() {}, err
	}
	logger.Info("[cache] Using SQLite reference catalog at %s", cfg.SQLitePath)
	return store, func() { _ = store.Close() }, nil
}

// newEnricher returns nil when no reliability sources are configured.
func newEnricher(rc cache.ReferenceCache) *apiclient.Enricher {
	if len(cfg.ReliabilitySources) == 0 {
		return nil
	}
	sources := make([]apiclient.Source, 0, len(cfg.ReliabilitySources))
	for name, baseURL := range cfg.ReliabilitySources {
		sources = append(sources, apiclient.NewClient(apiclient.ClientConfig{
			Name:       name,
			BaseURL:    baseURL,
			APIKey:     cfg.ReliabilityAPIKey,
			Timeout:    time.Duration(cfg.APITimeoutMs) * time.Millisecond,
			MaxRetries: cfg.MaxRetries,
		}, logger))
	}
	return apiclient.NewEnricher(sources, rc, cfg.MaxConcurrency, cfg.RateLimitMs, logger)
}

// enrich fetches reference data for listings and appends it to catalog.
// Partial failures are logged; whatever was fetched is still used.
func enrich(ctx context.Context, catalog []models.ReferenceRecord, listings []*models.Listing) []models.ReferenceRecord {
	rc, closeCache, err := referenceCache(ctx)
	if err != nil {
		logger.Warn("[enrich] Reference cache unavailable, using in-memory cache: %v", err)
		rc = cache.NewMemoryReferenceCache()
	}
	defer closeCache()

	enricher := newEnricher(rc)
	if enricher == nil {
		logger.Warn("[enrich] RELIABILITY_SOURCES is empty, nothing to fetch")
		return catalog
	}

	fetched, err := enricher.Fetch(ctx, apiclient.KeysFor(listings))
	if err != nil {
		logger.Warn("[enrich] Enrichment incomplete: %v", err)
	}
	return append(catalog, fetched...)
}
