package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment
// variables or a .env file.
//
// It is composed of smaller structs that represent different concerns of the
// system: the HTTP server, the object store, the content cache, and the
// batch execution layer.
//
// Example ENV equivalent:
//
//	SERVER_PORT=8080
//	S3_ENDPOINT=http://localhost:9000
//	S3_REGION=ap-southeast-1
//	S3_BUCKET=idxpulse
//	S3_ACCESS_KEY=admin
//	S3_SECRET_KEY=secret
//	CACHE_TTL_MINUTES=150
//	CACHE_MAX_MB=512
type Config struct {
	Server ServerConfig // HTTP server configuration (api mode)
	Store  StoreConfig  // object-store connection settings
	Cache  CacheConfig  // content-cache bounds
	Batch  BatchConfig  // batch execution tuning
}

// ServerConfig holds HTTP server settings such as the port to listen on.
type ServerConfig struct {
	Port string // The TCP port the HTTP server will listen on (e.g., "8080")
}

// StoreConfig defines connection details for the S3-compatible object store
// that holds raw daily trade files and all produced aggregates.
//
// Fields:
//   - Endpoint: custom endpoint URL; empty means the default AWS endpoint.
//   - Region: AWS region name.
//   - Bucket: bucket holding input and output objects.
//   - AccessKey / SecretKey: static credentials (empty falls back to the
//     SDK's default credential chain).
//   - ForcePathStyle: required for MinIO-style deployments.
type StoreConfig struct {
	Endpoint       string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
}

// CacheConfig bounds the shared content cache.
type CacheConfig struct {
	TTLMinutes int // entry lifetime before an access counts as a miss
	MaxMB      int // total content-size ceiling
}

// BatchConfig tunes the batch/concurrency controller. The stock phase does
// many small per-stock uploads and runs wider; the index phase downloads
// whole partitions and runs narrower.
type BatchConfig struct {
	StockBatchSize int
	StockParallel  int
	IndexBatchSize int
	IndexParallel  int
	RetryAttempts  int // remote-call retry ceiling
	PauseMillis    int // delay between batches to throttle request rate
	MemSoftLimitMB int // above this: force GC and pause
	MemHardLimitMB int // above this: log critical, keep going
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() and used throughout the application.
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from a .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
func LoadConfig() {
	// Default values
	viper.SetDefault("SERVER_PORT", "8080")

	viper.SetDefault("S3_ENDPOINT", "")
	viper.SetDefault("S3_REGION", "ap-southeast-1")
	viper.SetDefault("S3_BUCKET", "idxpulse")
	viper.SetDefault("S3_ACCESS_KEY", "")
	viper.SetDefault("S3_SECRET_KEY", "")
	viper.SetDefault("S3_FORCE_PATH_STYLE", true)

	viper.SetDefault("CACHE_TTL_MINUTES", 150)
	viper.SetDefault("CACHE_MAX_MB", 512)

	viper.SetDefault("STOCK_BATCH_SIZE", 24)
	viper.SetDefault("STOCK_MAX_CONCURRENCY", 8)
	viper.SetDefault("INDEX_BATCH_SIZE", 8)
	viper.SetDefault("INDEX_MAX_CONCURRENCY", 3)
	viper.SetDefault("RETRY_MAX_ATTEMPTS", 4)
	viper.SetDefault("BATCH_PAUSE_MS", 250)
	viper.SetDefault("MEM_SOFT_LIMIT_MB", 1024)
	viper.SetDefault("MEM_HARD_LIMIT_MB", 2048)

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	// Read environment variables automatically
	viper.AutomaticEnv()

	// Populate global config instance
	AppConfig = Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Store: StoreConfig{
			Endpoint:       viper.GetString("S3_ENDPOINT"),
			Region:         viper.GetString("S3_REGION"),
			Bucket:         viper.GetString("S3_BUCKET"),
			AccessKey:      viper.GetString("S3_ACCESS_KEY"),
			SecretKey:      viper.GetString("S3_SECRET_KEY"),
			ForcePathStyle: viper.GetBool("S3_FORCE_PATH_STYLE"),
		},
		Cache: CacheConfig{
			TTLMinutes: viper.GetInt("CACHE_TTL_MINUTES"),
			MaxMB:      viper.GetInt("CACHE_MAX_MB"),
		},
		Batch: BatchConfig{
			StockBatchSize: viper.GetInt("STOCK_BATCH_SIZE"),
			StockParallel:  viper.GetInt("STOCK_MAX_CONCURRENCY"),
			IndexBatchSize: viper.GetInt("INDEX_BATCH_SIZE"),
			IndexParallel:  viper.GetInt("INDEX_MAX_CONCURRENCY"),
			RetryAttempts:  viper.GetInt("RETRY_MAX_ATTEMPTS"),
			PauseMillis:    viper.GetInt("BATCH_PAUSE_MS"),
			MemSoftLimitMB: viper.GetInt("MEM_SOFT_LIMIT_MB"),
			MemHardLimitMB: viper.GetInt("MEM_HARD_LIMIT_MB"),
		},
	}

	// Validate critical fields
	validateConfig()
}

// validateConfig ensures required variables are present and terminates
// the application if they are missing.
//
// This avoids unexpected runtime failures due to incomplete configuration.
func validateConfig() {
	var missing []string

	if AppConfig.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if AppConfig.Store.Region == "" {
		missing = append(missing, "S3_REGION")
	}
	if AppConfig.Store.Bucket == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if AppConfig.Cache.TTLMinutes <= 0 {
		missing = append(missing, "CACHE_TTL_MINUTES")
	}
	if AppConfig.Cache.MaxMB <= 0 {
		missing = append(missing, "CACHE_MAX_MB")
	}
	if AppConfig.Batch.StockParallel <= 0 {
		missing = append(missing, "STOCK_MAX_CONCURRENCY")
	}
	if AppConfig.Batch.IndexParallel <= 0 {
		missing = append(missing, "INDEX_MAX_CONCURRENCY")
	}

	if len(missing) > 0 {
		log.Fatalf("missing required environment variables: %v\n", missing)
	}
}
