// Package config provides centralized configuration management for the pipeline.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"path/filepath"
	"time"
)

// Config holds all pipeline configuration.
// All settings can be configured via environment variables.
type Config struct {
	Paths     PathsConfig
	Retrieval RetrievalConfig
	Decode    DecodeConfig
	Publish   PublishConfig
	Merge     MergeConfig
	Database  DatabaseConfig
	Server    ServerConfig
	Logging   LoggingConfig
}

// PathsConfig holds the local directories every stage reads or writes.
type PathsConfig struct {
	// DownloadDir is where the browser saves the archive (default: ./data/download)
	DownloadDir string `env:"DOWNLOAD_DIR" default:"./data/download"`

	// StagingDir receives one partition per region (default: ./data/staging)
	StagingDir string `env:"STAGING_DIR" default:"./data/staging"`

	// PartitionDir is what normalize reads. Empty means StagingDir.
	PartitionDir string `env:"PARTITION_DIR"`

	// OutputDir receives preprocessed_data.parquet (default: ./data/output)
	OutputDir string `env:"OUTPUT_DIR" default:"./data/output"`

	// ArchivePath skips browser retrieval and decodes this archive instead
	ArchivePath string `env:"ARCHIVE_PATH"`

	// CleanupDownload removes the archive after a successful publish (default: true)
	CleanupDownload bool `env:"CLEANUP_DOWNLOAD" default:"true"`

	// CleanupStaging removes partitions after a successful publish (default: false)
	CleanupStaging bool `env:"CLEANUP_STAGING" default:"false"`
}

// RetrievalConfig holds portal and download-wait settings.
type RetrievalConfig struct {
	// PortalURL is the open-data portal search page
	PortalURL string `env:"RETRIEVAL_PORTAL_URL" default:"https://www.data.go.kr/index.do"`

	// Keyword is typed into the portal search box
	Keyword string `env:"RETRIEVAL_KEYWORD" default:"소상공인시장진흥공단_상가(상권)정보"`

	// ArchivePrefix is the file name prefix of the downloaded archive
	ArchivePrefix string `env:"RETRIEVAL_ARCHIVE_PREFIX" default:"소상공인시장진흥공단_상가(상권)정보_"`

	// Timeout bounds the wait for the download to land (default: 10m)
	Timeout time.Duration `env:"RETRIEVAL_TIMEOUT" default:"10m"`

	// PollInterval is how often the download directory is checked (default: 1s)
	PollInterval time.Duration `env:"RETRIEVAL_POLL_INTERVAL" default:"1s"`

	// BrowserBin is an explicit Chrome/Chromium binary. Empty lets rod find or fetch one.
	BrowserBin string `env:"CHROME_BIN"`

	// Headless runs the browser without a window (default: true)
	Headless bool `env:"RETRIEVAL_HEADLESS" default:"true"`
}

// Decode failure policies.
const (
	PolicyIsolate  = "isolate"
	PolicyFailFast = "fail-fast"
)

// Source encodings.
const (
	EncodingUTF8  = "utf-8"
	EncodingEUCKR = "euc-kr"
	EncodingCP949 = "cp949"
)

// Publish modes and remote backends.
const (
	PublishReplace = "replace"
	PublishSwap    = "swap"

	BackendFS   = "fs"
	BackendS3   = "s3"
	BackendHDFS = "hdfs"
)

// DecodeConfig holds archive decoding settings.
type DecodeConfig struct {
	// Workers bounds the number of region files decoded in parallel (default: 1)
	Workers int `env:"DECODE_WORKERS" default:"1"`

	// FailurePolicy is isolate or fail-fast (default: isolate)
	FailurePolicy string `env:"DECODE_FAILURE_POLICY" default:"isolate"`

	// SourceEncoding is utf-8, euc-kr or cp949 (default: utf-8)
	SourceEncoding string `env:"SOURCE_ENCODING" default:"utf-8"`
}

// PublishConfig holds remote store settings.
type PublishConfig struct {
	// Mode is replace or swap (default: swap)
	Mode string `env:"PUBLISH_MODE" default:"swap"`

	// Backend is fs, s3 or hdfs (default: fs)
	Backend string `env:"REMOTE_BACKEND" default:"fs"`

	// RemoteDir is the shared directory (or object prefix) that receives the partitions
	RemoteDir string `env:"REMOTE_DIR" default:"./data/remote/storefront"`

	// Timeout bounds each remote operation (default: 10m)
	Timeout time.Duration `env:"REMOTE_TIMEOUT" default:"10m"`

	S3   S3Config
	HDFS HDFSConfig
}

// S3Config holds S3-compatible object store settings.
type S3Config struct {
	Endpoint  string `env:"S3_ENDPOINT"`
	Bucket    string `env:"S3_BUCKET"`
	AccessKey string `env:"S3_ACCESS_KEY" envAlt:"AWS_ACCESS_KEY_ID"`
	SecretKey string `env:"S3_SECRET_KEY" envAlt:"AWS_SECRET_ACCESS_KEY"`
	Region    string `env:"S3_REGION"`
	UseSSL    bool   `env:"S3_USE_SSL" default:"true"`
}

// HDFSConfig holds settings for the hdfs command line client.
type HDFSConfig struct {
	// Bin is the hdfs executable (default: hdfs)
	Bin string `env:"HDFS_BIN" default:"hdfs"`
}

// MergeConfig holds normalization settings.
type MergeConfig struct {
	// BranchSentinel fills missing branch names (default: headquarters)
	BranchSentinel string `env:"MERGE_BRANCH_SENTINEL" default:"headquarters"`

	// KeepStoreID keeps store_id in the output instead of dropping it (default: false)
	KeepStoreID bool `env:"MERGE_KEEP_STORE_ID" default:"false"`

	// ZonesFile is a YAML file of named zones. Empty uses the built-in core zone.
	ZonesFile string `env:"ZONES_FILE"`
}

// DatabaseConfig holds the optional run ledger connection.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty disables the ledger
	// and falls back to the file lock.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// ConnectTimeout bounds the initial ping (default: 10s)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"10s"`
}

// ServerConfig holds the optional metrics/status listener.
type ServerConfig struct {
	// Addr is the listen address, e.g. :9090. Empty disables the listener.
	Addr string `env:"METRICS_ADDR"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// ShutdownTimeout bounds graceful shutdown (default: 5s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"5s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// File mirrors the log stream. Empty logs to stdout only.
	File string `env:"LOG_FILE" default:"./data/storefront.log"`
}

// Partitions returns the directory normalize reads partitions from.
func (c *PathsConfig) Partitions() string {
	if c.PartitionDir != "" {
		return c.PartitionDir
	}
	return c.StagingDir
}

// LockPath returns the run lock file location under the staging root.
func (c *PathsConfig) LockPath() string {
	return filepath.Join(filepath.Dir(filepath.Clean(c.StagingDir)), ".storefront.lock")
}

// Enabled reports whether the listener should start.
func (c *ServerConfig) Enabled() bool {
	return c.Addr != ""
}
