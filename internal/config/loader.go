package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Paths
	if c.Paths.StagingDir == "" {
		errs = append(errs, "STAGING_DIR is required")
	}
	if c.Paths.OutputDir == "" {
		errs = append(errs, "OUTPUT_DIR is required")
	}
	if c.Paths.DownloadDir == "" && c.Paths.ArchivePath == "" {
		errs = append(errs, "one of DOWNLOAD_DIR or ARCHIVE_PATH is required")
	}

	// Retrieval
	if c.Retrieval.Timeout <= 0 {
		errs = append(errs, "RETRIEVAL_TIMEOUT must be positive")
	}
	if c.Retrieval.PollInterval <= 0 {
		errs = append(errs, "RETRIEVAL_POLL_INTERVAL must be positive")
	}
	if c.Retrieval.PollInterval > c.Retrieval.Timeout {
		errs = append(errs, fmt.Sprintf("RETRIEVAL_POLL_INTERVAL (%s) must be <= RETRIEVAL_TIMEOUT (%s)",
			c.Retrieval.PollInterval, c.Retrieval.Timeout))
	}

	// Decode
	if c.Decode.Workers <= 0 {
		errs = append(errs, "DECODE_WORKERS must be positive")
	}
	validPolicies := map[string]bool{PolicyIsolate: true, PolicyFailFast: true}
	if !validPolicies[c.Decode.FailurePolicy] {
		errs = append(errs, fmt.Sprintf("DECODE_FAILURE_POLICY (%q) must be one of: isolate, fail-fast", c.Decode.FailurePolicy))
	}
	validEncodings := map[string]bool{EncodingUTF8: true, EncodingEUCKR: true, EncodingCP949: true}
	if !validEncodings[strings.ToLower(c.Decode.SourceEncoding)] {
		errs = append(errs, fmt.Sprintf("SOURCE_ENCODING (%q) must be one of: utf-8, euc-kr, cp949", c.Decode.SourceEncoding))
	}

	// Publish
	validModes := map[string]bool{PublishReplace: true, PublishSwap: true}
	if !validModes[c.Publish.Mode] {
		errs = append(errs, fmt.Sprintf("PUBLISH_MODE (%q) must be one of: replace, swap", c.Publish.Mode))
	}
	if c.Publish.RemoteDir == "" {
		errs = append(errs, "REMOTE_DIR is required")
	}
	if c.Publish.Timeout <= 0 {
		errs = append(errs, "REMOTE_TIMEOUT must be positive")
	}
	switch c.Publish.Backend {
	case BackendFS:
	case BackendS3:
		if c.Publish.S3.Endpoint == "" {
			errs = append(errs, "S3_ENDPOINT is required when REMOTE_BACKEND=s3")
		}
		if c.Publish.S3.Bucket == "" {
			errs = append(errs, "S3_BUCKET is required when REMOTE_BACKEND=s3")
		}
	case BackendHDFS:
		if c.Publish.HDFS.Bin == "" {
			errs = append(errs, "HDFS_BIN is required when REMOTE_BACKEND=hdfs")
		}
	default:
		errs = append(errs, fmt.Sprintf("REMOTE_BACKEND (%q) must be one of: fs, s3, hdfs", c.Publish.Backend))
	}

	// Merge
	if strings.TrimSpace(c.Merge.BranchSentinel) == "" {
		errs = append(errs, "MERGE_BRANCH_SENTINEL must not be blank")
	}

	// Database
	if c.Database.URL != "" && c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}

	// Server
	if c.Server.Enabled() && c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Logging
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Credentials and the database URL are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Paths: {Download: %q, Staging: %q, Partitions: %q, Output: %q, Archive: %q}, ",
		c.Paths.DownloadDir, c.Paths.StagingDir, c.Paths.Partitions(), c.Paths.OutputDir, c.Paths.ArchivePath))
	b.WriteString(fmt.Sprintf("Retrieval: {Timeout: %s, PollInterval: %s, Headless: %v}, ",
		c.Retrieval.Timeout, c.Retrieval.PollInterval, c.Retrieval.Headless))
	b.WriteString(fmt.Sprintf("Decode: {Workers: %d, FailurePolicy: %q, Encoding: %q}, ",
		c.Decode.Workers, c.Decode.FailurePolicy, c.Decode.SourceEncoding))
	b.WriteString(fmt.Sprintf("Publish: {Mode: %q, Backend: %q, RemoteDir: %q, Timeout: %s",
		c.Publish.Mode, c.Publish.Backend, c.Publish.RemoteDir, c.Publish.Timeout))
	if c.Publish.Backend == BackendS3 {
		b.WriteString(fmt.Sprintf(", S3: {Endpoint: %q, Bucket: %q, AccessKey: %s, SecretKey: %s}",
			c.Publish.S3.Endpoint, c.Publish.S3.Bucket, mask(c.Publish.S3.AccessKey), mask(c.Publish.S3.SecretKey)))
	}
	b.WriteString("}, ")
	b.WriteString(fmt.Sprintf("Merge: {BranchSentinel: %q, KeepStoreID: %v, ZonesFile: %q}, ",
		c.Merge.BranchSentinel, c.Merge.KeepStoreID, c.Merge.ZonesFile))
	b.WriteString(fmt.Sprintf("Database: {URL: %s}, ", mask(c.Database.URL)))
	b.WriteString(fmt.Sprintf("Server: {Addr: %q}, ", c.Server.Addr))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q, File: %q}",
		c.Logging.Level, c.Logging.Format, c.Logging.File))
	b.WriteString("}")
	return b.String()
}

func mask(s string) string {
	if s == "" {
		return "[UNSET]"
	}
	return "[MASKED]"
}
