package devguide

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultConnectionString is the connection string used by the guide when
	// CB_CONNECTION_STRING is not set.
	DefaultConnectionString = "couchbase://127.0.0.1"

	DefaultUsername   = "Administrator"
	DefaultPassword   = "password"
	DefaultBucketName = "default"

	// DefaultScopeName and DefaultCollectionName name the keyspace every bucket starts with.
	DefaultScopeName      = "_default"
	DefaultCollectionName = "_default"

	// ProfileWANDevelopment relaxes timeouts for clusters reached over a
	// high-latency link, such as Capella from a laptop.
	ProfileWANDevelopment = "wan_development"
)

// Environment variables read by LoadConfig.
const (
	EnvConnectionString = "CB_CONNECTION_STRING"
	EnvUsername         = "CB_USERNAME"
	EnvPassword         = "CB_PASSWORD"
	EnvBucket           = "CB_BUCKET"
	EnvScope            = "CB_SCOPE"
	EnvCollection       = "CB_COLLECTION"
	EnvProfile          = "CB_PROFILE"
	EnvTLSSkipVerify    = "CB_TLS_SKIP_VERIFY"
	EnvKVTimeout        = "CB_KV_TIMEOUT"
	EnvQueryTimeout     = "CB_QUERY_TIMEOUT"
	EnvWaitUntilReady   = "CB_WAIT_UNTIL_READY"
	EnvLogLevel         = "CB_LOG_LEVEL"
	EnvLogFile          = "CB_LOG_FILE"
)

// Config holds everything an example needs to reach a cluster.
type Config struct {
	ConnectionString string
	Username         string
	Password         string

	BucketName     string
	ScopeName      string
	CollectionName string

	// Profile is applied to the cluster options before any explicit timeout.
	// Empty means no profile.
	Profile string

	// TLSSkipVerify disables server certificate verification.
	// Only ever set it against development clusters.
	TLSSkipVerify bool

	// Zero timeouts keep the SDK (or profile) defaults.
	KVTimeout    time.Duration
	QueryTimeout time.Duration

	// WaitUntilReady is how long Connect waits for the cluster to become
	// ready. Zero skips the wait.
	WaitUntilReady time.Duration

	LogLevel string
	LogFile  string
}

// NewConfig creates a new Config with the defaults the guide uses.
func NewConfig() *Config {
	return &Config{
		ConnectionString: DefaultConnectionString,
		Username:         DefaultUsername,
		Password:         DefaultPassword,
		BucketName:       DefaultBucketName,
		ScopeName:        DefaultScopeName,
		CollectionName:   DefaultCollectionName,
		LogLevel:         "warn",
	}
}

// LoadConfig reads the configuration from environment variables.
//
// A .env file in the working directory is loaded first if present.
// Variables already set in the environment take precedence over the file.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	c := NewConfig()
	c.ConnectionString = GetEnvOrDefault(EnvConnectionString, c.ConnectionString)
	c.Username = GetEnvOrDefault(EnvUsername, c.Username)
	c.Password = GetEnvOrDefault(EnvPassword, c.Password)
	c.BucketName = GetEnvOrDefault(EnvBucket, c.BucketName)
	c.ScopeName = GetEnvOrDefault(EnvScope, c.ScopeName)
	c.CollectionName = GetEnvOrDefault(EnvCollection, c.CollectionName)
	c.Profile = GetEnvOrDefault(EnvProfile, c.Profile)
	c.LogLevel = GetEnvOrDefault(EnvLogLevel, c.LogLevel)
	c.LogFile = GetEnvOrDefault(EnvLogFile, c.LogFile)

	var err error
	if c.TLSSkipVerify, err = getEnvBool(EnvTLSSkipVerify, c.TLSSkipVerify); err != nil {
		return nil, err
	}
	if c.KVTimeout, err = getEnvDuration(EnvKVTimeout, c.KVTimeout); err != nil {
		return nil, err
	}
	if c.QueryTimeout, err = getEnvDuration(EnvQueryTimeout, c.QueryTimeout); err != nil {
		return nil, err
	}
	if c.WaitUntilReady, err = getEnvDuration(EnvWaitUntilReady, c.WaitUntilReady); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustLoadConfig is LoadConfig for example programs, which cannot do
// anything useful without a configuration.
func MustLoadConfig() *Config {
	c, err := LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	return c
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ConnectionString == "" {
		return fmt.Errorf("%w: connection string is required", ErrInvalidConfig)
	}
	if c.Username == "" || c.Password == "" {
		return fmt.Errorf("%w: username and password are required", ErrInvalidConfig)
	}
	if c.BucketName == "" {
		return fmt.Errorf("%w: bucket name is required", ErrInvalidConfig)
	}
	if c.KVTimeout < 0 || c.QueryTimeout < 0 || c.WaitUntilReady < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	if c.Profile != "" && c.Profile != ProfileWANDevelopment {
		return fmt.Errorf("%w: %q", ErrUnknownProfile, c.Profile)
	}
	return nil
}

// Keyspace returns the scope and collection names, falling back to the
// default keyspace for whichever is empty.
func (c *Config) Keyspace() (scope, collection string) {
	scope, collection = c.ScopeName, c.CollectionName
	if scope == "" {
		scope = DefaultScopeName
	}
	if collection == "" {
		collection = DefaultCollectionName
	}
	return scope, collection
}
