package devguide

import (
	"fmt"

	"github.com/couchbase/gocb/v2"
)

// ClusterOption customises the gocb.ClusterOptions built from a Config.
type ClusterOption func(opts *gocb.ClusterOptions) error

// WithTracer makes the SDK report request spans to tracer.
func WithTracer(tracer gocb.RequestTracer) ClusterOption {
	return func(opts *gocb.ClusterOptions) error {
		opts.Tracer = tracer
		return nil
	}
}

// WithMeter makes the SDK report operation metrics to meter.
func WithMeter(meter gocb.Meter) ClusterOption {
	return func(opts *gocb.ClusterOptions) error {
		opts.Meter = meter
		return nil
	}
}

// WithTransactionsConfig sets the cluster-wide transactions configuration.
func WithTransactionsConfig(cfg gocb.TransactionsConfig) ClusterOption {
	return func(opts *gocb.ClusterOptions) error {
		opts.TransactionsConfig = cfg
		return nil
	}
}

// WithTLSSkipVerify disables server certificate verification regardless of the Config.
func WithTLSSkipVerify() ClusterOption {
	return func(opts *gocb.ClusterOptions) error {
		opts.SecurityConfig.TLSSkipVerify = true
		return nil
	}
}

// WithProfile applies a named configuration profile.
func WithProfile(profile string) ClusterOption {
	return func(opts *gocb.ClusterOptions) error {
		return applyProfile(opts, profile)
	}
}

func applyProfile(opts *gocb.ClusterOptions, profile string) error {
	switch profile {
	case "":
		return nil
	case ProfileWANDevelopment:
		if err := opts.ApplyProfile(gocb.ClusterConfigProfileWanDevelopment); err != nil {
			return fmt.Errorf("failed to apply profile %s: %w", profile, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProfile, profile)
	}
}

// ClusterOptions builds the options Connect passes to gocb.Connect.
//
// The profile is applied first so that explicit timeouts in the Config, and
// then the given options, override it.
func ClusterOptions(cfg *Config, options ...ClusterOption) (gocb.ClusterOptions, error) {
	if err := cfg.Validate(); err != nil {
		return gocb.ClusterOptions{}, err
	}

	opts := gocb.ClusterOptions{
		Authenticator: gocb.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		},
	}

	if err := applyProfile(&opts, cfg.Profile); err != nil {
		return gocb.ClusterOptions{}, err
	}

	if cfg.TLSSkipVerify {
		opts.SecurityConfig.TLSSkipVerify = true
	}
	if cfg.KVTimeout > 0 {
		opts.TimeoutsConfig.KVTimeout = cfg.KVTimeout
	}
	if cfg.QueryTimeout > 0 {
		opts.TimeoutsConfig.QueryTimeout = cfg.QueryTimeout
	}

	for _, option := range options {
		if err := option(&opts); err != nil {
			return gocb.ClusterOptions{}, err
		}
	}

	return opts, nil
}

// Connect connects to the cluster described by cfg.
//
// When cfg.WaitUntilReady is set, Connect blocks until the cluster reports
// ready or the duration elapses, and closes the cluster on failure.
func Connect(cfg *Config, options ...ClusterOption) (*gocb.Cluster, error) {
	opts, err := ClusterOptions(cfg, options...)
	if err != nil {
		return nil, err
	}

	cluster, err := gocb.Connect(cfg.ConnectionString, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.ConnectionString, err)
	}

	if cfg.WaitUntilReady > 0 {
		if err := cluster.WaitUntilReady(cfg.WaitUntilReady, nil); err != nil {
			_ = cluster.Close(nil)
			return nil, fmt.Errorf("cluster not ready after %s: %w", cfg.WaitUntilReady, err)
		}
	}

	return cluster, nil
}

// OpenCollection returns the collection named by cfg.
func OpenCollection(cluster *gocb.Cluster, cfg *Config) *gocb.Collection {
	scope, collection := cfg.Keyspace()
	return cluster.Bucket(cfg.BucketName).Scope(scope).Collection(collection)
}
