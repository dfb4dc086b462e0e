// Package testenv provides utilities for testing the examples against a
// live Couchbase cluster.
//
// The cluster is described by the same CB_* environment variables the
// example programs read. Tests that need a cluster should skip themselves
// unless Enabled reports true.
package testenv

import (
	"fmt"
	"os"
	"time"

	"github.com/couchbase/gocb/v2"

	devguide "github.com/couchbase/docs-sdk-go"
)

const (
	// DefaultWaitUntilReady is used when CB_WAIT_UNTIL_READY is not set.
	DefaultWaitUntilReady = 30 * time.Second
)

// Env holds an open cluster and the collection tests should use.
type Env struct {
	Config     *devguide.Config
	Cluster    *gocb.Cluster
	Collection *gocb.Collection
}

// Enabled reports whether a cluster has been configured for tests.
func Enabled() bool {
	return os.Getenv(devguide.EnvConnectionString) != ""
}

func MustNew(options ...devguide.ClusterOption) *Env {
	env, err := New(options...)
	if err != nil {
		panic(fmt.Sprintf("Failed to create Couchbase connection: %v", err))
	}
	return env
}

// New connects to the cluster described by the environment and waits until
// it is ready.
func New(options ...devguide.ClusterOption) (*Env, error) {
	cfg, err := devguide.LoadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.WaitUntilReady == 0 {
		cfg.WaitUntilReady = DefaultWaitUntilReady
	}

	return NewFromConfig(cfg, options...)
}

// NewFromConfig is New with an explicit configuration.
func NewFromConfig(cfg *devguide.Config, options ...devguide.ClusterOption) (*Env, error) {
	cluster, err := devguide.Connect(cfg, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Couchbase: %w", err)
	}

	return &Env{
		Config:     cfg,
		Cluster:    cluster,
		Collection: devguide.OpenCollection(cluster, cfg),
	}, nil
}

// Close closes the cluster.
func (e *Env) Close() error {
	return e.Cluster.Close(nil)
}
