package devguide

import (
	"errors"
	"testing"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClusterOptions(t *testing.T) {
	t.Run("password authenticator", func(t *testing.T) {
		cfg := NewConfig()
		cfg.Username = "app"
		cfg.Password = "secret"

		opts, err := ClusterOptions(cfg)
		require.NoError(t, err)

		auth, ok := opts.Authenticator.(gocb.PasswordAuthenticator)
		require.True(t, ok, "unexpected authenticator %T", opts.Authenticator)
		assert.Equal(t, "app", auth.Username)
		assert.Equal(t, "secret", auth.Password)
		assert.False(t, opts.SecurityConfig.TLSSkipVerify)
		assert.Zero(t, opts.TimeoutsConfig.KVTimeout)
	})

	t.Run("profile sets timeouts", func(t *testing.T) {
		cfg := NewConfig()
		cfg.Profile = ProfileWANDevelopment

		opts, err := ClusterOptions(cfg)
		require.NoError(t, err)
		assert.NotZero(t, opts.TimeoutsConfig.KVTimeout)
		assert.NotZero(t, opts.TimeoutsConfig.QueryTimeout)
	})

	t.Run("explicit timeouts override the profile", func(t *testing.T) {
		cfg := NewConfig()
		cfg.Profile = ProfileWANDevelopment
		cfg.KVTimeout = 3 * time.Second
		cfg.QueryTimeout = 42 * time.Second

		opts, err := ClusterOptions(cfg)
		require.NoError(t, err)
		assert.Equal(t, 3*time.Second, opts.TimeoutsConfig.KVTimeout)
		assert.Equal(t, 42*time.Second, opts.TimeoutsConfig.QueryTimeout)
	})

	t.Run("tls skip verify", func(t *testing.T) {
		cfg := NewConfig()
		cfg.TLSSkipVerify = true

		opts, err := ClusterOptions(cfg)
		require.NoError(t, err)
		assert.True(t, opts.SecurityConfig.TLSSkipVerify)
	})

	t.Run("options are applied in order", func(t *testing.T) {
		tracer := &gocb.NoopTracer{}
		meter := &gocb.NoopMeter{}
		txConfig := gocb.TransactionsConfig{DurabilityLevel: gocb.DurabilityLevelNone}

		opts, err := ClusterOptions(NewConfig(),
			WithTracer(tracer),
			WithMeter(meter),
			WithTransactionsConfig(txConfig),
			WithTLSSkipVerify(),
		)
		require.NoError(t, err)
		assert.Same(t, tracer, opts.Tracer)
		assert.Same(t, meter, opts.Meter)
		assert.Equal(t, gocb.DurabilityLevelNone, opts.TransactionsConfig.DurabilityLevel)
		assert.True(t, opts.SecurityConfig.TLSSkipVerify)
	})

	t.Run("option error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := ClusterOptions(NewConfig(), func(*gocb.ClusterOptions) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("unknown profile option", func(t *testing.T) {
		_, err := ClusterOptions(NewConfig(), WithProfile("turbo"))
		assert.ErrorIs(t, err, ErrUnknownProfile)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := NewConfig()
		cfg.BucketName = ""

		_, err := ClusterOptions(cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestConnectInvalidConfig(t *testing.T) {
	cfg := NewConfig()
	cfg.ConnectionString = ""

	cluster, err := Connect(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Nil(t, cluster)
}
