package devguide

import (
	"context"
	"testing"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(id string, valuePtr any) (gocb.Cas, error) {
	args := m.Called(id, valuePtr)
	return args.Get(0).(gocb.Cas), args.Error(1)
}

func (m *mockStore) Insert(id string, value any, durability gocb.DurabilityLevel) (gocb.Cas, error) {
	args := m.Called(id, value, durability)
	return args.Get(0).(gocb.Cas), args.Error(1)
}

func (m *mockStore) Replace(id string, value any, cas gocb.Cas) (gocb.Cas, error) {
	args := m.Called(id, value, cas)
	return args.Get(0).(gocb.Cas), args.Error(1)
}

func TestDoInsert(t *testing.T) {
	doc := map[string]any{"name": "Frank"}

	tests := []struct {
		name       string
		maxRetries int
		setupMock  func(m *mockStore)
		wantErr    []error
		wantCalls  int
	}{
		{
			name:       "first attempt succeeds",
			maxRetries: 5,
			setupMock: func(m *mockStore) {
				m.On("Insert", "doc", doc, gocb.DurabilityLevelMajority).Return(gocb.Cas(1), nil).Once()
			},
			wantCalls: 1,
		},
		{
			name:       "document exists on first attempt",
			maxRetries: 5,
			setupMock: func(m *mockStore) {
				m.On("Insert", "doc", doc, gocb.DurabilityLevelMajority).Return(gocb.Cas(0), gocb.ErrDocumentExists).Once()
			},
			wantErr:   []error{ErrInsertFailed, gocb.ErrDocumentExists},
			wantCalls: 1,
		},
		{
			name:       "document exists after ambiguous attempt",
			maxRetries: 5,
			setupMock: func(m *mockStore) {
				m.On("Insert", "doc", doc, gocb.DurabilityLevelMajority).Return(gocb.Cas(0), gocb.ErrDurabilityAmbiguous).Once()
				m.On("Insert", "doc", doc, gocb.DurabilityLevelMajority).Return(gocb.Cas(0), gocb.ErrDocumentExists).Once()
			},
			wantCalls: 2,
		},
		{
			name:       "ambiguous then success",
			maxRetries: 5,
			setupMock: func(m *mockStore) {
				m.On("Insert", "doc", doc, gocb.DurabilityLevelMajority).Return(gocb.Cas(0), gocb.ErrAmbiguousTimeout).Twice()
				m.On("Insert", "doc", doc, gocb.DurabilityLevelMajority).Return(gocb.Cas(7), nil).Once()
			},
			wantCalls: 3,
		},
		{
			name:       "always ambiguous",
			maxRetries: 4,
			setupMock: func(m *mockStore) {
				m.On("Insert", "doc", doc, gocb.DurabilityLevelMajority).Return(gocb.Cas(0), gocb.ErrDurabilityAmbiguous)
			},
			wantErr:   []error{ErrInsertFailed, ErrMaxRetriesExceeded},
			wantCalls: 4,
		},
		{
			name:       "non-ambiguous error",
			maxRetries: 5,
			setupMock: func(m *mockStore) {
				m.On("Insert", "doc", doc, gocb.DurabilityLevelMajority).Return(gocb.Cas(0), gocb.ErrAuthenticationFailure).Once()
			},
			wantErr:   []error{ErrInsertFailed, gocb.ErrAuthenticationFailure},
			wantCalls: 1,
		},
		{
			name:       "transient errors are not retried",
			maxRetries: 5,
			setupMock: func(m *mockStore) {
				m.On("Insert", "doc", doc, gocb.DurabilityLevelMajority).Return(gocb.Cas(0), gocb.ErrTemporaryFailure).Once()
			},
			wantErr:   []error{ErrInsertFailed, gocb.ErrTemporaryFailure},
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(mockStore)
			tt.setupMock(m)

			err := DoInsert(m, "doc", doc, tt.maxRetries)

			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
			}
			for _, want := range tt.wantErr {
				assert.ErrorIs(t, err, want)
			}
			m.AssertNumberOfCalls(t, "Insert", tt.wantCalls)
			m.AssertExpectations(t)
		})
	}
}

func TestDoInsertWithBackoff(t *testing.T) {
	doc := map[string]any{"name": "Frank"}
	ctx := context.Background()

	t.Run("transient then success", func(t *testing.T) {
		m := new(mockStore)
		m.On("Insert", "doc", doc, gocb.DurabilityLevelMajority).Return(gocb.Cas(0), gocb.ErrTemporaryFailure).Once()
		m.On("Insert", "doc", doc, gocb.DurabilityLevelMajority).Return(gocb.Cas(0), gocb.ErrDurableWriteInProgress).Once()
		m.On("Insert", "doc", doc, gocb.DurabilityLevelMajority).Return(gocb.Cas(3), nil).Once()

		err := DoInsertWithBackoff(ctx, m, "doc", doc, NewFixedDelayRetryer(time.Millisecond, 5))
		assert.NoError(t, err)
		m.AssertExpectations(t)
	})

	t.Run("ambiguous then exists", func(t *testing.T) {
		m := new(mockStore)
		m.On("Insert", "doc", doc, gocb.DurabilityLevelMajority).Return(gocb.Cas(0), gocb.ErrDurabilityAmbiguous).Once()
		m.On("Insert", "doc", doc, gocb.DurabilityLevelMajority).Return(gocb.Cas(0), gocb.ErrDocumentExists).Once()

		err := DoInsertWithBackoff(ctx, m, "doc", doc, NewFixedDelayRetryer(0, 5))
		assert.NoError(t, err)
		m.AssertExpectations(t)
	})

	t.Run("retries exhausted", func(t *testing.T) {
		m := new(mockStore)
		m.On("Insert", "doc", doc, gocb.DurabilityLevelMajority).Return(gocb.Cas(0), gocb.ErrTemporaryFailure)

		err := DoInsertWithBackoff(ctx, m, "doc", doc, NewFixedDelayRetryer(0, 2))
		assert.ErrorIs(t, err, ErrInsertFailed)
		assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
		assert.ErrorIs(t, err, gocb.ErrTemporaryFailure)
		m.AssertNumberOfCalls(t, "Insert", 3)
	})

	t.Run("context cancelled while waiting", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		m := new(mockStore)
		m.On("Insert", "doc", doc, gocb.DurabilityLevelMajority).Return(gocb.Cas(0), gocb.ErrAmbiguousTimeout)

		err := DoInsertWithBackoff(cancelled, m, "doc", doc, NewFixedDelayRetryer(time.Hour, 0))
		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, err, gocb.ErrAmbiguousTimeout)
		m.AssertNumberOfCalls(t, "Insert", 1)
	})

	t.Run("permanent error", func(t *testing.T) {
		m := new(mockStore)
		m.On("Insert", "doc", doc, gocb.DurabilityLevelMajority).Return(gocb.Cas(0), gocb.ErrValueTooLarge).Once()

		err := DoInsertWithBackoff(ctx, m, "doc", doc, nil)
		assert.ErrorIs(t, err, ErrInsertFailed)
		assert.ErrorIs(t, err, gocb.ErrValueTooLarge)
		m.AssertExpectations(t)
	})

	t.Run("memory store", func(t *testing.T) {
		store := NewMemoryStore()
		store.InsertErrors = []error{gocb.ErrDurabilityAmbiguous, gocb.ErrTemporaryFailure}

		err := DoInsertWithBackoff(ctx, store, "doc", doc, NewFixedDelayRetryer(0, 5))
		assert.NoError(t, err)

		var got map[string]any
		_, err = store.Get("doc", &got)
		assert.NoError(t, err)
		assert.Equal(t, doc, got)
	})
}
