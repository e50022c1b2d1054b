package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"shopassist/pkg/aiinterface"
	"shopassist/pkg/httputil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRetriesTransientOnce(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{MaxAttempts: 2}, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return &aiinterface.ClientError{Type: aiinterface.ErrorTypeRateLimit, Message: "429"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := &aiinterface.ClientError{Type: aiinterface.ErrorTypeAuth, Message: "bad key"}
	err := Do(context.Background(), Policy{MaxAttempts: 5}, func(ctx context.Context) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{MaxAttempts: 3}, func(ctx context.Context) error {
		calls++
		return &httputil.StatusError{StatusCode: 503}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Policy{MaxAttempts: 3, InitialDelay: time.Hour}, func(ctx context.Context) error {
		calls++
		cancel()
		return &httputil.StatusError{StatusCode: 502}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"429", &httputil.StatusError{StatusCode: 429}, true},
		{"404", &httputil.StatusError{StatusCode: 404}, false},
		{"500", &httputil.StatusError{StatusCode: 500}, true},
		{"network", &aiinterface.ClientError{Type: aiinterface.ErrorTypeNetwork}, true},
		{"params", &aiinterface.ClientError{Type: aiinterface.ErrorTypeInvalidParams}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}
