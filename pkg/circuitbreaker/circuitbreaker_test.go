package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func fail() (int, error) { return 0, errBoom }
func ok() (int, error)   { return 42, nil }

func TestBreakerLifecycle(t *testing.T) {
	var transitions []string
	now := time.Now()
	cb := New(2, 2, time.Minute, WithName("pdf"), WithStateChange(func(name string, from, to State) {
		transitions = append(transitions, name+":"+from.String()+"->"+to.String())
	}))
	cb.now = func() time.Time { return now }

	_, err := Execute(cb, fail)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, Closed, cb.State())
	_, err = Execute(cb, fail)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, Open, cb.State())

	_, err = Execute(cb, ok)
	require.ErrorIs(t, err, ErrCircuitOpen)

	now = now.Add(2 * time.Minute)
	v, err := Execute(cb, ok)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, HalfOpen, cb.State())
	_, err = Execute(cb, ok)
	require.NoError(t, err)
	assert.Equal(t, Closed, cb.State())

	assert.Equal(t, []string{
		"pdf:Closed->Open",
		"pdf:Open->Half-Open",
		"pdf:Half-Open->Closed",
	}, transitions)
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	cb := New(1, 3, time.Second)
	cb.now = func() time.Time { return now }

	require.Error(t, cb.Do(func() error { return errBoom }))
	now = now.Add(2 * time.Second)
	require.Error(t, cb.Do(func() error { return errBoom }))
	assert.Equal(t, Open, cb.State())
}

func TestSuccessResetsFailures(t *testing.T) {
	cb := New(2, 1, time.Minute)
	_ = cb.Do(func() error { return errBoom })
	_ = cb.Do(func() error { return nil })
	_ = cb.Do(func() error { return errBoom })
	assert.Equal(t, Closed, cb.State())
}
