package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"alert-service/internal/logging"
)

var errTemporary = errors.New("temporary")

func isTemporary(err error) bool { return errors.Is(err, errTemporary) }

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(logging.Discard(), 3, 0, isTemporary, func() error {
		calls++
		if calls == 1 {
			return errTemporary
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetrySkipsPermanentErrors(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	err := Retry(logging.Discard(), 3, 0, isTemporary, func() error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryBounded(t *testing.T) {
	calls := 0
	err := Retry(logging.Discard(), 2, 0, isTemporary, func() error {
		calls++
		return errTemporary
	})
	assert.ErrorIs(t, err, errTemporary)
	assert.Equal(t, 2, calls)
}
