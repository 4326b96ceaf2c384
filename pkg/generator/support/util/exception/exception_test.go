package exception

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
)

func TestGenerationErrorMatchesKindSentinel(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStorageWriteError("occurrence", "insert failed", cause)

	assert.ErrorIs(t, err, ErrStorageWrite)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Equal(t, "[occurrence] StorageWriteError: insert failed: disk full", err.Error())
}

func TestKindOfSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewSchedulingError("coordinator", "queue down", nil))

	assert.Equal(t, KindScheduling, KindOf(err))
	assert.ErrorIs(t, err, ErrScheduling)
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestNewGenerationErrorfExtractsTrailingError(t *testing.T) {
	err := NewGenerationErrorf(KindValidation, "model", "bad quantity for %s", "venues", context.Canceled)

	assert.Equal(t, "bad quantity for venues", err.Message)
	assert.Equal(t, context.Canceled, err.OriginalErr)
	assert.NotEmpty(t, err.StackTrace)
}

func TestValidationWrapsMultierror(t *testing.T) {
	var merr *multierror.Error
	merr = multierror.Append(merr, errors.New("a"), errors.New("b"))
	err := NewValidationError("model", "invalid request", merr.ErrorOrNil())

	var got *multierror.Error
	assert.True(t, errors.As(err, &got))
	assert.Len(t, got.Errors, 2)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewStorageWriteError("m", "x", nil)))
	assert.False(t, IsRetryable(NewValidationError("m", "x", nil)))
	assert.False(t, IsRetryable(NewUnsupportedFastPathError("m", "x")))
	assert.True(t, IsRetryable(errors.New("dial tcp: connection refused")))
	assert.False(t, IsRetryable(nil))
}

func TestExtractErrorMessage(t *testing.T) {
	assert.Equal(t, "queue down", ExtractErrorMessage(fmt.Errorf("wrap: %w", NewSchedulingError("c", "queue down", nil))))
	assert.Equal(t, "plain", ExtractErrorMessage(errors.New("plain")))
	assert.Equal(t, "", ExtractErrorMessage(nil))
}
