package toolerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsMessageWhenEmpty(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "tool error", New("").Message)
	assert.Equal(t, "boom", New("boom").Message)
}

func TestNewWithCause_WrapsUnderlyingError(t *testing.T) {
	t.Parallel()
	cause := errors.New("network unreachable")
	te := NewWithCause("fetch failed", cause)
	require.NotNil(t, te.Cause)
	assert.Equal(t, "fetch failed", te.Message)
	assert.Equal(t, "network unreachable", te.Cause.Message)
}

func TestNewWithCause_DefaultsMessageToCauseWhenEmpty(t *testing.T) {
	t.Parallel()
	te := NewWithCause("", errors.New("root cause"))
	assert.Equal(t, "root cause", te.Message)
}

func TestFromError_NilIsNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, FromError(nil))
}

func TestFromError_PreservesExistingToolErrorChain(t *testing.T) {
	t.Parallel()
	original := NewWithCause("outer", errors.New("inner"))
	assert.Same(t, original, FromError(original))
}

func TestFromError_WrapsStandardErrorChain(t *testing.T) {
	t.Parallel()
	inner := errors.New("disk full")
	outer := fmt.Errorf("write failed: %w", inner)

	te := FromError(outer)
	require.NotNil(t, te)
	assert.Equal(t, "write failed: disk full", te.Message)
	require.NotNil(t, te.Cause)
	assert.Equal(t, "disk full", te.Cause.Message)
}

func TestErrorf_FormatsMessage(t *testing.T) {
	t.Parallel()
	te := Errorf("attempt %d of %d failed", 2, 3)
	assert.Equal(t, "attempt 2 of 3 failed", te.Message)
}

func TestToolError_ErrorOnNilReceiverIsEmptyString(t *testing.T) {
	t.Parallel()
	var te *ToolError
	assert.Equal(t, "", te.Error())
	assert.Nil(t, te.Unwrap())
}

func TestToolError_UnwrapSupportsErrorsIs(t *testing.T) {
	t.Parallel()
	sentinel := errors.New("sentinel")
	te := NewWithCause("outer", sentinel)
	assert.True(t, errors.Is(te, te.Cause))
}
