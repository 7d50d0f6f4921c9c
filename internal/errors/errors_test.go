package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	err := NotFound("no project for repo %s", "https://github.com/a/b")
	assert.Equal(t, "no project for repo https://github.com/a/b", err.Error())

	cause := stderrors.New("connection refused")
	wrapped := WrapExternal(cause, "create challenge")
	assert.Equal(t, "create challenge: connection refused", wrapped.Error())
	assert.True(t, stderrors.Is(wrapped, cause))
}

func TestGetKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("bad payload"), KindValidation},
		{"not found", NotFound("missing"), KindNotFound},
		{"external", ExternalAPI("remote down"), KindExternalAPI},
		{"internal dependency", InternalDependency("creation pending"), KindInternalDependency},
		{"conflict", Conflict("duplicate"), KindConflict},
		{"fatal", Fatal("invariant broken"), KindFatal},
		{"plain error", stderrors.New("boom"), KindFatal},
		{"wrapped in fmt", fmt.Errorf("context: %w", Conflict("dup")), KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetKind(tt.err))
		})
	}
}

func TestIsRescheduleable(t *testing.T) {
	assert.True(t, IsRescheduleable(ExternalAPI("remote down")))
	assert.True(t, IsRescheduleable(InternalDependency("pending")))
	assert.True(t, IsRescheduleable(Conflict("in progress")))
	assert.False(t, IsRescheduleable(Validation("bad")))
	assert.False(t, IsRescheduleable(NotFound("missing")))
	assert.False(t, IsRescheduleable(Fatal("bug")))

	// Unclassified errors are retried rather than dropped.
	assert.True(t, IsRescheduleable(stderrors.New("who knows")))
}

func TestKindString(t *testing.T) {
	require.Equal(t, "ExternalApi", KindExternalAPI.String())
	require.Equal(t, "Conflict", KindConflict.String())
	require.Equal(t, "Unknown", Kind(42).String())
}
