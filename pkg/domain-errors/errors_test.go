package dErrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct code", func(t *testing.T) {
		err := New(CodeConflict, "lost the race")
		assert.True(t, HasCode(err, CodeConflict))
		assert.False(t, HasCode(err, CodeForbidden))
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("request transition: %w", New(CodeInvalidTransition, "approved -> rejected"))
		assert.True(t, HasCode(err, CodeInvalidTransition))
	})

	t.Run("matches nested domain wrap", func(t *testing.T) {
		inner := New(CodeNotFound, "subject missing")
		outer := Wrap(inner, CodeInternal, "load subject")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeNotFound))
	})

	t.Run("nil error carries no code", func(t *testing.T) {
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("preserves cause for errors.Is", func(t *testing.T) {
		cause := errors.New("driver timeout")
		err := Wrap(cause, CodeTimeout, "store unavailable")
		require.Error(t, err)
		assert.True(t, errors.Is(err, cause))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeForbidden, CodeOf(New(CodeForbidden, "denied")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}
