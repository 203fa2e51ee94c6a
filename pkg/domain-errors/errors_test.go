package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"asamblea/pkg/platform/sentinel"
)

func TestWrapPreservesCause(t *testing.T) {
	err := Wrap(fmt.Errorf("find record: %w", sentinel.ErrNotFound), CodeNotFound, "property not found")

	assert.True(t, HasCode(err, CodeNotFound))
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))
	assert.Equal(t, "property not found", MessageOf(err))
	assert.Contains(t, err.Error(), "find record")
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeInternal, "nothing"))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(New(CodeValidation, "document is required")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))

	outer := fmt.Errorf("resolve: %w", New(CodeRegistrationClosed, "closed"))
	assert.Equal(t, CodeRegistrationClosed, CodeOf(outer))
	assert.True(t, Is(outer, CodeRegistrationClosed))
	assert.False(t, Is(outer, CodeNotFound))
}
