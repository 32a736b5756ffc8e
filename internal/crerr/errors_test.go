package crerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsIsMatchesCode(t *testing.T) {
	err := fmt.Errorf("set limit: %w", InvalidArgument("limit must be > 0, got %d", 0))

	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.True(t, IsInvalidArgument(err))
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))
}

func TestErrorMessage(t *testing.T) {
	err := NotFound("abc")

	assert.Equal(t, `NOT_FOUND: no entry for identifier "abc"`, err.Error())
	assert.Equal(t, "abc", err.Details["identifier"])
}

func TestUnsupportedTypeNamesType(t *testing.T) {
	err := UnsupportedType("Binary", "cannot be mapped")

	assert.True(t, IsUnsupportedType(err))
	assert.Contains(t, err.Error(), "Binary")
	assert.Equal(t, "Binary", err.Details["type"])
}

func TestCodeOfForeignError(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(errors.New("boom")))
	assert.False(t, IsNotSupported(nil))
}
