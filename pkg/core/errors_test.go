package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryErrorFormat(t *testing.T) {
	err := &MemoryError{Op: "AddMemory", Err: ErrInvalidInput}
	assert.Equal(t, "recallmem: AddMemory: invalid input", err.Error())
}

func TestMemoryErrorUnwrap(t *testing.T) {
	err := NewMemoryError("GetMemory", ErrNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	var memErr *MemoryError
	assert.True(t, errors.As(err, &memErr))
	assert.Equal(t, "GetMemory", memErr.Op)
}

func TestNewMemoryErrorNil(t *testing.T) {
	assert.Nil(t, NewMemoryError("AddMemory", nil))
}
