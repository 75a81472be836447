package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrappedError(t *testing.T) {
	base := NotFoundf("store.GetBook", "libro %s no encontrado", "abc")
	wrapped := fmt.Errorf("loading edit form: %w", base)

	assert.Equal(t, NotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, NotFound))
	assert.False(t, Is(wrapped, Validation))
	assert.Equal(t, "libro abc no encontrado", UserMessage(wrapped, "fallback"))
}

func TestKindOfPlainErrorIsInternal(t *testing.T) {
	err := errors.New("disk on fire")

	assert.Equal(t, Internal, KindOf(err))
	assert.Equal(t, "fallback", UserMessage(err, "fallback"))
	assert.False(t, Is(nil, Internal))
}

func TestErrorStringAndUnwrap(t *testing.T) {
	err := Wrap(Internal, "store.ListBooks", "", sql.ErrConnDone)

	assert.Equal(t, "store.ListBooks: internal: "+sql.ErrConnDone.Error(), err.Error())
	assert.ErrorIs(t, err, sql.ErrConnDone)

	plain := E(InsufficientStock, "", "sin stock")
	assert.Equal(t, "sin stock", plain.Error())
	assert.Equal(t, "insufficient_stock", plain.Kind.String())
}
