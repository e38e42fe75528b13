package stegoerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFormatsMessage(t *testing.T) {
	err := New(KindImageTooSmall, "stego.Encode", "image %s too small", "a.png")
	assert.Equal(t, "stego.Encode: ImageTooSmall: image a.png too small", err.Error())
	assert.Equal(t, KindImageTooSmall, err.Kind)
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(KindIOError, "op", nil))
}

func TestWrapPreservesUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindIOError, "fsops.WriteFileAtomic", cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	base := New(KindCorruptPayload, "dirtree.Deserialize", "truncated")
	wrapped := fmt.Errorf("decode failed: %w", base)
	assert.True(t, Is(wrapped, KindCorruptPayload))
	assert.False(t, Is(wrapped, KindIOError))
}

func TestIsReturnsFalseForPlainError(t *testing.T) {
	assert.False(t, Is(errors.New("plain"), KindIOError))
}
