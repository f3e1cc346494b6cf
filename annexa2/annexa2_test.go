package annexa2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEmptyBuffer(t *testing.T) {
	_, _, err := Decode(nil)
	assert.ErrorIs(t, err, ErrEmptyBuffer)
}

func TestDecodeNoSelectorByteDefaultsToAnnexA1(t *testing.T) {
	// Bytes >= 0x20 carry no selector at all; the byte itself is the
	// first character of text under the default table.
	s, sel, err := Decode([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, SelectorDefault, sel)
	assert.Equal(t, "hello", s)
}

func TestDecodeSelectorZeroIsReservedEmpty(t *testing.T) {
	s, sel, err := Decode([]byte{0x00, 'x'})
	require.NoError(t, err)
	assert.Equal(t, SelectorZero, sel)
	assert.Empty(t, s)
}

func TestDecodeUTF8Selector(t *testing.T) {
	s, sel, err := Decode(append([]byte{0x15}, []byte("café")...))
	require.NoError(t, err)
	assert.Equal(t, SelectorTableA3, sel)
	assert.Equal(t, "café", s)
}

func TestDecodeTableA3ISO8859_7(t *testing.T) {
	// 0xe1 in ISO-8859-7 (Greek) is alpha (U+03B1).
	s, sel, err := Decode([]byte{0x03, 0xe1})
	require.NoError(t, err)
	assert.Equal(t, SelectorTableA3, sel)
	assert.Equal(t, "α", s)
}

func TestDecodeTableA3UnknownSelectorByte(t *testing.T) {
	_, _, err := Decode([]byte{0x07, 0x41})
	assert.ErrorIs(t, err, ErrUnexpectedSelectorByte)
}

func TestDecodeTableA4ThreeByteUTF8Quirk(t *testing.T) {
	s, sel, err := Decode([]byte{0x10, 0x00, 0x01, 'o', 'k'})
	require.NoError(t, err)
	assert.Equal(t, SelectorTableA4, sel)
	assert.Equal(t, "ok", s)
}

func TestDecodeTableA4ISO88592(t *testing.T) {
	// 0xe1 in ISO-8859-2 (Latin-2) is á (U+00E1).
	s, sel, err := Decode([]byte{0x10, 0x00, 0x02, 0xe1})
	require.NoError(t, err)
	assert.Equal(t, SelectorTableA4, sel)
	assert.Equal(t, "á", s)
}

func TestDecodeTableA4TooShort(t *testing.T) {
	_, _, err := Decode([]byte{0x10, 0x00})
	assert.ErrorIs(t, err, ErrInvalidThreeByteSelector)
}

func TestDecodeTableA4UnknownPair(t *testing.T) {
	_, _, err := Decode([]byte{0x10, 0xff, 0xff, 'z'})
	assert.ErrorIs(t, err, ErrInvalidThreeByteSelector)
}

func TestDecodeUCS2Selector(t *testing.T) {
	// "hi" as big-endian UTF-16.
	buf := []byte{0x11, 0x00, 'h', 0x00, 'i'}
	s, sel, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, SelectorUCS2, sel)
	assert.Equal(t, "hi", s)
}

func TestDecodeKSX1001Selector(t *testing.T) {
	// 0x41 is plain ASCII 'A' under EUC-KR too.
	s, sel, err := Decode([]byte{0x12, 0x41})
	require.NoError(t, err)
	assert.Equal(t, SelectorTableA3, sel)
	assert.Equal(t, "A", s)
}
