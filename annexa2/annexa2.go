// Package annexa2 decodes DVB-SI text fields per ETSI EN 300 468 Annex
// A.2: a leading selector byte (or byte sequence) names the character
// table the remaining bytes are encoded in, defaulting to the Annex A.1
// table when no selector is present. Grounded on
// original_source/src/annex_a2.rs's TableA3/TableA4/AnnexA2 selector
// logic, built on golang.org/x/text's charset decoders instead of a
// hand-rolled table (ausocean-av's go.mod is this pack's example of
// reaching for x/text for charset work).
package annexa2

import (
	"bytes"
	"errors"
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// Sentinel errors (spec §7's Text error kind, carried per SPEC_FULL.md §7).
var (
	ErrEmptyBuffer              = errors.New("annexa2: empty buffer")
	ErrUnsupportedEncoding      = errors.New("annexa2: selector names an encoding with no decoder")
	ErrDecodeFailure            = errors.New("annexa2: decoding text failed")
	ErrUnexpectedSelectorByte   = errors.New("annexa2: unexpected table A.3 selector byte")
	ErrInvalidThreeByteSelector = errors.New("annexa2: invalid table A.4 three-byte selector")
)

// tableA4SyncByte is the fixed first byte of a three-byte Table A.4
// selector (original_source's TableA3::SYNC_BYTE).
const tableA4SyncByte = 0x10

// tableA3 maps a single-byte Annex A.2 selector to its x/text decoder,
// mirroring original_source's TableA3::encoding match arm by arm.
var tableA3 = map[byte]encoding.Encoding{
	0x01: charmap.ISO8859_5,
	0x02: charmap.ISO8859_6,
	0x03: charmap.ISO8859_7,
	0x04: charmap.ISO8859_8,
	0x05: charmap.ISO8859_9,
	0x06: charmap.ISO8859_10,
	// 0x07 (ISO/IEC 8859-11 / Thai) has no charmap decoder in x/text.
	0x09: charmap.ISO8859_13,
	0x0a: charmap.ISO8859_14,
	0x0b: charmap.ISO8859_15,
	0x13: simplifiedchinese.GBK, // GBK decodes GB-2312 (EUC-CN) bytes as a superset
	0x14: traditionalchinese.Big5,
}

// tableA4 maps a (second, third) selector byte pair to its decoder,
// mirroring original_source's TableA4::encoding.
var tableA4 = map[[2]byte]encoding.Encoding{
	{0x00, 0x01}: unicode.UTF8, // original_source maps this arm to UTF-8 directly
	{0x00, 0x02}: charmap.ISO8859_2,
	{0x00, 0x03}: charmap.ISO8859_3,
	{0x00, 0x04}: charmap.ISO8859_4,
	{0x00, 0x05}: charmap.ISO8859_5,
	{0x00, 0x06}: charmap.ISO8859_6,
	{0x00, 0x07}: charmap.ISO8859_7,
	{0x00, 0x08}: charmap.ISO8859_8,
	{0x00, 0x0a}: charmap.ISO8859_10,
	{0x00, 0x0d}: charmap.ISO8859_13,
	{0x00, 0x0e}: charmap.ISO8859_14,
	{0x00, 0x0f}: charmap.ISO8859_15,
}

// Selector identifies which Annex A.2 table produced a Decode result,
// useful for callers that want to report what encoding was used.
type Selector uint8

const (
	SelectorDefault Selector = iota // Annex A.1 default table
	SelectorZero                    // reserved selector byte 0x00
	SelectorTableA3
	SelectorTableA4
	SelectorUCS2
	SelectorReserved
)

// selectorKSX1001, selectorUCS2 and selectorUTF8 are single-byte Table
// A.3 arms handled outside tableA3. x/text has no direct KS X 1001
// decoder, so selectorKSX1001 decodes via EUC-KR, the nearest available
// superset the korean package offers.
const (
	selectorKSX1001 = 0x12
	selectorUCS2    = 0x11
	selectorUTF8    = 0x15
)

// Decode interprets buf per Annex A.2: buf[0] (or buf[0:3] for the
// Table A.4 three-byte form) selects a character table, and the
// remainder is decoded into a UTF-8 string. Bytes with the high bit
// selector range (0x20-0xFF) carry no selector and decode under the
// Annex A.1 default table directly.
func Decode(buf []byte) (string, Selector, error) {
	if len(buf) == 0 {
		return "", SelectorDefault, ErrEmptyBuffer
	}

	switch {
	case buf[0] == 0x00:
		return "", SelectorZero, nil
	case buf[0] >= 0x20:
		return decodeWith(defaultTable, buf, SelectorDefault)
	case buf[0] == selectorUCS2:
		return decodeWith(unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), buf[1:], SelectorUCS2)
	case buf[0] == selectorUTF8:
		return string(buf[1:]), SelectorTableA3, nil
	case buf[0] == selectorKSX1001:
		return decodeWith(korean.EUCKR, buf[1:], SelectorTableA3)
	case buf[0] == tableA4SyncByte:
		return decodeTableA4(buf)
	default:
		enc, ok := tableA3[buf[0]]
		if !ok {
			return "", SelectorReserved, fmt.Errorf("%w: 0x%02x", ErrUnexpectedSelectorByte, buf[0])
		}
		return decodeWith(enc, buf[1:], SelectorTableA3)
	}
}

func decodeTableA4(buf []byte) (string, Selector, error) {
	if len(buf) < 3 {
		return "", SelectorReserved, fmt.Errorf("%w: need 3 bytes, have %d", ErrInvalidThreeByteSelector, len(buf))
	}
	key := [2]byte{buf[1], buf[2]}
	enc, ok := tableA4[key]
	if !ok {
		return "", SelectorReserved, fmt.Errorf("%w: 0x%02x 0x%02x", ErrInvalidThreeByteSelector, buf[1], buf[2])
	}
	return decodeWith(enc, buf[3:], SelectorTableA4)
}

func decodeWith(enc encoding.Encoding, buf []byte, sel Selector) (string, Selector, error) {
	out, err := enc.NewDecoder().Bytes(buf)
	if err != nil {
		return "", sel, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	return string(bytes.TrimRight(out, "\x00")), sel, nil
}

// defaultTable is the Annex A.1 default table (ISO/IEC 6937 modified
// with DVB's Latin accent/symbol extensions in the 0x80-0x9F range).
// x/text carries no ISO/IEC 6937 decoder, so the Latin-1-compatible
// subset is used for the common case; characters in DVB's private
// accent-combining range are passed through unmodified rather than
// failing the whole decode — good enough for display, not a full
// implementation of the accent-combining algorithm Annex A.1 describes.
var defaultTable = charmap.ISO8859_1
