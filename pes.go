package tsdemux

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
)

// PTS/DTS indicator values (spec §4.3).
const (
	ptsDTSIndicatorNoPTSOrDTS  = 0
	ptsDTSIndicatorIsForbidden = 1
	ptsDTSIndicatorOnlyPTS     = 2
	ptsDTSIndicatorBothPresent = 3
)

// Trick mode controls.
const (
	TrickModeControlFastForward = 0
	TrickModeControlSlowMotion  = 1
	TrickModeControlFreezeFrame = 2
	TrickModeControlFastReverse = 3
	TrickModeControlSlowReverse = 4
)

// PESHeader represents a packet's PES header (spec §4.3).
// https://en.wikipedia.org/wiki/Packetized_elementary_stream
type PESHeader struct {
	OptionalHeader *PESOptionalHeader
	PacketLength   uint16
	StreamID       StreamID
}

// PESOptionalHeader represents the optional PES header that category-1
// stream_ids carry, those for which StreamID.HasOptionalHeader is true
// (spec §4.3.a).
type PESOptionalHeader struct {
	MarkerBits             uint8
	ScramblingControl      uint8
	Priority               bool
	DataAlignmentIndicator bool
	IsCopyrighted          bool
	IsOriginal             bool

	PTSDTSIndicator       uint8
	HasESCR               bool
	HasESRate             bool
	HasDSMTrickMode       bool
	HasAdditionalCopyInfo bool
	HasCRC                bool
	HasExtension          bool

	HeaderLength uint8

	PTS                *ClockReference
	DTS                *ClockReference
	ESCR               *ClockReference
	ESRate             uint32
	DSMTrickMode       *DSMTrickMode
	AdditionalCopyInfo uint8
	CRC                uint16
}

// DSMTrickMode represents a DSM trick mode field.
// https://patents.google.com/patent/US8213779B2/en
type DSMTrickMode struct {
	TrickModeControl    uint8
	FieldID             uint8
	IntraSliceRefresh   bool
	FrequencyTruncation uint8
	RepeatControl       uint8
}

// parsePESHeader parses a PES header starting right after the 3-byte
// packet_start_code_prefix, returning the bit offset the access-unit
// payload starts and ends at (spec §4.3).
func parsePESHeader(r *bitio.CountReader, payloadLength int64) (h *PESHeader, dataStart, dataEnd int64, err error) {
	h = &PESHeader{}

	h.StreamID = StreamID(r.TryReadByte())
	h.PacketLength = uint16(r.TryReadBits(16))

	if h.PacketLength > 0 {
		dataEnd = r.BitsCount + int64(h.PacketLength)*8
	} else {
		dataEnd = payloadLength
	}

	if h.StreamID.HasOptionalHeader() {
		h.OptionalHeader, dataStart, err = parsePESOptionalHeader(r)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("parsing PES optional header: %w", err)
		}
	} else {
		dataStart = r.BitsCount
	}
	return h, dataStart, dataEnd, r.TryError
}

func parsePESOptionalHeader(r *bitio.CountReader) (*PESOptionalHeader, int64, error) {
	h := &PESOptionalHeader{}

	h.MarkerBits = uint8(r.TryReadBits(2))
	h.ScramblingControl = uint8(r.TryReadBits(2))
	h.Priority = r.TryReadBool()
	h.DataAlignmentIndicator = r.TryReadBool()
	h.IsCopyrighted = r.TryReadBool()
	h.IsOriginal = r.TryReadBool()

	h.PTSDTSIndicator = uint8(r.TryReadBits(2))
	h.HasESCR = r.TryReadBool()
	h.HasESRate = r.TryReadBool()
	h.HasDSMTrickMode = r.TryReadBool()
	h.HasAdditionalCopyInfo = r.TryReadBool()
	h.HasCRC = r.TryReadBool()
	h.HasExtension = r.TryReadBool()

	h.HeaderLength = r.TryReadByte()
	dataStart := r.BitsCount + int64(h.HeaderLength)*8

	var err error
	if h.PTSDTSIndicator == ptsDTSIndicatorOnlyPTS {
		_ = r.TryReadBits(4)
		if h.PTS, err = parsePTSOrDTS(r); err != nil {
			return nil, 0, fmt.Errorf("parsing PTS: %w", err)
		}
	} else if h.PTSDTSIndicator == ptsDTSIndicatorBothPresent {
		_ = r.TryReadBits(4)
		if h.PTS, err = parsePTSOrDTS(r); err != nil {
			return nil, 0, fmt.Errorf("parsing PTS: %w", err)
		}
		_ = r.TryReadBits(4)
		if h.DTS, err = parsePTSOrDTS(r); err != nil {
			return nil, 0, fmt.Errorf("parsing DTS: %w", err)
		}
	}

	if h.HasESCR {
		if h.ESCR, err = parseESCR(r); err != nil {
			return nil, 0, fmt.Errorf("parsing ESCR: %w", err)
		}
	}

	if h.HasESRate {
		_ = r.TryReadBool()
		h.ESRate = uint32(r.TryReadBits(22))
		_ = r.TryReadBool()
	}

	if h.HasDSMTrickMode {
		if h.DSMTrickMode, err = parseDSMTrickMode(r); err != nil {
			return nil, 0, fmt.Errorf("parsing DSM trick mode: %w", err)
		}
	}

	if h.HasAdditionalCopyInfo {
		_ = r.TryReadBool()
		h.AdditionalCopyInfo = uint8(r.TryReadBits(7))
	}

	if h.HasCRC {
		h.CRC = uint16(r.TryReadBits(16))
	}

	return h, dataStart, r.TryError
}

func parseDSMTrickMode(r *bitio.CountReader) (*DSMTrickMode, error) {
	m := &DSMTrickMode{}
	m.TrickModeControl = uint8(r.TryReadBits(3))

	switch m.TrickModeControl {
	case TrickModeControlFastForward, TrickModeControlFastReverse:
		m.FieldID = uint8(r.TryReadBits(2))
		m.IntraSliceRefresh = r.TryReadBool()
		m.FrequencyTruncation = uint8(r.TryReadBits(2))
	case TrickModeControlFreezeFrame:
		m.FieldID = uint8(r.TryReadBits(2))
		_ = r.TryReadBits(3)
	case TrickModeControlSlowMotion, TrickModeControlSlowReverse:
		m.RepeatControl = uint8(r.TryReadBits(5))
	default:
		_ = r.TryReadBits(5)
	}
	return m, r.TryError
}

// readPTSOrDTSBase reads the 33-bit base shared by PTS, DTS and ESCR,
// interleaved with 3 marker bits (spec §4.3).
func readPTSOrDTSBase(r *bitio.CountReader) (int64, error) {
	buf := &bytes.Buffer{}
	w := bitio.NewWriter(buf)

	w.TryWriteBits(r.TryReadBits(3), 3)
	_ = r.TryReadBool()
	w.TryWriteBits(r.TryReadBits(15), 15)
	_ = r.TryReadBool()
	w.TryWriteBits(r.TryReadBits(15), 15)
	_ = r.TryReadBool()

	if r.TryError != nil {
		return 0, fmt.Errorf("read: %w", r.TryError)
	}
	if w.TryError != nil {
		return 0, fmt.Errorf("write: %w", w.TryError)
	}
	if _, err := w.Align(); err != nil {
		return 0, fmt.Errorf("align: %w", err)
	}

	base, err := bitio.NewReader(buf).ReadBits(33)
	if err != nil {
		return 0, fmt.Errorf("base: %w", err)
	}
	return int64(base), nil
}

func parsePTSOrDTS(r *bitio.CountReader) (*ClockReference, error) {
	base, err := readPTSOrDTSBase(r)
	if err != nil {
		return nil, err
	}
	cr := newClockReference(base, 0)
	return &cr, nil
}

func parseESCR(r *bitio.CountReader) (*ClockReference, error) {
	_ = r.TryReadBits(2)
	base, err := readPTSOrDTSBase(r)
	if err != nil {
		return nil, err
	}
	ext := int64(r.TryReadBits(9))
	_ = r.TryReadBool()
	cr := newClockReference(base, ext)
	return &cr, r.TryError
}
