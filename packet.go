package tsdemux

// MpegTsPacketSize is the fixed size of a transport-stream packet.
const MpegTsPacketSize = 188

// syncByte is the fixed first byte of every transport-stream packet.
const syncByte = 0x47

// Scrambling controls. Page: 19 | Chapter: 2.4.3.3 | ISO/IEC 13818-1.
const (
	ScramblingControlNotScrambled         uint8 = 0
	ScramblingControlReservedForFutureUse uint8 = 1
	ScramblingControlScrambledWithEvenKey uint8 = 2
	ScramblingControlScrambledWithOddKey  uint8 = 3
)

// Packet is a decoded view over one 188-byte transport-stream packet.
// Bytes retains the whole packet; Payload, when present, is a slice of
// Bytes starting right after the header/adaptation field, with no
// pointer_field adjustment applied (see PayloadSection/PayloadPES).
type Packet struct {
	AdaptationField *PacketAdaptationField
	Bytes           []byte
	Header          PacketHeader
	Payload         []byte
}

// PacketHeader is the fixed 4-byte transport-stream packet header.
type PacketHeader struct {
	ContinuityCounter          uint8
	HasAdaptationField         bool
	HasPayload                 bool
	PayloadUnitStartIndicator  bool
	PID                        PID
	TransportErrorIndicator    bool
	TransportPriority          bool
	TransportScramblingControl uint8
}

// PacketAdaptationField is the optional adaptation field carried after
// the header when HasAdaptationField is set.
type PacketAdaptationField struct {
	AdaptationExtensionField          *PacketAdaptationExtensionField
	DiscontinuityIndicator            bool
	ElementaryStreamPriorityIndicator bool
	HasAdaptationExtensionField       bool
	HasOPCR                           bool
	HasPCR                            bool
	HasSplicingCountdown              bool
	HasTransportPrivateData           bool
	Length                            int
	OPCR                              *ClockReference
	PCR                               *ClockReference
	RandomAccessIndicator             bool
	SpliceCountdown                   int8
	TransportPrivateData              []byte
	TransportPrivateDataLength        int
}

// PacketAdaptationExtensionField is the optional extension nested
// inside the adaptation field.
type PacketAdaptationExtensionField struct {
	DTSNextAccessUnit      *ClockReference
	HasLegalTimeWindow     bool
	HasPiecewiseRate       bool
	HasSeamlessSplice      bool
	LegalTimeWindowIsValid bool
	LegalTimeWindowOffset  uint16
	Length                 int
	PiecewiseRate          uint32
	SpliceType             uint8
}

// parsePacket validates and decodes one transport-stream packet. It
// fails with ErrBadPacketSize if len(i) != 188 and ErrBadSyncByte if
// i[0] != 0x47, per spec §4.1.
func parsePacket(i []byte) (*Packet, error) {
	if len(i) != MpegTsPacketSize {
		return nil, ErrBadPacketSize
	}
	if i[0] != syncByte {
		return nil, ErrBadSyncByte
	}

	p := &Packet{Bytes: i}
	p.Header = parsePacketHeader(i)

	if p.Header.HasAdaptationField {
		if len(i) < 5 {
			return nil, ErrBufferTooSmall
		}
		p.AdaptationField = parsePacketAdaptationField(i[4:])
	}

	if p.Header.HasPayload {
		off := payloadOffset(p.Header, p.AdaptationField)
		if off > len(i) {
			return nil, ErrBufferTooSmall
		}
		p.Payload = i[off:]
	}
	return p, nil
}

// payloadOffset returns the offset of the raw payload within the
// packet, before any pointer_field adjustment (spec §4.1).
func payloadOffset(h PacketHeader, a *PacketAdaptationField) int {
	offset := 4
	if h.HasAdaptationField {
		offset += 1 + a.Length
	}
	return offset
}

// PayloadSection returns the payload with the section pointer_field
// adjustment applied: on a PUSI packet, the byte at the payload start
// names how many bytes to skip before the section proper begins (spec
// §4.1, "For section consumers..."). Returns (nil, false) if the packet
// carries no payload.
func (p *Packet) PayloadSection() ([]byte, bool) {
	if p.Payload == nil {
		return nil, false
	}
	if !p.Header.PayloadUnitStartIndicator {
		return p.Payload, true
	}
	if len(p.Payload) < 1 {
		return nil, false
	}
	ptr := int(p.Payload[0])
	start := 1 + ptr
	if start > len(p.Payload) {
		return nil, false
	}
	return p.Payload[start:], true
}

// PayloadPES returns the payload with no pointer_field adjustment
// applied, as spec §4.1 requires for PES consumers. Returns (nil,
// false) if the packet carries no payload.
func (p *Packet) PayloadPES() ([]byte, bool) {
	if p.Payload == nil {
		return nil, false
	}
	return p.Payload, true
}

// parsePacketHeader parses the 4-byte packet header (spec §4.1 bit layout).
func parsePacketHeader(i []byte) PacketHeader {
	return PacketHeader{
		TransportErrorIndicator:    i[1]&0x80 > 0,
		PayloadUnitStartIndicator:  i[1]&0x40 > 0,
		TransportPriority:         i[1]&0x20 > 0,
		PID:                        PID(uint16(i[1]&0x1f)<<8 | uint16(i[2])),
		TransportScramblingControl: uint8(i[3]) >> 6 & 0x3,
		HasAdaptationField:         i[3]&0x20 > 0,
		HasPayload:                 i[3]&0x10 > 0,
		ContinuityCounter:          uint8(i[3] & 0xf),
	}
}

// parsePacketAdaptationField parses the adaptation field starting at
// its length byte (spec §4.1).
func parsePacketAdaptationField(i []byte) *PacketAdaptationField {
	a := &PacketAdaptationField{}
	var offset int

	a.Length = int(i[offset])
	offset++

	if a.Length <= 0 || offset >= len(i) {
		return a
	}

	a.DiscontinuityIndicator = i[offset]&0x80 > 0
	a.RandomAccessIndicator = i[offset]&0x40 > 0
	a.ElementaryStreamPriorityIndicator = i[offset]&0x20 > 0
	a.HasPCR = i[offset]&0x10 > 0
	a.HasOPCR = i[offset]&0x08 > 0
	a.HasSplicingCountdown = i[offset]&0x04 > 0
	a.HasTransportPrivateData = i[offset]&0x02 > 0
	a.HasAdaptationExtensionField = i[offset]&0x01 > 0
	offset++

	if a.HasPCR && offset+6 <= len(i) {
		pcr := parsePCR(i[offset:])
		a.PCR = &pcr
		offset += 6
	}

	if a.HasOPCR && offset+6 <= len(i) {
		opcr := parsePCR(i[offset:])
		a.OPCR = &opcr
		offset += 6
	}

	if a.HasSplicingCountdown && offset < len(i) {
		a.SpliceCountdown = int8(i[offset])
		offset++
	}

	if a.HasTransportPrivateData && offset < len(i) {
		a.TransportPrivateDataLength = int(i[offset])
		offset++
		if a.TransportPrivateDataLength > 0 && offset+a.TransportPrivateDataLength <= len(i) {
			a.TransportPrivateData = i[offset : offset+a.TransportPrivateDataLength]
			offset += a.TransportPrivateDataLength
		}
	}

	if a.HasAdaptationExtensionField && offset < len(i) {
		a.AdaptationExtensionField = parsePacketAdaptationExtensionField(i[offset:])
	}

	return a
}

func parsePacketAdaptationExtensionField(i []byte) *PacketAdaptationExtensionField {
	e := &PacketAdaptationExtensionField{Length: int(i[0])}
	if e.Length <= 0 || len(i) < 2 {
		return e
	}

	offset := 1
	e.HasLegalTimeWindow = i[offset]&0x80 > 0
	e.HasPiecewiseRate = i[offset]&0x40 > 0
	e.HasSeamlessSplice = i[offset]&0x20 > 0
	offset++

	if e.HasLegalTimeWindow && offset+2 <= len(i) {
		e.LegalTimeWindowIsValid = i[offset]&0x80 > 0
		e.LegalTimeWindowOffset = uint16(i[offset]&0x7f)<<8 | uint16(i[offset+1])
		offset += 2
	}

	if e.HasPiecewiseRate && offset+3 <= len(i) {
		e.PiecewiseRate = uint32(i[offset]&0x3f)<<16 | uint32(i[offset+1])<<8 | uint32(i[offset+2])
		offset += 3
	}

	if e.HasSeamlessSplice && offset+5 <= len(i) {
		e.SpliceType = uint8(i[offset]&0xf0) >> 4
		dts := parsePTSOrDTSBytes(i[offset:])
		e.DTSNextAccessUnit = &dts
	}

	return e
}

// parsePCR parses a 6-byte Program Clock Reference: 33-bit base, 6
// reserved bits, 9-bit extension (spec §4.1).
func parsePCR(i []byte) ClockReference {
	pcr := uint64(i[0])<<40 | uint64(i[1])<<32 | uint64(i[2])<<24 | uint64(i[3])<<16 | uint64(i[4])<<8 | uint64(i[5])
	return newClockReference(int64(pcr>>15), int64(pcr&0x1ff))
}

// parsePTSOrDTSBytes parses a 5-byte PTS/DTS field addressed by a plain
// byte slice (used by the adaptation field's DTSNextAccessUnit, which
// unlike the PES optional header is not read through a bitio.CountReader).
func parsePTSOrDTSBytes(i []byte) ClockReference {
	top3 := int64(i[0]>>1) & 0x07
	mid15 := int64(i[2]>>1) & 0x7f
	low7 := int64(i[4]>>1) & 0x7f
	base := top3<<30 | int64(i[1])<<22 | mid15<<15 | int64(i[3])<<7 | low7
	return newClockReference(base, 0)
}
