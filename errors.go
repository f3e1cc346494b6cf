package tsdemux

import "errors"

// Sentinel errors a caller may match with errors.Is. The framing, PSI
// and PES errors are non-fatal at the core's level (spec §7): the demuxer's
// state is left consistent. ErrPSIInvalidCRC32 is reported alongside a
// table that is still completed and emitted; ErrNoMorePackets marks the
// end of the input rather than a fault.
var (
	// ErrNoMorePackets is returned by NextPacket/NextData once the
	// underlying reader is exhausted.
	ErrNoMorePackets = errors.New("tsdemux: no more packets")

	// Framing errors (spec §7 "Framing").
	ErrBadSyncByte      = errors.New("tsdemux: packet does not start with sync byte 0x47")
	ErrBadPacketSize    = errors.New("tsdemux: packet is not 188 bytes")
	ErrBufferTooSmall   = errors.New("tsdemux: buffer too small for requested field")
	ErrNoPayload        = errors.New("tsdemux: packet carries no payload")

	// PSI errors (spec §7 "PSI").
	ErrSectionSyntaxMissing = errors.New("tsdemux: section_syntax_indicator is 0 on a table that requires 1")
	ErrPSIInvalidCRC32      = errors.New("tsdemux: section CRC-32 mismatch")

	// PES errors (spec §7 "PES").
	ErrBadPESStartCode = errors.New("tsdemux: PES packet does not start with 0x000001")
)
