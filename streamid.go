package tsdemux

// StreamID is the PES packet's stream_id byte, identifying the kind of
// elementary or private data the packet carries. Page: 49 | Chapter:
// 2.4.3.7 | Table 2-22 | ISO/IEC 13818-1.
type StreamID uint8

const (
	StreamIDProgramStreamMap       StreamID = 0xbc
	StreamIDPrivateStream1         StreamID = 0xbd
	StreamIDPaddingStream          StreamID = 0xbe
	StreamIDPrivateStream2         StreamID = 0xbf
	StreamIDECM                    StreamID = 0xf0
	StreamIDEMM                    StreamID = 0xf1
	StreamIDProgramStreamDirectory StreamID = 0xff
	StreamIDDSMCC                  StreamID = 0xf2
	StreamIDTypeE                  StreamID = 0xf8
	StreamIDVideoBase              StreamID = 0xe0
	StreamIDAudioBase              StreamID = 0xc0
)

// HasOptionalHeader reports whether a PES packet with this stream_id
// carries the optional PES header (PTS/DTS, ESCR, trick mode, ...)
// spec §4.3 parses. Every stream_id does except the eight named in
// spec §4.3.a; the stream_ids that do are collectively "category 1".
func (s StreamID) HasOptionalHeader() bool {
	switch s {
	case StreamIDProgramStreamMap, StreamIDPaddingStream, StreamIDPrivateStream2,
		StreamIDECM, StreamIDEMM, StreamIDProgramStreamDirectory, StreamIDDSMCC, StreamIDTypeE:
		return false
	}
	return true
}

// IsVideo reports whether s names one of the MPEG video stream_id
// values (0xE0-0xEF) or the legacy 0xFD extension stream_id used for
// some H.264/HEVC muxes.
func (s StreamID) IsVideo() bool {
	return (s >= 0xe0 && s <= 0xef) || s == 0xfd
}
