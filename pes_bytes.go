package tsdemux

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
)

// pesStartCodePrefix is the fixed 3-byte prefix (0x00 0x00 0x01) leading
// every PES packet (spec §4.3).
var pesStartCodePrefix = [3]byte{0x00, 0x00, 0x01}

// parsePESBytes parses a PES packet starting at the packet_start_code_prefix,
// returning the bit offsets (relative to payload) the access-unit payload
// starts and ends at, mirroring parsePESHeader's bit accounting (spec §4.3).
func parsePESBytes(payload []byte) (h *PESHeader, dataStart, dataEnd int64, err error) {
	if len(payload) < 3 {
		return nil, 0, 0, fmt.Errorf("tsdemux: PES payload too small")
	}

	r := bitio.NewCountReader(bytes.NewReader(payload))

	prefix := make([]byte, 3)
	TryReadFull(r, prefix)
	if r.TryError != nil {
		return nil, 0, 0, fmt.Errorf("tsdemux: reading PES start code prefix: %w", r.TryError)
	}
	if prefix[0] != pesStartCodePrefix[0] || prefix[1] != pesStartCodePrefix[1] || prefix[2] != pesStartCodePrefix[2] {
		return nil, 0, 0, ErrBadPESStartCode
	}

	h, dataStart, dataEnd, err = parsePESHeader(r, int64(len(payload))*8)
	if err != nil {
		return nil, 0, 0, err
	}
	return h, dataStart, dataEnd, nil
}
