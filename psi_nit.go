package tsdemux

import (
	"fmt"

	"github.com/icza/bitio"
	"github.com/streamline-av/tsdemux/descriptor"
)

// NITData represents a NIT's parsed payload (SPEC_FULL.md's NIT
// enrichment of the reserved PID 0x0010).
// Page: 29 | Chapter: 5.2.1 | Link: https://www.dvb.org/resources/public/standards/a38_dvb-si_specification.pdf
type NITData struct {
	NetworkDescriptors []*descriptor.Descriptor
	NetworkID          uint16
	TransportStreams   []NITDataTransportStream
}

// NITDataTransportStream represents one transport stream entry in a NIT.
type NITDataTransportStream struct {
	OriginalNetworkID    uint16
	TransportDescriptors []*descriptor.Descriptor
	TransportStreamID    uint16
}

func parseNITSection(r *bitio.CountReader, offsetSectionsEnd int64, tableIDExtension uint16) (*NITData, error) {
	d := &NITData{NetworkID: tableIDExtension}

	_ = r.TryReadBits(4) // reserved for future use
	descs, err := descriptor.ParseDescriptors(r)
	if err != nil {
		return nil, fmt.Errorf("parsing network descriptors: %w", err)
	}
	d.NetworkDescriptors = descs

	_ = r.TryReadBits(4) // reserved for future use
	transportStreamLoopLength := int64(r.TryReadBits(12))
	loopEnd := r.BitsCount + transportStreamLoopLength*8

	for r.BitsCount < loopEnd && offsetSectionsEnd-r.BitsCount >= 32 {
		var ts NITDataTransportStream
		ts.TransportStreamID = uint16(r.TryReadBits(16))
		ts.OriginalNetworkID = uint16(r.TryReadBits(16))

		_ = r.TryReadBits(4) // reserved for future use
		tsDescs, err := descriptor.ParseDescriptors(r)
		if err != nil {
			return nil, fmt.Errorf("parsing transport stream descriptors: %w", err)
		}
		ts.TransportDescriptors = tsDescs

		d.TransportStreams = append(d.TransportStreams, ts)
	}
	return d, r.TryError
}
