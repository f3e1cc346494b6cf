package tsdemux

import (
	"fmt"

	"github.com/icza/bitio"
	"github.com/streamline-av/tsdemux/descriptor"
)

// PMTData represents a PMT's parsed payload (spec §3). Elementary
// streams listed here are what drives the topology learner's PES
// accumulator allocation (spec §4.4's PMT post-processing).
type PMTData struct {
	ElementaryStreams  []PMTElementaryStream
	PCRPID             uint16
	ProgramDescriptors []*descriptor.Descriptor
	ProgramNumber      uint16
}

// PMTElementaryStream represents one elementary stream entry in a PMT.
type PMTElementaryStream struct {
	ElementaryPID               uint16
	ElementaryStreamDescriptors []*descriptor.Descriptor
	StreamType                  StreamType
}

// parsePMTSection parses a PMT section's payload. descriptor.ParseDescriptors
// reads its own 12-bit length prefix, so this only needs to skip the
// preceding 4 reserved bits before each descriptor loop.
func parsePMTSection(r *bitio.CountReader, offsetSectionsEnd int64, tableIDExtension uint16) (*PMTData, error) {
	d := &PMTData{ProgramNumber: tableIDExtension}

	_ = r.TryReadBits(3) // reserved
	d.PCRPID = uint16(r.TryReadBits(13))

	_ = r.TryReadBits(4) // reserved
	descs, err := descriptor.ParseDescriptors(r)
	if err != nil {
		return nil, fmt.Errorf("parsing program descriptors: %w", err)
	}
	d.ProgramDescriptors = descs

	for offsetSectionsEnd-r.BitsCount >= 40 {
		var e PMTElementaryStream
		e.StreamType = StreamType(r.TryReadByte())

		_ = r.TryReadBits(3) // reserved
		e.ElementaryPID = uint16(r.TryReadBits(13))

		_ = r.TryReadBits(4) // reserved
		esDescs, err := descriptor.ParseDescriptors(r)
		if err != nil {
			return nil, fmt.Errorf("parsing elementary stream descriptors: %w", err)
		}
		e.ElementaryStreamDescriptors = esDescs

		d.ElementaryStreams = append(d.ElementaryStreams, e)
	}
	return d, r.TryError
}
