package tsdemux

import (
	"fmt"
	"time"

	"github.com/icza/bitio"
	"github.com/streamline-av/tsdemux/descriptor"
)

// TOTData represents a TOT's parsed payload (SPEC_FULL.md's TOT
// enrichment of the reserved PID 0x0014; note TOT carries no CRC-32,
// see TableID.hasCRC32).
// Page: 39 | Chapter: 5.2.6 | Link: https://www.dvb.org/resources/public/standards/a38_dvb-si_specification.pdf
type TOTData struct {
	Descriptors []*descriptor.Descriptor
	UTCTime     time.Time
}

func parseTOTSection(r *bitio.CountReader) (*TOTData, error) {
	d := &TOTData{}

	t, err := parseDVBTime(r)
	if err != nil {
		return nil, fmt.Errorf("parsing UTC time: %w", err)
	}
	d.UTCTime = t

	_ = r.TryReadBits(4) // reserved for future use
	descs, err := descriptor.ParseDescriptors(r)
	if err != nil {
		return nil, fmt.Errorf("parsing TOT descriptors: %w", err)
	}
	d.Descriptors = descs
	return d, r.TryError
}
