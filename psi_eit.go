package tsdemux

import (
	"fmt"
	"time"

	"github.com/icza/bitio"
	"github.com/streamline-av/tsdemux/descriptor"
)

// EITData represents an EIT's parsed payload.
// Page: 36 | Chapter: 5.2.4 | Link: https://www.dvb.org/resources/public/standards/a38_dvb-si_specification.pdf
type EITData struct {
	Events                   []EITDataEvent
	LastTableID              uint8
	OriginalNetworkID        uint16
	SegmentLastSectionNumber uint8
	ServiceID                uint16
	TransportStreamID        uint16
}

// EITDataEvent represents one event entry in an EIT.
type EITDataEvent struct {
	Descriptors    []*descriptor.Descriptor
	Duration       time.Duration
	EventID        uint16
	HasFreeCSAMode bool
	RunningStatus  uint8
	StartTime      time.Time
}

func parseEITSection(r *bitio.CountReader, offsetSectionsEnd int64, tableIDExtension uint16) (*EITData, error) {
	d := &EITData{ServiceID: tableIDExtension}

	d.TransportStreamID = uint16(r.TryReadBits(16))
	d.OriginalNetworkID = uint16(r.TryReadBits(16))
	d.SegmentLastSectionNumber = r.TryReadByte()
	d.LastTableID = r.TryReadByte()

	for offsetSectionsEnd-r.BitsCount >= 96 {
		var e EITDataEvent
		e.EventID = uint16(r.TryReadBits(16))

		startTime, err := parseDVBTime(r)
		if err != nil {
			return nil, fmt.Errorf("parsing event start time: %w", err)
		}
		e.StartTime = startTime

		duration, err := parseDVBDurationSeconds(r)
		if err != nil {
			return nil, fmt.Errorf("parsing event duration: %w", err)
		}
		e.Duration = duration

		e.RunningStatus = uint8(r.TryReadBits(3))
		e.HasFreeCSAMode = r.TryReadBool()

		descs, err := descriptor.ParseDescriptors(r)
		if err != nil {
			return nil, fmt.Errorf("parsing event descriptors: %w", err)
		}
		e.Descriptors = descs

		d.Events = append(d.Events, e)
	}
	return d, r.TryError
}
