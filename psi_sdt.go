package tsdemux

import (
	"fmt"

	"github.com/icza/bitio"
	"github.com/streamline-av/tsdemux/descriptor"
)

// Running statuses (spec §3, DVB-SI running_status field).
const (
	RunningStatusUndefined           = 0
	RunningStatusNotRunning          = 1
	RunningStatusStartsInAFewSeconds = 2
	RunningStatusPausing             = 3
	RunningStatusRunning             = 4
	RunningStatusServiceOffAir       = 5
)

// SDTData represents an SDT's parsed payload.
// Page: 33 | Chapter: 5.2.3 | Link: https://www.dvb.org/resources/public/standards/a38_dvb-si_specification.pdf
type SDTData struct {
	OriginalNetworkID uint16
	Services          []SDTDataService
	TransportStreamID uint16
}

// SDTDataService represents one service entry in an SDT.
type SDTDataService struct {
	Descriptors            []*descriptor.Descriptor
	HasEITPresentFollowing bool
	HasEITSchedule         bool
	HasFreeCSAMode         bool
	RunningStatus          uint8
	ServiceID              uint16
}

func parseSDTSection(r *bitio.CountReader, offsetSectionsEnd int64, tableIDExtension uint16) (*SDTData, error) {
	d := &SDTData{TransportStreamID: tableIDExtension}

	d.OriginalNetworkID = uint16(r.TryReadBits(16))
	_ = r.TryReadByte() // reserved for future use

	for offsetSectionsEnd-r.BitsCount >= 40 {
		var s SDTDataService
		s.ServiceID = uint16(r.TryReadBits(16))

		_ = r.TryReadBits(6) // reserved for future use
		s.HasEITSchedule = r.TryReadBool()
		s.HasEITPresentFollowing = r.TryReadBool()

		s.RunningStatus = uint8(r.TryReadBits(3))
		s.HasFreeCSAMode = r.TryReadBool()

		descs, err := descriptor.ParseDescriptors(r)
		if err != nil {
			return nil, fmt.Errorf("parsing service descriptors: %w", err)
		}
		s.Descriptors = descs

		d.Services = append(d.Services, s)
	}
	return d, r.TryError
}
