package tsdemux

import "github.com/icza/bitio"

// PATData represents a PAT's parsed payload (spec §3).
// https://en.wikipedia.org/wiki/Program-specific_information
type PATData struct {
	Programs          []PATProgram
	TransportStreamID uint16
}

// PATProgram represents one program entry in a PAT.
type PATProgram struct {
	ProgramMapID  uint16 // the PID carrying the associated PMT, or the network PID if ProgramNumber is 0
	ProgramNumber uint16
}

// parsePATSection parses a PAT section's payload (spec §4.4's PAT
// post-processing consumes the resulting Programs list to populate the
// PMT PID registry).
func parsePATSection(r *bitio.CountReader, offsetSectionsEnd int64, tableIDExtension uint16) (*PATData, error) {
	d := &PATData{TransportStreamID: tableIDExtension}

	for offsetSectionsEnd-r.BitsCount >= 32 {
		programNumber := uint16(r.TryReadBits(16))
		_ = r.TryReadBits(3) // reserved
		pid := uint16(r.TryReadBits(13))
		d.Programs = append(d.Programs, PATProgram{ProgramNumber: programNumber, ProgramMapID: pid})
	}
	return d, r.TryError
}
