package tsdemux

import (
	"errors"
	"fmt"
)

// sectionIdentity is what can be read off a section's first bytes
// before it has fully arrived: enough to route continuation packets and
// size the Section's buffer (spec §4.2).
type sectionIdentity struct {
	subtableID        SubtableID
	declared          int
	sectionNumber     uint8
	lastSectionNumber uint8
}

// peekSectionIdentity reads the fixed header (and, for table kinds that
// carry one, the extended syntax header) from the start of a section
// to build its identity. buf must start at the section's first byte
// (spec §4.1's pointer_field already skipped by PayloadSection).
func peekSectionIdentity(buf []byte, tableID TableID) (sectionIdentity, bool) {
	declared, err := sectionDeclaredSize(buf)
	if err != nil {
		return sectionIdentity{}, false
	}

	var extension uint16
	var version uint8
	var sectionNumber, lastSectionNumber uint8

	if tableID.hasSyntaxHeader() {
		if len(buf) < 8 {
			return sectionIdentity{}, false
		}
		extension = uint16(buf[3])<<8 | uint16(buf[4])
		version = (buf[5] >> 1) & 0x1f
		sectionNumber = buf[6]
		lastSectionNumber = buf[7]
	} else if len(buf) < 3 {
		return sectionIdentity{}, false
	}

	var id SubtableID
	switch tableID.category() {
	case categoryPAT:
		id = patSubtableID(tableID, extension, version)
	case categorySDT:
		// original_network_id (2 bytes) + 1 reserved byte follow the
		// 8-byte syntax header directly (original_source/src/section/
		// sdt.rs's HEADER_SPECIFIC_SZ = 3); read here rather than
		// deferred to mergeTable so the tables map key itself carries
		// the right identity from the first PUSI packet.
		if len(buf) < 11 {
			return sectionIdentity{}, false
		}
		originalNetworkID := uint16(buf[8])<<8 | uint16(buf[9])
		id = sdtSubtableID(tableID, extension, originalNetworkID, version)
	case categoryEIT:
		// transport_stream_id (2 bytes) + original_network_id (2
		// bytes) + segment_last_section_number (1) + last_table_id (1)
		// follow the 8-byte syntax header (original_source/src/section/
		// eit.rs's HEADER_SPECIFIC_SZ = 6).
		if len(buf) < 14 {
			return sectionIdentity{}, false
		}
		transportStreamID := uint16(buf[8])<<8 | uint16(buf[9])
		originalNetworkID := uint16(buf[10])<<8 | uint16(buf[11])
		id = eitSubtableID(tableID, extension, transportStreamID, originalNetworkID, version)
	case categoryNIT:
		id = nitSubtableID(tableID, extension, version)
	case categoryTOT:
		id = totSubtableID(tableID, 0)
	default:
		if tableID == TableIDPMT {
			id = pmtSubtableID(tableID, extension, version)
			break
		}
		return sectionIdentity{}, false
	}

	return sectionIdentity{
		subtableID:        id,
		declared:          declared,
		sectionNumber:     sectionNumber,
		lastSectionNumber: lastSectionNumber,
	}, true
}

// mergeTable parses every section of a completed table and merges their
// payloads into one logical table value (spec §4.4). peekSectionIdentity
// already read SDT/EIT's original_network_id and EIT's
// transport_stream_id off the first PUSI packet, so mergeSection's
// rewrite of those SubtableID fields below is a defensive reaffirmation
// from the fully parsed payload, not their original source. CRC-32
// mismatches are returned but are not fatal to the merge (SPEC_FULL.md
// §4's resolution of Open Question 3) — the caller logs and continues.
func mergeTable(id SubtableID, t *Table) (*psiSection, SubtableID, error) {
	merged := &psiSection{}
	subtableID := id
	var softErr error

	for _, sec := range t.Sections() {
		parsed, err := parsePSISection(sec.Bytes())
		if err != nil {
			if errors.Is(err, ErrPSIInvalidCRC32) {
				softErr = err
			} else {
				return nil, id, fmt.Errorf("tsdemux: parsing section %d: %w", sec.Number(), err)
			}
		}
		if parsed == nil {
			continue
		}
		mergeSection(id.kind, merged, &subtableID, parsed)
	}

	return merged, subtableID, softErr
}

func mergeSection(kind subtableKind, merged *psiSection, subtableID *SubtableID, parsed *psiSection) {
	switch kind {
	case subtableKindPAT:
		if parsed.PAT == nil {
			return
		}
		if merged.PAT == nil {
			merged.PAT = parsed.PAT
			return
		}
		merged.PAT.Programs = append(merged.PAT.Programs, parsed.PAT.Programs...)
	case subtableKindPMT:
		if parsed.PMT == nil {
			return
		}
		if merged.PMT == nil {
			merged.PMT = parsed.PMT
			return
		}
		merged.PMT.ProgramDescriptors = append(merged.PMT.ProgramDescriptors, parsed.PMT.ProgramDescriptors...)
		merged.PMT.ElementaryStreams = append(merged.PMT.ElementaryStreams, parsed.PMT.ElementaryStreams...)
	case subtableKindSDT:
		if parsed.SDT == nil {
			return
		}
		subtableID.OriginalNetworkID = parsed.SDT.OriginalNetworkID
		if merged.SDT == nil {
			merged.SDT = parsed.SDT
			return
		}
		merged.SDT.Services = append(merged.SDT.Services, parsed.SDT.Services...)
	case subtableKindEIT:
		if parsed.EIT == nil {
			return
		}
		subtableID.OriginalNetworkID = parsed.EIT.OriginalNetworkID
		subtableID.TransportStreamID = parsed.EIT.TransportStreamID
		if merged.EIT == nil {
			merged.EIT = parsed.EIT
			return
		}
		merged.EIT.Events = append(merged.EIT.Events, parsed.EIT.Events...)
	case subtableKindNIT:
		if parsed.NIT == nil {
			return
		}
		if merged.NIT == nil {
			merged.NIT = parsed.NIT
			return
		}
		merged.NIT.TransportStreams = append(merged.NIT.TransportStreams, parsed.NIT.TransportStreams...)
	case subtableKindTOT:
		merged.TOT = parsed.TOT
	}
}
