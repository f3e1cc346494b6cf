package tsdemux

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
)

// psiSectionHeader is the fixed 3-byte section header every PSI/SI
// table starts with (spec §4.2).
type psiSectionHeader struct {
	TableID                TableID
	SectionSyntaxIndicator bool
	PrivateBit             bool
	SectionLength          uint16
}

// psiSyntaxHeader is the 5-byte extended syntax header tables with
// hasSyntaxHeader() carry immediately after the fixed header.
type psiSyntaxHeader struct {
	TableIDExtension     uint16
	VersionNumber        uint8
	CurrentNextIndicator bool
	SectionNumber        uint8
	LastSectionNumber    uint8
}

// sectionDeclaredSize returns the total byte length a section will
// occupy once complete (3-byte header + SectionLength bytes), the value
// the reassembler uses to size a Section's buffer (spec §4.2). buf must
// contain at least the first 3 bytes of the section.
func sectionDeclaredSize(buf []byte) (int, error) {
	if len(buf) < 3 {
		return 0, ErrSectionSyntaxMissing
	}
	length := int(buf[1]&0x0f)<<8 | int(buf[2])
	return 3 + length, nil
}

// parsePSISectionHeader parses the fixed 3-byte header from a complete
// section buffer.
func parsePSISectionHeader(r *bitio.CountReader) (psiSectionHeader, error) {
	var h psiSectionHeader
	h.TableID = TableID(r.TryReadByte())
	h.SectionSyntaxIndicator = r.TryReadBool()
	h.PrivateBit = r.TryReadBool()
	_ = r.TryReadBits(2) // reserved
	h.SectionLength = uint16(r.TryReadBits(12))
	return h, r.TryError
}

// parsePSISyntaxHeader parses the 5-byte extended syntax header.
func parsePSISyntaxHeader(r *bitio.CountReader) (psiSyntaxHeader, error) {
	var h psiSyntaxHeader
	h.TableIDExtension = uint16(r.TryReadBits(16))
	_ = r.TryReadBits(2) // reserved
	h.VersionNumber = uint8(r.TryReadBits(5))
	h.CurrentNextIndicator = r.TryReadBool()
	h.SectionNumber = r.TryReadByte()
	h.LastSectionNumber = r.TryReadByte()
	return h, r.TryError
}

// parsePSISection parses a single complete section (spec §4.2/§4.4),
// dispatching to the per-table-kind payload parser and validating the
// CRC-32 non-fatally for table kinds that carry one (SPEC_FULL.md §4's
// resolution of Open Question 3).
func parsePSISection(buf []byte) (*psiSection, error) {
	declared, err := sectionDeclaredSize(buf)
	if err != nil {
		return nil, err
	}
	if len(buf) < declared {
		return nil, fmt.Errorf("tsdemux: section buffer shorter than declared size: %w", ErrSectionSyntaxMissing)
	}
	buf = buf[:declared]

	cr := NewCRC32Reader(bytes.NewReader(buf))
	r := bitio.NewCountReader(cr)

	h, err := parsePSISectionHeader(r)
	if err != nil {
		return nil, fmt.Errorf("tsdemux: parsing section header: %w", err)
	}

	s := &psiSection{Header: h}
	if h.TableID == TableIDNull || h.TableID.isUnknown() {
		return s, nil
	}

	offsetEnd := int64(3+h.SectionLength) * 8
	offsetSectionsEnd := offsetEnd
	if h.TableID.hasCRC32() {
		offsetSectionsEnd -= 32
	}

	if h.TableID.hasSyntaxHeader() {
		sh, err := parsePSISyntaxHeader(r)
		if err != nil {
			return nil, fmt.Errorf("tsdemux: parsing syntax header: %w", err)
		}
		s.Syntax = &sh
	}

	if err := parsePSIPayload(r, s, offsetSectionsEnd); err != nil {
		return nil, fmt.Errorf("tsdemux: parsing section payload: %w", err)
	}

	var crcErr error
	if h.TableID.hasCRC32() {
		if remaining := offsetSectionsEnd - r.BitsCount; remaining > 0 {
			skip := make([]byte, remaining/8)
			TryReadFull(r, skip)
		}
		computed := cr.CRC32()
		tableCRC := uint32(r.TryReadBits(32))
		s.CRC32 = tableCRC
		if computed != tableCRC {
			crcErr = fmt.Errorf("%w: computed=%#08x table=%#08x", ErrPSIInvalidCRC32, computed, tableCRC)
		}
	}

	return s, crcErr
}

// psiSection is the parsed form of one complete section (spec §4.4's
// "parse the payload" step, independent of the Table/Section machinery
// that reassembles the raw bytes).
type psiSection struct {
	Header  psiSectionHeader
	Syntax  *psiSyntaxHeader
	CRC32   uint32
	PAT     *PATData
	PMT     *PMTData
	SDT     *SDTData
	EIT     *EITData
	NIT     *NITData
	TOT     *TOTData
}

func parsePSIPayload(r *bitio.CountReader, s *psiSection, offsetSectionsEnd int64) error {
	var err error
	switch {
	case s.Header.TableID == TableIDPAT:
		s.PAT, err = parsePATSection(r, offsetSectionsEnd, s.Syntax.TableIDExtension)
	case s.Header.TableID == TableIDPMT:
		s.PMT, err = parsePMTSection(r, offsetSectionsEnd, s.Syntax.TableIDExtension)
	case s.Header.TableID == TableIDSDTVariant1, s.Header.TableID == TableIDSDTVariant2:
		s.SDT, err = parseSDTSection(r, offsetSectionsEnd, s.Syntax.TableIDExtension)
	case s.Header.TableID == TableIDNITVariant1, s.Header.TableID == TableIDNITVariant2:
		s.NIT, err = parseNITSection(r, offsetSectionsEnd, s.Syntax.TableIDExtension)
	case s.Header.TableID == TableIDTOT:
		s.TOT, err = parseTOTSection(r)
	case s.Header.TableID >= TableIDEITStart && s.Header.TableID <= TableIDEITEnd:
		s.EIT, err = parseEITSection(r, offsetSectionsEnd, s.Syntax.TableIDExtension)
	}
	return err
}
