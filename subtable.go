package tsdemux

// subtableKind distinguishes the four identity shapes a SubtableID can
// take (spec §3); NIT/TOT reuse the PAT-shaped and version-only shapes
// respectively, see the constructors below.
type subtableKind uint8

const (
	subtableKindPAT subtableKind = iota
	subtableKindPMT
	subtableKindSDT
	subtableKindEIT
	subtableKindNIT
	subtableKindTOT
)

// SubtableID is the identity tuple distinguishing one subtable from
// another (spec §3). It is a plain comparable struct rather than a
// tagged union — Go has none — so it can be used directly as a map key;
// field meaning depends on kind:
//
//	PAT: (TableID, TransportStreamID, Version)
//	PMT: (TableID, ProgramNumber, Version)
//	SDT: (TableID, TransportStreamID, OriginalNetworkID, Version)
//	EIT: (TableID, ServiceID, TransportStreamID, OriginalNetworkID, Version)
//	NIT: (TableID, NetworkID, Version)
//	TOT: (TableID, Version) — TOT has no extension field at all.
type SubtableID struct {
	kind              subtableKind
	TableID           TableID
	TransportStreamID uint16
	ProgramNumber     uint16
	OriginalNetworkID uint16
	ServiceID         uint16
	NetworkID         uint16
	Version           uint8
}

func patSubtableID(tableID TableID, transportStreamID uint16, version uint8) SubtableID {
	return SubtableID{kind: subtableKindPAT, TableID: tableID, TransportStreamID: transportStreamID, Version: version}
}

func pmtSubtableID(tableID TableID, programNumber uint16, version uint8) SubtableID {
	return SubtableID{kind: subtableKindPMT, TableID: tableID, ProgramNumber: programNumber, Version: version}
}

func sdtSubtableID(tableID TableID, transportStreamID, originalNetworkID uint16, version uint8) SubtableID {
	return SubtableID{kind: subtableKindSDT, TableID: tableID, TransportStreamID: transportStreamID, OriginalNetworkID: originalNetworkID, Version: version}
}

func eitSubtableID(tableID TableID, serviceID, transportStreamID, originalNetworkID uint16, version uint8) SubtableID {
	return SubtableID{kind: subtableKindEIT, TableID: tableID, ServiceID: serviceID, TransportStreamID: transportStreamID, OriginalNetworkID: originalNetworkID, Version: version}
}

func nitSubtableID(tableID TableID, networkID uint16, version uint8) SubtableID {
	return SubtableID{kind: subtableKindNIT, TableID: tableID, NetworkID: networkID, Version: version}
}

func totSubtableID(tableID TableID, version uint8) SubtableID {
	return SubtableID{kind: subtableKindTOT, TableID: tableID, Version: version}
}
