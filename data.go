package tsdemux

// DemuxerData is one item of data produced by Demuxer.NextData: exactly
// one of PAT/PMT/SDT/EIT/NIT/TOT/PES is set, naming what table or
// access unit arrived on PID (spec §6).
type DemuxerData struct {
	PID uint16

	PAT *PATData
	PMT *PMTData
	SDT *SDTData
	EIT *EITData
	NIT *NITData
	TOT *TOTData
	PES *PESData
}

// PESData is a complete elementary-stream access unit (spec §4.3), the
// pull-API counterpart of PacketEvent. Grounded on the teacher's
// PESData{Data, Header}, with PTS/DTS promoted to the top level since
// the accumulator that builds these doesn't retain the full PESHeader.
type PESData struct {
	Data   []byte
	Offset int64
	PTS    *ClockReference
	DTS    *ClockReference
}
