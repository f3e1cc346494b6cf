package tsdemux

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Demuxer wraps the core reassembler in the teacher's pull-style API:
// NextPacket/NextData/Rewind, driven by an io.Reader over raw transport
// packets (spec §6's "stream convenience wrapper").
// https://en.wikipedia.org/wiki/MPEG_transport_stream
type Demuxer struct {
	ctx context.Context
	r   io.Reader

	optPacketSize    int
	optExternalSink  Sink
	optPacketSkipper PacketSkipper

	packetBuffer *packetBuffer
	re           *reassembler
	sink         *bufferingSink
}

// PacketSkipper lets a caller veto a parsed packet before it reaches the
// reassembler — for instance to drop a PID the caller has no interest
// in reassembling.
type PacketSkipper func(p *Packet) bool

// NewDemuxer creates a Demuxer reading packets from r.
func NewDemuxer(ctx context.Context, r io.Reader, opts ...func(*Demuxer)) *Demuxer {
	d := &Demuxer{ctx: ctx, r: r}
	for _, opt := range opts {
		opt(d)
	}

	d.sink = &bufferingSink{}
	d.re = newReassembler(d.sinkFanout())
	return d
}

// sinkFanout returns a Sink that feeds the internal buffering sink
// NextData drains, plus the caller's external sink if one was set via
// DemuxerOptSink.
func (dmx *Demuxer) sinkFanout() Sink {
	if dmx.optExternalSink == nil {
		return dmx.sink
	}
	ext := dmx.optExternalSink
	return SinkFunc{
		Table: func(e TableEvent) {
			dmx.sink.OnTable(e)
			ext.OnTable(e)
		},
		Packet: func(e PacketEvent) {
			dmx.sink.OnPacket(e)
			ext.OnPacket(e)
		},
	}
}

// DemuxerOptPacketSize sets a fixed packet size (188, 192 or 204),
// bypassing auto-detection.
func DemuxerOptPacketSize(packetSize int) func(*Demuxer) {
	return func(d *Demuxer) { d.optPacketSize = packetSize }
}

// DemuxerOptSink additionally delivers every TableEvent/PacketEvent to
// sink as they're produced, independent of the NextData pull loop.
func DemuxerOptSink(sink Sink) func(*Demuxer) {
	return func(d *Demuxer) { d.optExternalSink = sink }
}

// DemuxerOptPacketSkipper sets a predicate that drops a parsed packet
// before it reaches the reassembler.
func DemuxerOptPacketSkipper(skip PacketSkipper) func(*Demuxer) {
	return func(d *Demuxer) { d.optPacketSkipper = skip }
}

// NextPacket retrieves and decodes the next transport-stream packet.
func (dmx *Demuxer) NextPacket() (*Packet, error) {
	if err := dmx.ctx.Err(); err != nil {
		return nil, fmt.Errorf("tsdemux: context error: %w", err)
	}

	if dmx.packetBuffer == nil {
		pb, err := newPacketBuffer(dmx.r, dmx.optPacketSize)
		if err != nil {
			return nil, fmt.Errorf("tsdemux: creating packet buffer: %w", err)
		}
		dmx.packetBuffer = pb
	}

	p, err := dmx.packetBuffer.next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoMorePackets
		}
		return nil, fmt.Errorf("tsdemux: fetching next packet: %w", err)
	}
	return p, nil
}

// Demux decodes and feeds exactly one packet into the reassembler,
// useful for callers that already have their own packet source and only
// want the reassembly/event machinery.
func (dmx *Demuxer) Demux(pkt *Packet) error {
	if dmx.optPacketSkipper != nil && dmx.optPacketSkipper(pkt) {
		return nil
	}
	return dmx.re.handle(pkt)
}

// NextData retrieves the next table or PES access unit, reading and
// feeding packets from the underlying reader until one is produced or
// the stream is exhausted.
func (dmx *Demuxer) NextData() (*DemuxerData, error) {
	if d := dmx.drainBuffer(); d != nil {
		return d, nil
	}

	for {
		pkt, err := dmx.NextPacket()
		if err != nil {
			if !errors.Is(err, ErrNoMorePackets) {
				return nil, fmt.Errorf("tsdemux: fetching next packet: %w", err)
			}
			return nil, ErrNoMorePackets
		}

		if err := dmx.Demux(pkt); err != nil {
			return nil, fmt.Errorf("tsdemux: demuxing packet: %w", err)
		}

		if d := dmx.drainBuffer(); d != nil {
			return d, nil
		}
	}
}

// drainBuffer pops buffered table/PES events, adapted into the
// DemuxerData shape, skipping past any table event whose merge failed
// outright (spec §7: non-fatal, the event is simply dropped) rather
// than stalling behind it until the next packet arrives.
func (dmx *Demuxer) drainBuffer() *DemuxerData {
	for len(dmx.sink.tables) > 0 {
		e := dmx.sink.tables[0]
		dmx.sink.tables = dmx.sink.tables[1:]
		if d := tableEventToData(e); d != nil {
			return d
		}
	}
	if len(dmx.sink.packets) > 0 {
		e := dmx.sink.packets[0]
		dmx.sink.packets = dmx.sink.packets[1:]
		return &DemuxerData{
			PID: e.PID,
			PES: &PESData{Data: e.Data, Offset: e.Offset, PTS: e.PTS, DTS: e.DTS},
		}
	}
	return nil
}

// tableEventToData re-parses and merges a completed Table's sections
// into the DemuxerData shape, per spec §6's "translating TableEvent
// into the teacher's DemuxerData shape". Merge errors other than a
// non-fatal CRC mismatch are logged and the event is dropped, matching
// spec §7's "every error is non-fatal at the core's level".
func tableEventToData(e TableEvent) *DemuxerData {
	merged, _, err := mergeTable(e.SubtableID, e.Table)
	if err != nil && !errors.Is(err, ErrPSIInvalidCRC32) {
		logger.Printf("tsdemux: %v", err)
		return nil
	}
	if merged == nil {
		return nil
	}

	d := &DemuxerData{PID: e.Table.PID}
	switch e.SubtableID.kind {
	case subtableKindPAT:
		d.PAT = merged.PAT
	case subtableKindPMT:
		d.PMT = merged.PMT
	case subtableKindSDT:
		d.SDT = merged.SDT
	case subtableKindEIT:
		d.EIT = merged.EIT
	case subtableKindNIT:
		d.NIT = merged.NIT
	case subtableKindTOT:
		d.TOT = merged.TOT
	}
	return d
}

// Flush emits every in-flight PES accumulator as a final access unit
// (spec §9's second Open Question: not automatic, opt-in).
func (dmx *Demuxer) Flush() {
	dmx.re.Flush()
}

// Rewind seeks the underlying reader back to the start and resets all
// reassembly state.
func (dmx *Demuxer) Rewind() (int64, error) {
	dmx.sink.tables = nil
	dmx.sink.packets = nil
	dmx.packetBuffer = nil
	dmx.re = newReassembler(dmx.sinkFanout())

	n, err := rewind(dmx.r)
	if err != nil {
		return 0, fmt.Errorf("tsdemux: rewinding reader: %w", err)
	}
	return n, nil
}
