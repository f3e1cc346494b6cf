package tsdemux

// Sink receives completed tables and PES access units as the core
// consumes packets (spec §6). Neither event struct is retained past the
// call: the core reuses its internal buffers on the next packet, so a
// Sink that wants to keep a payload must copy it.
type Sink interface {
	OnTable(TableEvent)
	OnPacket(PacketEvent)
}

// TableEvent is delivered once a subtable completes (spec §4.4).
type TableEvent struct {
	SubtableID SubtableID
	Table      *Table
}

// PacketEvent is delivered once a PES access unit is bounded by the
// next PUSI on its elementary PID (spec §4.3).
type PacketEvent struct {
	PID    uint16
	Offset int64
	PTS    *ClockReference
	DTS    *ClockReference
	Data   []byte
}

// SinkFunc adapts two functions into a Sink, convenient for callers that
// only care about one of the two event kinds.
type SinkFunc struct {
	Table  func(TableEvent)
	Packet func(PacketEvent)
}

func (f SinkFunc) OnTable(e TableEvent) {
	if f.Table != nil {
		f.Table(e)
	}
}

func (f SinkFunc) OnPacket(e PacketEvent) {
	if f.Packet != nil {
		f.Packet(e)
	}
}

// bufferingSink is the Demuxer's internal Sink, queueing events for
// NextData to drain in FIFO order — the adaptation that lets Demuxer
// offer the teacher's pull-style API on top of the push-style core.
type bufferingSink struct {
	tables  []TableEvent
	packets []PacketEvent
}

func (s *bufferingSink) OnTable(e TableEvent) {
	s.tables = append(s.tables, e)
}

func (s *bufferingSink) OnPacket(e PacketEvent) {
	cp := make([]byte, len(e.Data))
	copy(cp, e.Data)
	e.Data = cp
	s.packets = append(s.packets, e)
}
