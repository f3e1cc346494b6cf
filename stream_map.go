package tsdemux

// elementaryStreamMap tracks which PIDs are known elementary streams and
// which program/stream type declared them, so the reassembler can route
// packets into PES accumulators instead of the PSI/SI section path.
// Grounded on the teacher's own elementaryStreamMap, switched to a
// uint32 key for the same reason the teacher gives: the Go runtime
// provides optimized hash functions for (u)int32/64 keys.
type elementaryStreamMap struct {
	es map[uint32]esEntry
}

type esEntry struct {
	ProgramNumber uint16
	StreamType    StreamType
}

func newElementaryStreamMap() *elementaryStreamMap {
	return &elementaryStreamMap{es: make(map[uint32]esEntry)}
}

func (m *elementaryStreamMap) set(pid uint16, programNumber uint16, streamType StreamType) {
	m.es[uint32(pid)] = esEntry{ProgramNumber: programNumber, StreamType: streamType}
}

func (m *elementaryStreamMap) exists(pid uint16) bool {
	_, ok := m.es[uint32(pid)]
	return ok
}

func (m *elementaryStreamMap) get(pid uint16) (esEntry, bool) {
	e, ok := m.es[uint32(pid)]
	return e, ok
}

func (m *elementaryStreamMap) unset(pid uint16) {
	delete(m.es, uint32(pid))
}
