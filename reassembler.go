package tsdemux

import (
	"errors"
	"fmt"
)

// pidCursor tracks which section a PID is currently filling, so a
// continuation packet (PUSI=0) knows where to append (spec §4.2).
type pidCursor struct {
	subtableID SubtableID
	number     uint8
	active     bool
}

// ccTracker tracks a PID's last continuity_counter, letting the
// reassembler detect packet loss and drop whatever was in progress
// rather than silently reassembling corrupt data (spec §9's
// continuity-counter-driven discontinuity extension).
type ccTracker struct {
	last uint8
	have bool
}

// reassembler is the core streaming state machine: packet parsing feeds
// it, and it owns the Table/Section/esAccumulator machinery, the PMT PID
// registry and elementary-stream PID map, and delivers events to a Sink
// (spec §4, §6).
type reassembler struct {
	sink Sink

	// globalOffset is the byte position, in the raw transport stream,
	// of the next packet handle will process (spec §3's "global byte
	// offset" root state). It only ever grows, by one packet's raw
	// length at a time, regardless of what the packet contains.
	globalOffset int64

	tables  map[SubtableID]*Table
	cursors map[uint16]*pidCursor
	ccs     map[uint16]*ccTracker

	pmts *pmtRegistry
	es   *elementaryStreamMap
	accs map[uint16]*esAccumulator
}

func newReassembler(sink Sink) *reassembler {
	return &reassembler{
		sink:    sink,
		tables:  make(map[SubtableID]*Table),
		cursors: make(map[uint16]*pidCursor),
		ccs:     make(map[uint16]*ccTracker),
		pmts:    newPMTRegistry(),
		es:      newElementaryStreamMap(),
		accs:    make(map[uint16]*esAccumulator),
	}
}

// handle routes one parsed packet into the section or PES reassembly
// path based on what the topology learner currently knows about its PID
// (spec §4.4's dynamic routing). Scrambled payloads are skipped outright
// and a continuity counter gap drops whatever was in progress on that
// PID, per spec §9's two optional discontinuity/scrambling extensions.
func (re *reassembler) handle(pkt *Packet) error {
	pid := uint16(pkt.Header.PID)

	// Every packet advances the stream position by its own raw length,
	// whether or not it ends up scrambled, skipped, or undecodable
	// (original_source/src/demuxer.rs's self.offset += raw.len()).
	pktOffset := re.globalOffset
	re.globalOffset += int64(len(pkt.Bytes))

	if pkt.Header.TransportScramblingControl != ScramblingControlNotScrambled {
		return nil
	}

	if re.continuityGap(pid, pkt) {
		delete(re.cursors, pid)
		if acc, ok := re.accs[pid]; ok {
			acc.drop()
		}
	}

	switch {
	case re.isSectionPID(pid):
		return re.handleSection(pid, pkt)
	case re.es.exists(pid):
		re.handlePES(pid, pkt, pktOffset)
		return nil
	default:
		return nil
	}
}

// continuityGap reports whether pkt's continuity_counter breaks the
// expected sequence for its PID. continuity_counter only increments on
// packets carrying a payload; a repeat of the previous value is a
// legitimate retransmission, and an explicit DiscontinuityIndicator
// resets tracking instead of reporting a gap (spec §9).
func (re *reassembler) continuityGap(pid uint16, pkt *Packet) bool {
	if !pkt.Header.HasPayload {
		return false
	}
	cc := pkt.Header.ContinuityCounter

	t, ok := re.ccs[pid]
	if !ok {
		re.ccs[pid] = &ccTracker{last: cc, have: true}
		return false
	}

	if pkt.AdaptationField != nil && pkt.AdaptationField.DiscontinuityIndicator {
		t.last = cc
		return false
	}

	expected := (t.last + 1) & 0xf
	gap := cc != expected && cc != t.last
	t.last = cc
	return gap
}

// isSectionPID reports whether pid currently carries PSI/SI sections:
// the well-known table PIDs, plus any PID the PAT has taught us carries
// a PMT (spec §4.4).
func (re *reassembler) isSectionPID(pid uint16) bool {
	switch PID(pid) {
	case PIDPAT, PIDSDT, PIDEIT, PIDNIT, PIDTDT:
		return true
	}
	return re.pmts.has(pid)
}

// handleSection feeds one packet's section payload into the Table's
// Section machinery, emitting a TableEvent and running PAT/PMT
// post-processing when a table completes (spec §4.2, §4.4).
func (re *reassembler) handleSection(pid uint16, pkt *Packet) error {
	payload, ok := pkt.PayloadSection()
	if !ok {
		return nil
	}

	if pkt.Header.PayloadUnitStartIndicator {
		if len(payload) < 3 {
			return nil
		}
		tableID := TableID(payload[0])
		if tableID == TableIDNull || tableID.isUnknown() {
			delete(re.cursors, pid)
			return nil
		}

		ident, ok := peekSectionIdentity(payload, tableID)
		if !ok {
			return nil
		}

		lastSectionNumber := ident.lastSectionNumber
		t, ok := re.tables[ident.subtableID]
		if !ok || t.LastSectionNumber != lastSectionNumber {
			t = newTable(ident.subtableID, pid, lastSectionNumber)
			re.tables[ident.subtableID] = t
		}

		re.cursors[pid] = &pidCursor{subtableID: ident.subtableID, number: ident.sectionNumber, active: true}

		if t.completed {
			// SubtableID embeds the version, so a second PUSI keyed to
			// the same already-complete Table can only be a verbatim
			// retransmission, never a version-induced refresh (spec
			// §4.2 reserves re-emission for that case alone). Leave
			// the section untouched rather than reopening it (spec §8
			// Idempotence).
			return nil
		}

		s := t.section(ident.sectionNumber, ident.declared)
		s.append(payload)

		if t.complete() {
			t.completed = true
			return re.completeTable(ident.subtableID, t)
		}
		return nil
	}

	cur, ok := re.cursors[pid]
	if !ok || !cur.active {
		return nil
	}
	t, ok := re.tables[cur.subtableID]
	if !ok || t.completed {
		return nil
	}
	s, ok := t.sections[cur.number]
	if !ok {
		return nil
	}
	s.append(payload)

	if t.complete() {
		t.completed = true
		return re.completeTable(cur.subtableID, t)
	}
	return nil
}

// completeTable parses every section of a completed table, merges their
// payloads, emits a TableEvent, and runs the PAT/PMT post-processing
// named in spec §4.4.
func (re *reassembler) completeTable(id SubtableID, t *Table) error {
	merged, subtableID, err := mergeTable(id, t)
	if err != nil {
		if !errors.Is(err, ErrPSIInvalidCRC32) {
			return fmt.Errorf("tsdemux: merging table: %w", err)
		}
		logger.Printf("tsdemux: %v", err)
	}

	re.sink.OnTable(TableEvent{SubtableID: subtableID, Table: t})

	switch id.kind {
	case subtableKindPAT:
		re.onPAT(merged.PAT)
	case subtableKindPMT:
		re.onPMT(merged.PMT)
	}
	return nil
}

// onPAT registers every program's PMT PID, per spec §4.4's "PAT
// post-processing": derive the set of PMT PIDs.
func (re *reassembler) onPAT(d *PATData) {
	if d == nil {
		return
	}
	for _, p := range d.Programs {
		if p.ProgramNumber == 0 {
			continue // network PID entry, not a program
		}
		re.pmts.register(p.ProgramMapID)
	}
}

// onPMT allocates a PES accumulator for every elementary stream a PMT
// lists, per spec §4.4's "PMT post-processing".
func (re *reassembler) onPMT(d *PMTData) {
	if d == nil {
		return
	}
	for _, es := range d.ElementaryStreams {
		re.es.set(es.ElementaryPID, d.ProgramNumber, es.StreamType)
		if _, ok := re.accs[es.ElementaryPID]; !ok {
			re.accs[es.ElementaryPID] = newESAccumulator(es.ElementaryPID, es.StreamType)
		}
	}
}

// handlePES feeds one packet's PES payload into its elementary-stream
// accumulator, emitting a PacketEvent when a new PUSI bounds the
// previous access unit (spec §4.3).
func (re *reassembler) handlePES(pid uint16, pkt *Packet, pktOffset int64) {
	payload, ok := pkt.PayloadPES()
	if !ok {
		return
	}

	acc, ok := re.accs[pid]
	if !ok {
		return
	}

	if pkt.Header.PayloadUnitStartIndicator {
		if !acc.empty() {
			re.emitPES(acc)
		}

		// spec §4.3(d): new offset = global_offset + packet_len - payload_len.
		offset := pktOffset + int64(len(pkt.Bytes)-len(payload))

		h, dataStart, dataEnd, err := parsePESBytes(payload)
		if err != nil {
			acc.reset(nil, nil, offset)
			return
		}
		acc.reset(pesPTS(h), pesDTS(h), offset)

		if dataStart < int64(len(payload))*8 {
			start := dataStart / 8
			end := int64(len(payload))
			if dataEnd > 0 && dataEnd/8 < end {
				end = dataEnd / 8
			}
			if start < end {
				acc.append(payload[start:end])
			}
		}
		return
	}

	acc.append(payload)
}

func (re *reassembler) emitPES(acc *esAccumulator) {
	re.sink.OnPacket(PacketEvent{
		PID:    acc.PID,
		Offset: acc.offset,
		PTS:    acc.pts,
		DTS:    acc.dts,
		Data:   acc.buf,
	})
}

// Flush emits every elementary-stream accumulator with buffered data as
// a final access unit (spec §9's second Open Question: PES flush is not
// automatic, exposed explicitly).
func (re *reassembler) Flush() {
	for _, acc := range re.accs {
		if !acc.empty() {
			re.emitPES(acc)
			acc.buf = acc.buf[:0]
		}
	}
}

func pesPTS(h *PESHeader) *ClockReference {
	if h.OptionalHeader == nil {
		return nil
	}
	return h.OptionalHeader.PTS
}

func pesDTS(h *PESHeader) *ClockReference {
	if h.OptionalHeader == nil {
		return nil
	}
	return h.OptionalHeader.DTS
}
