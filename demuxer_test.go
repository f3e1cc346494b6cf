package tsdemux

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDemuxer(t *testing.T, packets ...[]byte) *Demuxer {
	t.Helper()
	var buf bytes.Buffer
	for _, p := range packets {
		buf.Write(p)
	}
	return NewDemuxer(context.Background(), &buf, DemuxerOptPacketSize(MpegTsPacketSize))
}

func TestDemuxerSinglePacketPAT(t *testing.T) {
	section := buildPATSection(1, 0, []PATProgram{{ProgramNumber: 1, ProgramMapID: 0x1000}})
	pkt := buildTSPacket(uint16(PIDPAT), true, 0, withPointerField(section))

	dmx := newTestDemuxer(t, pkt)
	d, err := dmx.NextData()
	require.NoError(t, err)
	require.NotNil(t, d.PAT)
	assert.Equal(t, uint16(1), d.PAT.TransportStreamID)
	require.Len(t, d.PAT.Programs, 1)
	assert.Equal(t, uint16(0x1000), d.PAT.Programs[0].ProgramMapID)

	_, err = dmx.NextData()
	assert.ErrorIs(t, err, ErrNoMorePackets)
}

func TestDemuxerPATThenPMT(t *testing.T) {
	pat := buildPATSection(7, 0, []PATProgram{{ProgramNumber: 1, ProgramMapID: 0x1000}})
	patPkt := buildTSPacket(uint16(PIDPAT), true, 0, withPointerField(pat))

	pmt := buildPMTSection(1, 0, 0x101, []PMTElementaryStream{
		{ElementaryPID: 0x101, StreamType: StreamTypeMPEG2Video},
	})
	pmtPkt := buildTSPacket(0x1000, true, 0, withPointerField(pmt))

	dmx := newTestDemuxer(t, patPkt, pmtPkt)

	d1, err := dmx.NextData()
	require.NoError(t, err)
	require.NotNil(t, d1.PAT)

	d2, err := dmx.NextData()
	require.NoError(t, err)
	require.NotNil(t, d2.PMT)
	assert.Equal(t, uint16(1), d2.PMT.ProgramNumber)
	require.Len(t, d2.PMT.ElementaryStreams, 1)
	assert.Equal(t, StreamTypeMPEG2Video, d2.PMT.ElementaryStreams[0].StreamType)
}

func TestDemuxerSectionSplitAcrossPackets(t *testing.T) {
	programs := make([]PATProgram, 0, 50)
	for i := uint16(1); i <= 50; i++ {
		programs = append(programs, PATProgram{ProgramNumber: i, ProgramMapID: 0x100 + i})
	}
	section := buildPATSection(1, 0, programs)
	withPtr := withPointerField(section)

	// The first packet's payload is filled completely; the rest of the
	// 212-byte section follows in the second packet.
	mid := MpegTsPacketSize - 4
	pkt1 := buildTSPacket(uint16(PIDPAT), true, 0, withPtr[:mid])
	pkt2 := buildTSPacket(uint16(PIDPAT), false, 1, withPtr[mid:])

	dmx := newTestDemuxer(t, pkt1, pkt2)
	d, err := dmx.NextData()
	require.NoError(t, err)
	require.NotNil(t, d.PAT)
	assert.Len(t, d.PAT.Programs, 50)
}

func TestDemuxerVersionChangeResetsTable(t *testing.T) {
	v0 := buildPATSection(1, 0, []PATProgram{{ProgramNumber: 1, ProgramMapID: 0x1000}})
	v1 := buildPATSection(1, 1, []PATProgram{{ProgramNumber: 1, ProgramMapID: 0x1000}, {ProgramNumber: 2, ProgramMapID: 0x1001}})

	pkt0 := buildTSPacket(uint16(PIDPAT), true, 0, withPointerField(v0))
	pkt1 := buildTSPacket(uint16(PIDPAT), true, 1, withPointerField(v1))

	dmx := newTestDemuxer(t, pkt0, pkt1)

	d0, err := dmx.NextData()
	require.NoError(t, err)
	assert.Len(t, d0.PAT.Programs, 1)

	d1, err := dmx.NextData()
	require.NoError(t, err)
	assert.Len(t, d1.PAT.Programs, 2)
}

func TestDemuxerPESReassemblyAcrossPUSI(t *testing.T) {
	pat := buildPATSection(1, 0, []PATProgram{{ProgramNumber: 1, ProgramMapID: 0x1000}})
	patPkt := buildTSPacket(uint16(PIDPAT), true, 0, withPointerField(pat))

	pmt := buildPMTSection(1, 0, 0x101, []PMTElementaryStream{
		{ElementaryPID: 0x101, StreamType: StreamTypeMPEG2Video},
	})
	pmtPkt := buildTSPacket(0x1000, true, 0, withPointerField(pmt))

	// The continuation packet's 184-byte payload is all access-unit data.
	payload := bytes.Repeat([]byte{0xaa}, 284)
	pes := buildPESPacketPayload(StreamIDVideoBase, 90000, payload[:100])
	esPkt1 := buildTSPacket(0x101, true, 0, pes)
	esPkt2 := buildTSPacket(0x101, false, 1, payload[100:])

	// A second PUSI bounds the first access unit.
	pes2 := buildPESPacketPayload(StreamIDVideoBase, 180000, []byte{0xbb})
	esPkt3 := buildTSPacket(0x101, true, 2, pes2)

	dmx := newTestDemuxer(t, patPkt, pmtPkt, esPkt1, esPkt2, esPkt3)

	d, err := dmx.NextData()
	require.NoError(t, err)
	require.NotNil(t, d.PAT)

	d, err = dmx.NextData()
	require.NoError(t, err)
	require.NotNil(t, d.PMT)

	d, err = dmx.NextData()
	require.NoError(t, err)
	require.NotNil(t, d.PES)
	require.NotNil(t, d.PES.PTS)
	assert.Equal(t, int64(90000), d.PES.PTS.Base())
	assert.Equal(t, len(payload), len(d.PES.Data))
	// PAT (188) + PMT (188) precede esPkt1; its payload starts 4 bytes
	// (the header) into the packet: 188+188+4 = 380.
	assert.Equal(t, int64(380), d.PES.Offset)

	_, err = dmx.NextData()
	assert.ErrorIs(t, err, ErrNoMorePackets)
}

// TestDemuxerOffsetAdvancesAcrossAccessUnits checks that the stream
// byte offset stamped on successive PES access units reflects their
// real position in the raw transport stream, not a running total of
// bytes seen on that PID (spec §3, §4.3(d)).
func TestDemuxerOffsetAdvancesAcrossAccessUnits(t *testing.T) {
	pat := buildPATSection(1, 0, []PATProgram{{ProgramNumber: 1, ProgramMapID: 0x1000}})
	patPkt := buildTSPacket(uint16(PIDPAT), true, 0, withPointerField(pat))

	pmt := buildPMTSection(1, 0, 0x101, []PMTElementaryStream{
		{ElementaryPID: 0x101, StreamType: StreamTypeMPEG2Video},
	})
	pmtPkt := buildTSPacket(0x1000, true, 0, withPointerField(pmt))

	pes1 := buildPESPacketPayload(StreamIDVideoBase, 90000, []byte{0x01})
	esPkt1 := buildTSPacket(0x101, true, 0, pes1)
	pes2 := buildPESPacketPayload(StreamIDVideoBase, 180000, []byte{0x02})
	esPkt2 := buildTSPacket(0x101, true, 1, pes2)

	dmx := newTestDemuxer(t, patPkt, pmtPkt, esPkt1, esPkt2)

	_, err := dmx.NextData()
	require.NoError(t, err)
	_, err = dmx.NextData()
	require.NoError(t, err)

	// esPkt2's PUSI bounds esPkt1's access unit, so this single call
	// consumes both packets and returns the first one already.
	d1, err := dmx.NextData()
	require.NoError(t, err)
	require.NotNil(t, d1.PES)
	assert.Equal(t, int64(380), d1.PES.Offset) // 188+188+4

	dmx.Flush()
	d2, err := dmx.NextData()
	require.NoError(t, err)
	require.NotNil(t, d2.PES)
	assert.Equal(t, int64(568), d2.PES.Offset) // 188+188+188+4
}

// TestDemuxerDuplicatePUSIDoesNotReemitCompletedTable checks spec §8's
// Idempotence invariant: resending the exact same PAT packet after its
// table already completed produces no second TableEvent.
func TestDemuxerDuplicatePUSIDoesNotReemitCompletedTable(t *testing.T) {
	section := buildPATSection(1, 0, []PATProgram{{ProgramNumber: 1, ProgramMapID: 0x1000}})
	pkt := buildTSPacket(uint16(PIDPAT), true, 0, withPointerField(section))

	dmx := newTestDemuxer(t, pkt, pkt)

	d, err := dmx.NextData()
	require.NoError(t, err)
	require.NotNil(t, d.PAT)

	_, err = dmx.NextData()
	assert.ErrorIs(t, err, ErrNoMorePackets)
}

// TestDemuxerInterleavedSDTDifferingOriginalNetworkIDKeptSeparate checks
// that two SDT subtables sharing table_id/table_id_extension/version but
// differing original_network_id are never merged into one table, even
// when their sections arrive interleaved (spec §3's identity tuple).
func TestDemuxerInterleavedSDTDifferingOriginalNetworkIDKeptSeparate(t *testing.T) {
	const (
		tsid  = 1
		onidA = 0x1111
		onidB = 0x2222
	)

	aSec0 := buildSDTSection(tsid, onidA, 0, 0, 1, []uint16{0xa0})
	aSec1 := buildSDTSection(tsid, onidA, 0, 1, 1, []uint16{0xa1})
	bSec0 := buildSDTSection(tsid, onidB, 0, 0, 1, []uint16{0xb0})
	bSec1 := buildSDTSection(tsid, onidB, 0, 1, 1, []uint16{0xb1})

	pktA0 := buildTSPacket(uint16(PIDSDT), true, 0, withPointerField(aSec0))
	pktB0 := buildTSPacket(uint16(PIDSDT), true, 1, withPointerField(bSec0))
	pktA1 := buildTSPacket(uint16(PIDSDT), true, 2, withPointerField(aSec1))
	pktB1 := buildTSPacket(uint16(PIDSDT), true, 3, withPointerField(bSec1))

	dmx := newTestDemuxer(t, pktA0, pktB0, pktA1, pktB1)

	seen := map[uint16][]uint16{}
	for i := 0; i < 2; i++ {
		d, err := dmx.NextData()
		require.NoError(t, err)
		require.NotNil(t, d.SDT)
		var ids []uint16
		for _, s := range d.SDT.Services {
			ids = append(ids, s.ServiceID)
		}
		seen[d.SDT.OriginalNetworkID] = ids
	}

	assert.ElementsMatch(t, []uint16{0xa0, 0xa1}, seen[onidA])
	assert.ElementsMatch(t, []uint16{0xb0, 0xb1}, seen[onidB])

	_, err := dmx.NextData()
	assert.ErrorIs(t, err, ErrNoMorePackets)
}

func TestDemuxerFlushEmitsInProgressAccessUnit(t *testing.T) {
	pat := buildPATSection(1, 0, []PATProgram{{ProgramNumber: 1, ProgramMapID: 0x1000}})
	patPkt := buildTSPacket(uint16(PIDPAT), true, 0, withPointerField(pat))

	pmt := buildPMTSection(1, 0, 0x101, []PMTElementaryStream{
		{ElementaryPID: 0x101, StreamType: StreamTypeMPEG2Video},
	})
	pmtPkt := buildTSPacket(0x1000, true, 0, withPointerField(pmt))

	pes := buildPESPacketPayload(StreamIDVideoBase, 90000, []byte{0x01, 0x02, 0x03})
	esPkt := buildTSPacket(0x101, true, 0, pes)

	dmx := newTestDemuxer(t, patPkt, pmtPkt, esPkt)

	_, err := dmx.NextData()
	require.NoError(t, err)
	_, err = dmx.NextData()
	require.NoError(t, err)

	_, err = dmx.NextData()
	assert.ErrorIs(t, err, ErrNoMorePackets) // nothing bounds the access unit yet

	dmx.Flush()
	d, err := dmx.NextData()
	require.NoError(t, err)
	require.NotNil(t, d.PES)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, d.PES.Data)
}

func TestDemuxerBadSyncByteErrors(t *testing.T) {
	buf := buildTSPacket(uint16(PIDPAT), true, 0, []byte{0x00})
	buf[0] = 0x00

	dmx := newTestDemuxer(t, buf)
	_, err := dmx.NextData()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoMorePackets))
}

func TestReassemblerContinuityGapDropsInProgressSection(t *testing.T) {
	programs := make([]PATProgram, 0, 50)
	for i := uint16(1); i <= 50; i++ {
		programs = append(programs, PATProgram{ProgramNumber: i, ProgramMapID: 0x100 + i})
	}
	section := buildPATSection(1, 0, programs)
	withPtr := withPointerField(section)
	mid := MpegTsPacketSize - 4 // a full first payload; the section continues in pkt2

	pkt1 := buildTSPacket(uint16(PIDPAT), true, 0, withPtr[:mid])
	// cc jumps from 0 to 2 instead of 1: a gap, the in-progress section is dropped.
	pkt2 := buildTSPacket(uint16(PIDPAT), false, 2, withPtr[mid:])

	dmx := newTestDemuxer(t, pkt1, pkt2)
	_, err := dmx.NextData()
	assert.ErrorIs(t, err, ErrNoMorePackets)
}

func TestReassemblerScrambledPacketSkipped(t *testing.T) {
	section := buildPATSection(1, 0, []PATProgram{{ProgramNumber: 1, ProgramMapID: 0x1000}})
	pkt := buildTSPacket(uint16(PIDPAT), true, 0, withPointerField(section))
	pkt[3] |= 0xc0 // scrambled with odd key

	dmx := newTestDemuxer(t, pkt)
	_, err := dmx.NextData()
	assert.ErrorIs(t, err, ErrNoMorePackets)
}
