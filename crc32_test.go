package tsdemux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDataPat and testDataPmt are complete, CRC-valid PAT/PMT sections
// (no pointer_field), reused verbatim across this package's tests: the
// section wire format these bytes encode hasn't changed.
var (
	testDataPat = []byte{0x00, 0xb0, 0x0d, 0x00, 0x01, 0xe1, 0x00, 0x00, 0x00, 0x01, 0xf0, 0x00, 0xe2, 0x95, 0xf6, 0x9d}
	testDataPmt = []byte{0x02, 0xb0, 0x1d, 0x00, 0x01, 0xf5, 0x00, 0x00, 0xe1, 0x00, 0xf0, 0x00, 0x1b, 0xe1, 0x00, 0x00,
		0x00, 0x0f, 0xe1, 0x04, 0x00, 0x06, 0x0a, 0x04, 0x72, 0x75, 0x73, 0x00, 0x38, 0x92, 0x85, 0xac}
)

func TestComputeCRC32MatchesTrailer(t *testing.T) {
	for _, data := range [][]byte{testDataPat, testDataPmt} {
		trailer := data[len(data)-4:]
		want := uint32(trailer[0])<<24 | uint32(trailer[1])<<16 | uint32(trailer[2])<<8 | uint32(trailer[3])
		got := computeCRC32(data[:len(data)-4])
		assert.Equal(t, want, got)
	}
}

func TestParsePSISectionPAT(t *testing.T) {
	s, err := parsePSISection(testDataPat)
	require.NoError(t, err)
	require.NotNil(t, s.PAT)
	assert.Equal(t, uint16(1), s.PAT.TransportStreamID)
	require.Len(t, s.PAT.Programs, 1)
	assert.Equal(t, uint16(1), s.PAT.Programs[0].ProgramNumber)
	assert.Equal(t, uint16(0x1000), s.PAT.Programs[0].ProgramMapID)
}

func TestParsePSISectionPMT(t *testing.T) {
	s, err := parsePSISection(testDataPmt)
	require.NoError(t, err)
	require.NotNil(t, s.PMT)
	assert.Equal(t, uint16(1), s.PMT.ProgramNumber)
	require.Len(t, s.PMT.ElementaryStreams, 2)
	assert.Equal(t, StreamType(0x1b), s.PMT.ElementaryStreams[0].StreamType)
}

func TestParsePSISectionCorruptedCRCIsNonFatal(t *testing.T) {
	corrupt := make([]byte, len(testDataPat))
	copy(corrupt, testDataPat)
	corrupt[len(corrupt)-1] ^= 0xff // flip the last CRC byte

	s, err := parsePSISection(corrupt)
	assert.ErrorIs(t, err, ErrPSIInvalidCRC32)
	require.NotNil(t, s)
	require.NotNil(t, s.PAT)
	assert.Equal(t, uint16(1), s.PAT.TransportStreamID)
}
