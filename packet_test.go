package tsdemux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePacketBadSize(t *testing.T) {
	_, err := parsePacket(make([]byte, 187))
	assert.ErrorIs(t, err, ErrBadPacketSize)
}

func TestParsePacketBadSyncByte(t *testing.T) {
	buf := buildTSPacket(0x100, true, 0, []byte{0x00})
	buf[0] = 0x00
	_, err := parsePacket(buf)
	assert.ErrorIs(t, err, ErrBadSyncByte)
}

func TestParsePacketHeaderFields(t *testing.T) {
	payload := append([]byte{0x00}, []byte("hello")...)
	buf := buildTSPacket(0x0100, true, 5, payload)

	p, err := parsePacket(buf)
	require.NoError(t, err)
	assert.Equal(t, PID(0x0100), p.Header.PID)
	assert.True(t, p.Header.PayloadUnitStartIndicator)
	assert.True(t, p.Header.HasPayload)
	assert.False(t, p.Header.HasAdaptationField)
	assert.Equal(t, uint8(5), p.Header.ContinuityCounter)
	assert.Equal(t, uint8(ScramblingControlNotScrambled), p.Header.TransportScramblingControl)
}

func TestPayloadSectionSkipsPointerField(t *testing.T) {
	section := []byte("SECTIONBYTES")
	payload := append([]byte{0x02, 0xff, 0xff}, section...) // pointer_field=2, two stuffing bytes skipped
	buf := buildTSPacket(0x10, true, 0, payload)

	p, err := parsePacket(buf)
	require.NoError(t, err)

	got, ok := p.PayloadSection()
	require.True(t, ok)
	assert.True(t, len(got) >= len(section))
	assert.Equal(t, section, got[:len(section)])
}

func TestPayloadSectionNoPUSIPassesThrough(t *testing.T) {
	payload := []byte("continuation bytes here")
	buf := buildTSPacket(0x10, false, 1, payload)

	p, err := parsePacket(buf)
	require.NoError(t, err)

	got, ok := p.PayloadSection()
	require.True(t, ok)
	assert.Equal(t, payload, got[:len(payload)])
}

func TestPayloadPESIgnoresPointerField(t *testing.T) {
	payload := append([]byte{0x02, 0xff, 0xff}, []byte("PESBYTES")...)
	buf := buildTSPacket(0x100, true, 0, payload)

	p, err := parsePacket(buf)
	require.NoError(t, err)

	got, ok := p.PayloadPES()
	require.True(t, ok)
	assert.Equal(t, payload, got[:len(payload)])
}

func TestParsePacketAdaptationFieldPCR(t *testing.T) {
	adaptation := buildPCRAdaptation(27000000, 42)
	buf := buildTSPacketWithAdaptation(0x200, false, 3, adaptation, []byte("payload"))

	p, err := parsePacket(buf)
	require.NoError(t, err)
	require.NotNil(t, p.AdaptationField)
	require.NotNil(t, p.AdaptationField.PCR)
	assert.Equal(t, int64(27000000), p.AdaptationField.PCR.Base())
	assert.Equal(t, int64(42), p.AdaptationField.PCR.Extension())
	assert.True(t, p.AdaptationField.HasPCR)
}

func TestParsePacketNoPayload(t *testing.T) {
	buf := make([]byte, MpegTsPacketSize)
	buf[0] = syncByte
	buf[1] = 0x00
	buf[2] = 0x11
	buf[3] = 0x20 // adaptation only, no payload
	buf[4] = byte(MpegTsPacketSize - 5)

	p, err := parsePacket(buf)
	require.NoError(t, err)
	assert.False(t, p.Header.HasPayload)
	assert.Nil(t, p.Payload)

	_, ok := p.PayloadSection()
	assert.False(t, ok)
}
