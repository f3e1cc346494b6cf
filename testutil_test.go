package tsdemux

// Test helpers shared across this package's test files: byte-level
// encoders mirroring packet.go/psi_header.go's decoders, used to build
// known-good fixtures without depending on any external capture file.

// buildTSPacket assembles one 188-byte transport-stream packet with a
// payload-only header (no adaptation field), padding payload with 0xff
// stuffing bytes as real multiplexers do.
func buildTSPacket(pid uint16, pusi bool, cc uint8, payload []byte) []byte {
	pkt := make([]byte, MpegTsPacketSize)
	pkt[0] = syncByte

	pkt[1] = byte(pid>>8) & 0x1f
	if pusi {
		pkt[1] |= 0x40
	}
	pkt[2] = byte(pid)

	pkt[3] = 0x10 | (cc & 0xf) // adaptation_field_control=01 (payload only)

	n := copy(pkt[4:], payload)
	for i := 4 + n; i < len(pkt); i++ {
		pkt[i] = 0xff
	}
	return pkt
}

// buildTSPacketWithAdaptation assembles a packet carrying an
// adaptation field (built verbatim, not padded) followed by payload.
func buildTSPacketWithAdaptation(pid uint16, pusi bool, cc uint8, adaptation, payload []byte) []byte {
	pkt := make([]byte, MpegTsPacketSize)
	pkt[0] = syncByte

	pkt[1] = byte(pid>>8) & 0x1f
	if pusi {
		pkt[1] |= 0x40
	}
	pkt[2] = byte(pid)

	pkt[3] = 0x30 | (cc & 0xf) // adaptation_field_control=11 (adaptation + payload)

	off := 4
	off += copy(pkt[off:], adaptation)
	n := copy(pkt[off:], payload)
	off += n
	for i := off; i < len(pkt); i++ {
		pkt[i] = 0xff
	}
	return pkt
}

// buildPCRAdaptation builds a minimal adaptation field carrying only a
// PCR, sized exactly length+1 bytes (length byte + length payload).
func buildPCRAdaptation(base, extension int64) []byte {
	pcr := (uint64(base) << 15) | (uint64(0x3f) << 9) | uint64(extension&0x1ff)
	b := make([]byte, 8) // length + flags + 6-byte PCR
	b[0] = 7              // following bytes: flags(1) + PCR(6)
	b[1] = 0x10           // PCR_flag set, nothing else
	b[2] = byte(pcr >> 40)
	b[3] = byte(pcr >> 32)
	b[4] = byte(pcr >> 24)
	b[5] = byte(pcr >> 16)
	b[6] = byte(pcr >> 8)
	b[7] = byte(pcr)
	return b
}

// buildPATSection builds a complete, CRC-valid PAT section (no
// pointer_field) for one or more programs.
func buildPATSection(transportStreamID uint16, version uint8, programs []PATProgram) []byte {
	body := make([]byte, 0, 5+4*len(programs))
	body = append(body, byte(transportStreamID>>8), byte(transportStreamID))
	body = append(body, 0xc0|((version&0x1f)<<1)|0x1) // reserved(2)=11, version, current_next=1
	body = append(body, 0x00)                          // section_number
	body = append(body, 0x00)                          // last_section_number
	for _, p := range programs {
		body = append(body, byte(p.ProgramNumber>>8), byte(p.ProgramNumber))
		body = append(body, 0xe0|byte(p.ProgramMapID>>8), byte(p.ProgramMapID))
	}
	return finishSection(TableIDPAT, body)
}

// buildPMTSection builds a complete, CRC-valid PMT section with no
// program descriptors.
func buildPMTSection(programNumber uint16, version uint8, pcrPID uint16, streams []PMTElementaryStream) []byte {
	body := make([]byte, 0, 9+5*len(streams))
	body = append(body, byte(programNumber>>8), byte(programNumber))
	body = append(body, 0xc0|((version&0x1f)<<1)|0x1)
	body = append(body, 0x00, 0x00) // section_number, last_section_number
	body = append(body, 0xe0|byte(pcrPID>>8), byte(pcrPID))
	body = append(body, 0xf0, 0x00) // reserved+program_info_length=0
	for _, s := range streams {
		body = append(body, byte(s.StreamType))
		body = append(body, 0xe0|byte(s.ElementaryPID>>8), byte(s.ElementaryPID))
		body = append(body, 0xf0, 0x00) // reserved+ES_info_length=0
	}
	return finishSection(TableIDPMT, body)
}

// finishSection prepends the 3-byte fixed header (section_syntax
// indicator always 1, private_bit 0) and appends a valid trailing
// CRC-32, given a table_id and the bytes following the fixed header
// (syntax header + payload, CRC excluded).
func finishSection(tableID TableID, body []byte) []byte {
	length := len(body) + 4 // + CRC
	out := make([]byte, 0, 3+length)
	out = append(out, byte(tableID))
	out = append(out, 0x80|byte(length>>8)&0x0f) // section_syntax_indicator=1, reserved=0
	out = append(out, byte(length))
	out = append(out, body...)

	crc := computeCRC32(out)
	out = append(out, byte(crc>>24), byte(crc>>16), byte(crc>>8), byte(crc))
	return out
}

// withPointerField prepends a pointer_field of 0 ahead of a section, as
// a real PUSI-flagged packet's payload carries.
func withPointerField(section []byte) []byte {
	return append([]byte{0x00}, section...)
}

// buildSDTSection builds a complete, CRC-valid SDT section with the
// given service_ids as zero-descriptor entries.
func buildSDTSection(transportStreamID, originalNetworkID uint16, version, sectionNumber, lastSectionNumber uint8, serviceIDs []uint16) []byte {
	body := make([]byte, 0, 8+5*len(serviceIDs))
	body = append(body, byte(transportStreamID>>8), byte(transportStreamID))
	body = append(body, 0xc0|((version&0x1f)<<1)|0x1)
	body = append(body, sectionNumber)
	body = append(body, lastSectionNumber)
	body = append(body, byte(originalNetworkID>>8), byte(originalNetworkID))
	body = append(body, 0xff) // reserved for future use
	for _, sid := range serviceIDs {
		body = append(body, byte(sid>>8), byte(sid))
		body = append(body, 0xfc)       // reserved=111111, EIT_schedule=0, EIT_present_following=0
		body = append(body, 0x00, 0x00) // running_status=0, free_CA_mode=0, descriptors_loop_length=0
	}
	return finishSection(TableIDSDTVariant1, body)
}

// buildPESPacketPayload builds a minimal PES payload: start code
// prefix, stream ID, packet_length, an optional-header-less body (for
// stream IDs with HasOptionalHeader()==false) or a PTS-only optional
// header.
func buildPESPacketPayload(streamID StreamID, pts int64, data []byte) []byte {
	var out []byte
	out = append(out, 0x00, 0x00, 0x01, byte(streamID))

	if !streamID.HasOptionalHeader() {
		out = append(out, byte(len(data)>>8), byte(len(data)))
		out = append(out, data...)
		return out
	}

	optional := buildPESOptionalHeaderPTSOnly(pts)
	packetLength := len(optional) + len(data)
	out = append(out, byte(packetLength>>8), byte(packetLength))
	out = append(out, optional...)
	out = append(out, data...)
	return out
}

func buildPESOptionalHeaderPTSOnly(pts int64) []byte {
	h := make([]byte, 3)
	h[0] = 0x80 // marker bits 10, rest 0
	h[1] = 0x80 // PTS_DTS_indicator = 10 (PTS only)
	h[2] = 5    // header_data_length

	ptsBytes := encodePTSOrDTS(0x2, pts) // prefix 0010 for PTS-only
	return append(h, ptsBytes...)
}

// encodePTSOrDTS packs a 33-bit base into the standard 5-byte
// PTS/DTS bit-interleaved layout, with the given 4-bit prefix.
func encodePTSOrDTS(prefix byte, base int64) []byte {
	b := make([]byte, 5)
	b[0] = (prefix << 4) | byte((base>>30)&0x7)<<1 | 0x1
	b[1] = byte((base >> 22) & 0xff)
	b[2] = byte((base>>15)&0x7f)<<1 | 0x1
	b[3] = byte((base >> 7) & 0xff)
	b[4] = byte(base&0x7f)<<1 | 0x1
	return b
}
