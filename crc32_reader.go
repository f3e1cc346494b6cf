package tsdemux

// CRC32Reader wraps an io.Reader, accumulating a CRC-32 over every byte
// that passes through Read. Used to validate a PSI/SI section's
// trailing CRC_32 field against the bytes that precede it without a
// second pass over the buffer.
type CRC32Reader struct {
	r   byteReaderSource
	crc uint32
}

// byteReaderSource is the minimal io.Reader contract CRC32Reader needs;
// named so this file has no import beyond what it actually uses.
type byteReaderSource interface {
	Read(p []byte) (int, error)
}

// NewCRC32Reader returns a CRC32Reader wrapping r.
func NewCRC32Reader(r byteReaderSource) *CRC32Reader {
	return &CRC32Reader{r: r, crc: crc32Polynomial}
}

func (c *CRC32Reader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.crc = updateCRC32(c.crc, p[:n])
	}
	return n, err
}

// ReadByte reads one byte through Read. It lets a bitio reader take
// bytes from a CRC32Reader one at a time instead of buffering ahead, so
// the CRC-32 covers exactly the bytes consumed so far.
func (c *CRC32Reader) ReadByte() (byte, error) {
	var b [1]byte
	for {
		n, err := c.Read(b[:])
		if n == 1 {
			return b[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}

// CRC32 returns the CRC-32 accumulated so far.
func (c *CRC32Reader) CRC32() uint32 {
	return c.crc
}
