package terminal

// LineBufferSize is the capacity of a LineBuffer, terminating newline included
const LineBufferSize = 1024

// LineBuffer accumulates one pending input line
// Append keeps one byte free so Submit can always add the newline
type LineBuffer struct {
	buf [LineBufferSize]byte
	n   int
}

// Append adds a printable byte; fails with ErrLineFull at LineBufferSize-1 bytes
func (b *LineBuffer) Append(c byte) error {
	if b.n >= LineBufferSize-1 {
		return ErrLineFull
	}
	b.buf[b.n] = c
	b.n++
	return nil
}

// Submit returns a copy of the line terminated with '\n', leaving the buffer empty
func (b *LineBuffer) Submit() ([]byte, error) {
	if b.n >= LineBufferSize {
		return nil, ErrLineFull
	}
	b.buf[b.n] = '\n'
	line := append([]byte(nil), b.buf[:b.n+1]...)
	b.n = 0
	return line, nil
}

// Bytes returns the pending line without a newline
func (b *LineBuffer) Bytes() []byte {
	return b.buf[:b.n]
}

// Len returns the number of pending bytes
func (b *LineBuffer) Len() int {
	return b.n
}

// Reset drops the pending line
func (b *LineBuffer) Reset() {
	b.n = 0
}
