package audio

// Chunk is a bounded unit of raw audio with a known encoding.
//
// Chunks are immutable once produced: ownership passes from the source to
// whatever consumes it, and the producer must not retain or reuse the
// underlying slice.
type Chunk struct {
	Data     []byte
	Encoding EncodingInfo
}

// NewChunk builds a chunk over data in the given encoding.
func NewChunk(data []byte, encoding EncodingInfo) Chunk {
	return Chunk{Data: data, Encoding: encoding}
}

// Len is the payload length in bytes.
func (c Chunk) Len() int { return len(c.Data) }

// Duration is the chunk's play time in milliseconds, or 0 when the
// encoding is unknown.
func (c Chunk) Duration() int {
	rate := c.Encoding.BytesPerSecond()
	if rate <= 0 {
		return 0
	}
	return len(c.Data) * 1000 / rate
}
