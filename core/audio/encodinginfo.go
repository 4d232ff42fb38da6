package audio

const (
	DefaultSampleRate = 16000
	DefaultChannels   = 1
	DefaultFormat     = "linear16"
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{
		SampleRate: DefaultSampleRate,
		Channels:   DefaultChannels,
		Format:     encodingFormat(DefaultFormat),
	}
}

type EncodingInfo struct {
	SampleRate int
	Channels   int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Channels == 0 || e.Format.Name() == ""
}

// Equal reports whether two encodings describe the same wire format.
func (e EncodingInfo) Equal(other EncodingInfo) bool {
	return e.SampleRate == other.SampleRate &&
		e.Channels == other.Channels &&
		e.Format == other.Format
}

// BitDepth is the number of bits per sample of the encoding's format.
func (e EncodingInfo) BitDepth() int {
	return e.Format.ByteSize() * 8
}

// BytesPerSecond is the wire rate of a stream in this encoding.
func (e EncodingInfo) BytesPerSecond() int {
	return e.SampleRate * e.Channels * e.Format.ByteSize()
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingALaw:
		return 0x55
	case EncodingMulaw:
		return 0xFF
	case EncodingLinear16:
		return 0
	}

	return 0
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)
