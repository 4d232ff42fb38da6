package deepgram

import (
	"fmt"

	"github.com/lumenvoice/lumen-core/core/audio"
)

type encodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

type encodingFormat string

func (e encodingFormat) Name() string { return string(e) }

const (
	encodingLinear16 encodingFormat = "linear16"
	encodingALaw     encodingFormat = "alaw"
	encodingMulaw    encodingFormat = "mulaw"
)

func convertEncoding(encoding audio.EncodingInfo) (*encodingInfo, error) {
	converted := encodingInfo{}
	switch encoding.SampleRate {
	case 8000, 16000, 24000, 32000, 48000:
		converted.SampleRate = encoding.SampleRate
	default:
		return nil, fmt.Errorf("unsupported sample rate %d", encoding.SampleRate)
	}

	switch encoding.Format {
	case audio.EncodingLinear16:
		converted.Format = encodingLinear16
	case audio.EncodingALaw:
		converted.Format = encodingALaw
		if converted.SampleRate != 8000 {
			return nil, fmt.Errorf("alaw requires an 8000 Hz sample rate")
		}
	case audio.EncodingMulaw:
		converted.Format = encodingMulaw
		if converted.SampleRate != 8000 {
			return nil, fmt.Errorf("mulaw requires an 8000 Hz sample rate")
		}
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding.Format.Name())
	}

	return &converted, nil
}
