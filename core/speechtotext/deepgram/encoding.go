package deepgram

import (
	"fmt"

	"github.com/koscakluka/ema-cookbook/core/audio"
)

// listenEncoding is the subset of audio encodings the listen endpoint accepts
// for raw audio.
type listenEncoding struct {
	sampleRate int
	channels   int
	name       string
}

func convertEncoding(encoding audio.EncodingInfo) (listenEncoding, error) {
	converted := listenEncoding{channels: encoding.ChannelCount()}
	switch encoding.SampleRate {
	case 8000, 16000, 24000, 32000, 48000:
		converted.sampleRate = encoding.SampleRate
	default:
		return listenEncoding{}, fmt.Errorf("unsupported sample rate %d", encoding.SampleRate)
	}

	switch encoding.Format {
	case audio.EncodingLinear16:
		converted.name = "linear16"
	case audio.EncodingALaw, audio.EncodingMulaw:
		if converted.sampleRate != 8000 {
			return listenEncoding{}, fmt.Errorf("%s requires a sample rate of 8000", encoding.Format.Name())
		}
		converted.name = encoding.Format.Name()
	default:
		return listenEncoding{}, fmt.Errorf("unsupported encoding %q", encoding.Format.Name())
	}

	return converted, nil
}
