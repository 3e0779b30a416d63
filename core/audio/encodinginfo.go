package audio

const (
	DefaultSampleRate = 24000
	DefaultChannels   = 1
	DefaultFormat     = "linear16"

	// CaptureSampleRate is what microphone audio is recorded at.
	CaptureSampleRate = 16000
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
	return e.SampleRate == 0 || e.Format.Name() == ""
}

// ChannelCount is the number of interleaved channels, mono when unset.
func (e EncodingInfo) ChannelCount() int {
	if e.Channels <= 0 {
		return 1
	}
	return e.Channels
}

// FrameSize is the number of bytes a single sample of all channels takes.
func (e EncodingInfo) FrameSize() int {
	return e.Format.ByteSize() * e.ChannelCount()
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

// Clip is a piece of raw audio ready to be played.
type Clip struct {
	Data         []byte
	EncodingInfo EncodingInfo
}
