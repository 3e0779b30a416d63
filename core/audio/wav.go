package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var ErrUnsupportedWAV = errors.New("unsupported wav data")

const (
	wavFormatPCM        = 1
	wavFormatALaw       = 6
	wavFormatMulaw      = 7
	wavFormatExtensible = 0xFFFE
)

type wavFormatChunk struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// DecodeWAV extracts the samples of a RIFF/WAVE file. Only 16-bit PCM and
// 8-bit A-law/mu-law data is accepted.
func DecodeWAV(data []byte) (*Clip, error) {
	r := bytes.NewReader(data)

	var header struct {
		RIFF [4]byte
		Size uint32
		WAVE [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: reading header: %w", ErrUnsupportedWAV, err)
	}
	if string(header.RIFF[:]) != "RIFF" || string(header.WAVE[:]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE header", ErrUnsupportedWAV)
	}

	var format *wavFormatChunk
	for {
		var chunk struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: no data chunk", ErrUnsupportedWAV)
			}
			return nil, fmt.Errorf("%w: reading chunk: %w", ErrUnsupportedWAV, err)
		}

		switch string(chunk.ID[:]) {
		case "fmt ":
			format = &wavFormatChunk{}
			if err := binary.Read(r, binary.LittleEndian, format); err != nil {
				return nil, fmt.Errorf("%w: reading fmt chunk: %w", ErrUnsupportedWAV, err)
			}
			if _, err := r.Seek(int64(chunk.Size)-16, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("%w: skipping fmt extension: %w", ErrUnsupportedWAV, err)
			}

		case "data":
			if format == nil {
				return nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrUnsupportedWAV)
			}
			encoding, err := wavEncoding(*format)
			if err != nil {
				return nil, err
			}

			size := int(chunk.Size)
			// Streamed WAVs may carry a placeholder size.
			if size > r.Len() || size == 0 {
				size = r.Len()
			}
			samples := make([]byte, size)
			if _, err := io.ReadFull(r, samples); err != nil {
				return nil, fmt.Errorf("%w: reading data chunk: %w", ErrUnsupportedWAV, err)
			}
			return &Clip{Data: samples, EncodingInfo: encoding}, nil

		default:
			skip := int64(chunk.Size) + int64(chunk.Size%2)
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("%w: skipping chunk: %w", ErrUnsupportedWAV, err)
			}
		}
	}
}

func wavEncoding(format wavFormatChunk) (EncodingInfo, error) {
	info := EncodingInfo{
		SampleRate: int(format.SampleRate),
		Channels:   int(format.Channels),
	}

	switch {
	case (format.AudioFormat == wavFormatPCM || format.AudioFormat == wavFormatExtensible) && format.BitsPerSample == 16:
		info.Format = EncodingLinear16
	case format.AudioFormat == wavFormatALaw && format.BitsPerSample == 8:
		info.Format = EncodingALaw
	case format.AudioFormat == wavFormatMulaw && format.BitsPerSample == 8:
		info.Format = EncodingMulaw
	default:
		return EncodingInfo{}, fmt.Errorf("%w: format %d with %d bits per sample",
			ErrUnsupportedWAV, format.AudioFormat, format.BitsPerSample)
	}

	if info.SampleRate == 0 || info.Channels == 0 {
		return EncodingInfo{}, fmt.Errorf("%w: empty sample rate or channel count", ErrUnsupportedWAV)
	}
	return info, nil
}

// EncodeWAV wraps linear16 samples in a minimal WAV container.
func EncodeWAV(clip Clip) ([]byte, error) {
	if clip.EncodingInfo.Format != EncodingLinear16 {
		return nil, fmt.Errorf("%w: only linear16 can be encoded", ErrUnsupportedWAV)
	}

	channels := clip.EncodingInfo.ChannelCount()
	frameSize := clip.EncodingInfo.FrameSize()
	buf := bytes.Buffer{}
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(clip.Data)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, wavFormatChunk{
		AudioFormat:   wavFormatPCM,
		Channels:      uint16(channels),
		SampleRate:    uint32(clip.EncodingInfo.SampleRate),
		ByteRate:      uint32(clip.EncodingInfo.SampleRate * frameSize),
		BlockAlign:    uint16(frameSize),
		BitsPerSample: 16,
	})
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(clip.Data)))
	buf.Write(clip.Data)
	return buf.Bytes(), nil
}
