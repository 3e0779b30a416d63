package texttospeech

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/koscakluka/ema-cookbook/core/audio"
)

var ErrEmptyText = errors.New("no text to synthesize")

type Format string

const (
	FormatMP3 Format = "MP3"
	FormatWAV Format = "WAV"
)

// Speech is synthesized audio. Long texts are synthesized in several
// segments, each a complete file in Format.
type Speech struct {
	Format   Format
	Segments [][]byte
}

// Bytes concatenates all segments. This is only a playable file for formats
// that tolerate concatenation, like MP3.
func (s *Speech) Bytes() []byte {
	if s == nil {
		return nil
	}
	size := 0
	for _, segment := range s.Segments {
		size += len(segment)
	}
	out := make([]byte, 0, size)
	for _, segment := range s.Segments {
		out = append(out, segment...)
	}
	return out
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string, opts ...SynthesisOption) (*Speech, error)
}

type SynthesisOptions struct {
	VoiceID      string
	Format       Format
	EncodingInfo audio.EncodingInfo
}

type SynthesisOption func(*SynthesisOptions)

func WithVoice(voiceID string) SynthesisOption {
	return func(o *SynthesisOptions) {
		if voiceID == "" {
			return
		}
		o.VoiceID = voiceID
	}
}

func WithFormat(format Format) SynthesisOption {
	return func(o *SynthesisOptions) { o.Format = format }
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) SynthesisOption {
	return func(o *SynthesisOptions) {
		if encodingInfo.IsZero() {
			// TODO: Issue warning
			return
		}

		o.EncodingInfo = encodingInfo
	}
}

// SplitText breaks text into pieces of at most max bytes, preferring to cut
// after a sentence end, then after whitespace. Surrounding whitespace of each
// piece is trimmed and empty pieces are dropped.
func SplitText(text string, max int) []string {
	text = strings.TrimSpace(text)
	if max <= 0 || len(text) <= max {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	var pieces []string
	for len(text) > max {
		// One byte of lookahead lets a piece end exactly at max.
		window := text[:max+1]
		cut := lastSentenceEnd(window)
		if cut <= 0 {
			cut = strings.LastIndexFunc(window, unicode.IsSpace)
		}
		if cut <= 0 {
			cut = max
			// Never split a multi-byte rune.
			for cut > 0 && !isRuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				cut = max
			}
		}

		if piece := strings.TrimSpace(text[:cut]); piece != "" {
			pieces = append(pieces, piece)
		}
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		pieces = append(pieces, text)
	}
	return pieces
}

// lastSentenceEnd returns the index just after the last '.', '!' or '?' that
// is followed by whitespace, or -1.
func lastSentenceEnd(text string) int {
	for i := len(text) - 2; i >= 0; i-- {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] == ' ' || text[i+1] == '\n' || text[i+1] == '\t' {
				return i + 1
			}
		}
	}
	return -1
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
