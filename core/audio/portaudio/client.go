// Package portaudio plays and records audio through PortAudio.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-cookbook/core/audio"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const DefaultBufferSize = 1024

var logger = otelslog.NewLogger("github.com/koscakluka/ema-cookbook/core/audio/portaudio")

var _ audio.Device = (*Client)(nil)

type Client struct {
	bufferSize int

	output   *portaudio.Stream
	out      []int16
	encoding audio.EncodingInfo

	input  *portaudio.Stream
	in     []int16
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	captureMu sync.Mutex
}

func NewClient(bufferSize int) (*Client, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	client := &Client{bufferSize: bufferSize}
	if err := client.openOutput(audio.GetDefaultEncodingInfo()); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// openOutput must be called with mu held or before the client is shared.
func (c *Client) openOutput(encoding audio.EncodingInfo) error {
	if c.output != nil {
		_ = c.output.Stop()
		_ = c.output.Close()
		c.output = nil
	}

	channels := encoding.ChannelCount()
	c.out = make([]int16, c.bufferSize*channels)
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(encoding.SampleRate), c.bufferSize, c.out)
	if err != nil {
		return fmt.Errorf("failed to open portaudio output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("failed to start portaudio output stream: %w", err)
	}

	c.output = stream
	c.encoding = audio.EncodingInfo{
		SampleRate: encoding.SampleRate,
		Channels:   channels,
		Format:     audio.EncodingLinear16,
	}
	return nil
}

// Play writes the clip to the output stream buffer by buffer. The stream is
// reopened when the clip's sample rate or channel count differ.
func (c *Client) Play(ctx context.Context, clip audio.Clip) error {
	if clip.EncodingInfo.Format != audio.EncodingLinear16 {
		return fmt.Errorf("unsupported clip encoding %q", clip.EncodingInfo.Format.Name())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.encoding.SampleRate != clip.EncodingInfo.SampleRate || c.encoding.Channels != clip.EncodingInfo.ChannelCount() {
		if err := c.openOutput(clip.EncodingInfo); err != nil {
			return err
		}
	}

	bufferBytes := len(c.out) * 2
	data := clip.Data
	for len(data) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk := data[:min(bufferBytes, len(data))]
		data = data[len(chunk):]

		clear(c.out)
		if err := binary.Read(bytes.NewReader(chunk), binary.LittleEndian, c.out[:len(chunk)/2]); err != nil {
			return fmt.Errorf("failed to decode samples: %w", err)
		}
		if err := c.output.Write(); err != nil {
			return fmt.Errorf("failed to write to portaudio stream: %w", err)
		}
	}
	return nil
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.encoding
}

func (c *Client) CaptureEncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.CaptureSampleRate,
		Channels:   1,
		Format:     audio.EncodingLinear16,
	}
}

// StartCapture reads the default input device on its own goroutine until
// StopCapture is called or ctx is done.
func (c *Client) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	c.captureMu.Lock()
	defer c.captureMu.Unlock()
	if c.input != nil {
		return nil
	}

	c.in = make([]int16, c.bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, audio.CaptureSampleRate, c.bufferSize, c.in)
	if err != nil {
		return fmt.Errorf("failed to open portaudio input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("failed to start portaudio input stream: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	c.input = stream
	c.cancel = cancel
	c.done = make(chan struct{})

	go func(in []int16, done chan struct{}) {
		defer close(done)
		for ctx.Err() == nil {
			if err := stream.Read(); err != nil {
				logger.Warn("failed to read from portaudio stream", "error", err)
				continue
			}

			audioBuffer := bytes.Buffer{}
			_ = binary.Write(&audioBuffer, binary.LittleEndian, in)
			onAudio(audioBuffer.Bytes())
		}
	}(c.in, c.done)

	return nil
}

func (c *Client) StopCapture() error {
	c.captureMu.Lock()
	defer c.captureMu.Unlock()
	if c.input == nil {
		return nil
	}

	c.cancel()
	<-c.done
	err := c.input.Stop()
	_ = c.input.Close()
	c.input = nil
	if err != nil {
		return fmt.Errorf("failed to stop portaudio input stream: %w", err)
	}
	return nil
}

func (c *Client) Close() {
	_ = c.StopCapture()

	c.mu.Lock()
	if c.output != nil {
		_ = c.output.Stop()
		_ = c.output.Close()
		c.output = nil
	}
	c.mu.Unlock()

	_ = portaudio.Terminate()
}
