package miniaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-cookbook/core/audio"
)

type playbackClient struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	encoding     audio.EncodingInfo

	// pending holds audio not yet handed to the device, marks fire once the
	// audio queued before them has been handed over.
	pending []byte
	marks   []playbackMark

	mu       sync.Mutex
	bufferMu sync.Mutex
}

type playbackMark struct {
	position int
	callback func()
}

func (c *playbackClient) Init(audioContext *malgo.AllocatedContext, encoding audio.EncodingInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.audioContext = audioContext
	return c.initDevice(encoding)
}

func (c *playbackClient) initDevice(encoding audio.EncodingInfo) error {
	sampleRate := uint32(encoding.SampleRate)
	channels := encoding.ChannelCount()
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = sampleRate
	config.Playback.Format = format
	config.Playback.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	config.Periods = 4

	device, err := malgo.InitDevice(
		c.audioContext.Context,
		config,
		malgo.DeviceCallbacks{Data: c.processAudio(bytesPerFrame)},
	)
	if err != nil {
		return err
	}

	c.device = device
	c.encoding = audio.EncodingInfo{
		SampleRate: encoding.SampleRate,
		Channels:   channels,
		Format:     audio.EncodingLinear16,
	}
	return nil
}

// Configure reinitializes the device when encoding does not match the one it
// was opened with. A started device is started again.
func (c *playbackClient) Configure(encoding audio.EncodingInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil &&
		c.encoding.SampleRate == encoding.SampleRate &&
		c.encoding.Channels == encoding.ChannelCount() {
		return nil
	}
	if c.audioContext == nil {
		return fmt.Errorf("device not initialized")
	}

	restart := c.device == nil || c.device.IsStarted()
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	c.ClearBuffer()

	if err := c.initDevice(encoding); err != nil {
		return fmt.Errorf("failed to reinitialize playback device: %w", err)
	}
	if restart {
		if err := c.device.Start(); err != nil {
			return fmt.Errorf("failed to start playback device: %w", err)
		}
	}

	logger.Debug("playback device reconfigured", "sample_rate", encoding.SampleRate, "channels", encoding.ChannelCount())
	return nil
}

func (c *playbackClient) EncodingInfo() audio.EncodingInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.encoding
}

func (c *playbackClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	return nil
}

func (c *playbackClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback device: %w", err)
	}

	c.ClearBuffer()
	return nil
}

func (c *playbackClient) SendAudio(audio []byte) error {
	c.mu.Lock()
	started := c.device != nil && c.device.IsStarted()
	c.mu.Unlock()
	if !started {
		return fmt.Errorf("device not started")
	}

	c.bufferMu.Lock()
	defer c.bufferMu.Unlock()
	c.pending = append(c.pending, audio...)
	return nil
}

func (c *playbackClient) ClearBuffer() {
	c.bufferMu.Lock()
	defer c.bufferMu.Unlock()
	c.pending = nil
	c.marks = nil
}

// AwaitMark blocks until everything queued so far has been handed to the
// device.
func (c *playbackClient) AwaitMark(ctx context.Context) error {
	done := make(chan struct{})
	c.Mark(func() { close(done) })

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *playbackClient) Mark(callback func()) {
	c.bufferMu.Lock()
	defer c.bufferMu.Unlock()
	c.marks = append(c.marks, playbackMark{
		position: len(c.pending),
		callback: callback,
	})
}

func (c *playbackClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	c.device.Uninit()
	c.device = nil

	return nil
}

func (c *playbackClient) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := min(int(frameCount)*bytesPerFrame, len(pOutput))

		c.bufferMu.Lock()
		n := copy(pOutput[:need], c.pending)
		c.pending = c.pending[n:]
		due := c.passMarks(n)
		c.bufferMu.Unlock()

		clear(pOutput[n:need])

		if len(due) > 0 {
			go func() {
				for _, mark := range due {
					mark.callback()
				}
			}()
		}
	}
}

// passMarks moves all marks forward by consumed bytes and returns the ones
// that have been reached. Must be called with bufferMu held.
func (c *playbackClient) passMarks(consumed int) []playbackMark {
	passed := 0
	for i := range c.marks {
		if c.marks[i].position <= consumed {
			passed++
			continue
		}
		c.marks[i].position -= consumed
	}
	if passed == 0 {
		return nil
	}

	due := c.marks[:passed]
	c.marks = c.marks[passed:]
	return due
}
