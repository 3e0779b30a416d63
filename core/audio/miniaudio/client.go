// Package miniaudio plays and records audio through malgo.
package miniaudio

import (
	"context"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-cookbook/core/audio"
)

var _ audio.Device = (*Client)(nil)

type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	playbackClient
	captureClient
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) { logger.Debug("malgo", "message", message) },
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := Client{
		audioContext: audioCtx,
	}

	if err := client.playbackClient.Init(audioCtx, audio.GetDefaultEncodingInfo()); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback client: %w", err)
	}

	// TODO: This should probably start later
	if err := client.playbackClient.Start(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	if err := client.captureClient.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture client: %w", err)
	}

	return &client, nil
}

// Play queues the clip and waits until the device has consumed all of it.
// The playback device is reconfigured when the clip's sample rate or channel
// count differ from the current ones.
func (c *Client) Play(ctx context.Context, clip audio.Clip) error {
	ctx, span := tracer.Start(ctx, "play clip")
	defer span.End()

	if clip.EncodingInfo.Format != audio.EncodingLinear16 {
		return fmt.Errorf("unsupported clip encoding %q", clip.EncodingInfo.Format.Name())
	}
	if err := c.playbackClient.Configure(clip.EncodingInfo); err != nil {
		return fmt.Errorf("failed to configure playback device: %w", err)
	}
	if err := c.playbackClient.SendAudio(clip.Data); err != nil {
		return fmt.Errorf("failed to queue audio: %w", err)
	}

	if err := c.playbackClient.AwaitMark(ctx); err != nil {
		c.playbackClient.ClearBuffer()
		return err
	}
	return nil
}

func (c *Client) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	return c.captureClient.Start(onAudio)
}

func (c *Client) StopCapture() error {
	return c.captureClient.Stop()
}

func (c *Client) Close() {
	_ = c.captureClient.Uninit()
	_ = c.playbackClient.Uninit()
	if c.audioContext != nil {
		_ = c.audioContext.Uninit()
		c.audioContext.Free()
	}
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return c.playbackClient.EncodingInfo()
}

func (c *Client) CaptureEncodingInfo() audio.EncodingInfo {
	return c.captureClient.EncodingInfo()
}
