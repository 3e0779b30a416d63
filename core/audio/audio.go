// Package audio holds the encoding description shared by speech clients and
// audio devices, plus the device contracts the cookbook plays speech through.
package audio

import "context"

// Player plays clips on an output device.
type Player interface {
	// Play blocks until the clip has been handed to the device in full or ctx
	// is done.
	Play(ctx context.Context, clip Clip) error
	// EncodingInfo is the encoding the device currently plays natively.
	EncodingInfo() EncodingInfo
}

// Recorder captures audio from an input device.
type Recorder interface {
	// StartCapture calls onAudio with raw samples until StopCapture is called.
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
	CaptureEncodingInfo() EncodingInfo
}

type Device interface {
	Player
	Recorder
	Close()
}
