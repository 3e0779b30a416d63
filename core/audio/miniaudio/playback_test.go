package miniaudio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProcessAudioDrainsPendingAndFillsSilence(t *testing.T) {
	c := &playbackClient{pending: []byte{1, 2, 3, 4, 5, 6}}
	process := c.processAudio(2)

	out := []byte{9, 9, 9, 9}
	process(out, nil, 2)
	assert.Equal(t, []byte{1, 2, 3, 4}, out)

	out = []byte{9, 9, 9, 9}
	process(out, nil, 2)
	assert.Equal(t, []byte{5, 6, 0, 0}, out)
	assert.Empty(t, c.pending)
}

func TestMarksFireAfterQueuedAudio(t *testing.T) {
	c := &playbackClient{pending: make([]byte, 8)}
	fired := make(chan struct{})
	c.Mark(func() { close(fired) })
	process := c.processAudio(2)

	process(make([]byte, 4), nil, 2)
	select {
	case <-fired:
		t.Fatal("mark fired before its audio was consumed")
	case <-time.After(20 * time.Millisecond):
	}

	process(make([]byte, 4), nil, 2)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("mark did not fire")
	}
	assert.Empty(t, c.marks)
}

func TestClearBufferDropsMarks(t *testing.T) {
	c := &playbackClient{pending: []byte{1, 2}}
	c.Mark(func() {})

	c.ClearBuffer()

	assert.Empty(t, c.pending)
	assert.Empty(t, c.marks)
}
