package audioio

import (
	"context"
	"io"
	"time"
)

// AudioChunk is a block of interleaved PCM16 samples.
type AudioChunk struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Bytes returns the chunk as little-endian PCM16.
func (c *AudioChunk) Bytes() []byte {
	buf := make([]byte, len(c.Samples)*2)
	for i, s := range c.Samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}

// Duration returns how long the chunk plays for.
func (c *AudioChunk) Duration() time.Duration {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// Sink plays audio to a speaker.
type Sink interface {
	// Start opens the output device. Write fails until Start succeeds.
	Start(ctx context.Context) error

	// Stop halts playback. Safe to call multiple times.
	Stop() error

	// Write queues a chunk for playback. It may block while the device
	// buffer is full.
	Write(ctx context.Context, chunk AudioChunk) error

	// Flush waits until queued audio has been handed to the device.
	Flush(ctx context.Context) error

	// Clear drops queued audio immediately, cutting off whatever is
	// currently sounding.
	Clear() error

	Config() Config

	// Name returns the backend name ("exec", "mock").
	Name() string

	// Close releases all resources. A closed sink cannot be restarted.
	io.Closer
}

// SinkStats contains statistics about a sink.
type SinkStats struct {
	ChunksWritten  int64  `json:"chunks_written"`
	SamplesWritten int64  `json:"samples_written"`
	Clears         int64  `json:"clears"`
	Running        bool   `json:"running"`
	Backend        string `json:"backend"`
}

// SinkWithStats extends Sink with statistics.
type SinkWithStats interface {
	Sink
	Stats() SinkStats
}
