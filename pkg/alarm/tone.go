package alarm

import (
	"math"
	"time"

	"github.com/teslashibe/go-focus/pkg/audioio"
)

// rampDuration is the fade applied to both ends of a tone to avoid clicks.
const rampDuration = 10 * time.Millisecond

// synthesize renders one sine tone as PCM16.
func synthesize(freq float64, d time.Duration, volume float64, sampleRate, channels int) audioio.AudioChunk {
	frames := int(float64(sampleRate) * d.Seconds())
	ramp := int(float64(sampleRate) * rampDuration.Seconds())
	if ramp*2 > frames {
		ramp = frames / 2
	}

	samples := make([]int16, frames*channels)
	for i := 0; i < frames; i++ {
		gain := volume
		switch {
		case i < ramp:
			gain *= float64(i) / float64(ramp)
		case i >= frames-ramp:
			gain *= float64(frames-1-i) / float64(ramp)
		}

		v := gain * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		s := int16(v * math.MaxInt16)
		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = s
		}
	}

	return audioio.AudioChunk{Samples: samples, SampleRate: sampleRate, Channels: channels}
}
