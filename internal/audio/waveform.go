package audio

import (
	"errors"
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrNotWav is returned when a file is not a readable PCM WAV
var ErrNotWav = errors.New("not a PCM WAV file")

// Waveform is a mono signal with samples scaled to [-1, 1]
type Waveform struct {
	Samples    []float32
	SampleRate int
}

// Span is the sample range covered by one envelope column
type Span struct {
	Min, Max float32
}

// LoadWaveform decodes a PCM WAV file, averaging channels down to mono.
func LoadWaveform(path string) (*Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotWav)
	}
	if dec.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%s: unsupported WAV encoding %d: %w", path, dec.WavAudioFormat, ErrNotWav)
	}

	var buf *goaudio.IntBuffer
	buf, err = dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return fromIntBuffer(buf, int(dec.BitDepth))
}

func fromIntBuffer(buf *goaudio.IntBuffer, bitDepth int) (*Waveform, error) {
	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("missing sample rate: %w", ErrNotWav)
	}
	chans := buf.Format.NumChannels
	if chans <= 0 {
		chans = 1
	}

	var (
		scale  = float64(int64(1) << (bitDepth - 1))
		offset float64
	)
	if bitDepth == 8 {
		// 8-bit WAV is unsigned
		offset = 128
	}

	frames := len(buf.Data) / chans
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < chans; c++ {
			sum += (float64(buf.Data[i*chans+c]) - offset) / scale
		}
		samples[i] = float32(sum / float64(chans))
	}

	return &Waveform{Samples: samples, SampleRate: buf.Format.SampleRate}, nil
}

// Duration returns the signal length in seconds
func (w *Waveform) Duration() float64 {
	if w.SampleRate == 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Peak returns the largest absolute sample value
func (w *Waveform) Peak() float32 {
	var peak float64
	for _, s := range w.Samples {
		peak = math.Max(peak, math.Abs(float64(s)))
	}
	return float32(peak)
}

// Envelope splits the signal into n equal columns and returns the min and
// max sample of each. Columns past the end of a short signal are zero.
func (w *Waveform) Envelope(n int) []Span {
	if n <= 0 {
		return nil
	}
	spans := make([]Span, n)
	total := len(w.Samples)
	if total == 0 {
		return spans
	}

	for i := 0; i < n; i++ {
		lo := i * total / n
		hi := (i + 1) * total / n
		if hi <= lo {
			continue
		}
		span := Span{Min: w.Samples[lo], Max: w.Samples[lo]}
		for _, s := range w.Samples[lo+1 : hi] {
			if s < span.Min {
				span.Min = s
			}
			if s > span.Max {
				span.Max = s
			}
		}
		spans[i] = span
	}
	return spans
}
