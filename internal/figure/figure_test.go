package figure_test

import (
	"bytes"
	"image/color"
	"image/png"
	"math"
	"path/filepath"

	"github.com/codebuildervaibhav/speech-align-viz/internal/audio"
	. "github.com/codebuildervaibhav/speech-align-viz/internal/figure"
	"github.com/codebuildervaibhav/speech-align-viz/internal/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func silence(seconds float64, rate int) *audio.Waveform {
	return &audio.Waveform{Samples: make([]float32, int(seconds*float64(rate))), SampleRate: rate}
}

func sine(seconds float64, rate int) *audio.Waveform {
	n := int(seconds * float64(rate))
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(0.5 * math.Sin(float64(i)/5))
	}
	return &audio.Waveform{Samples: s, SampleRate: rate}
}

var white = color.RGBA{0xff, 0xff, 0xff, 0xff}

var _ = Describe("Options.Size", func() {
	It("derives the width from the duration", func() {
		w, h := Options{DPI: 100, Height: 4}.Size(10)
		Expect([]int{w, h}).To(Equal([]int{1000, 400}))
	})

	It("caps the automatic width at 300 inches and the pixel limit", func() {
		w, _ := Options{DPI: 100}.Size(3600)
		Expect(w).To(Equal(30000))

		w, _ = Options{DPI: 100, MaxWidthPx: 5000}.Size(3600)
		Expect(w).To(Equal(5000))
	})

	It("keeps very short clips readable", func() {
		w, h := Options{DPI: 100, Height: 0.1}.Size(0.5)
		Expect(w).To(Equal(320))
		Expect(h).To(BeNumerically(">", 90))
	})
})

var _ = Describe("Draw", func() {
	segs := types.Transcript{
		{Text: "hello", StartTime: 1, EndTime: 2},
		{Text: "world", StartTime: 2, EndTime: 4},
	}

	It("shades segment spans and leaves the rest white", func() {
		img := Draw(silence(10, 100), segs, Options{Width: 10, Height: 4, DPI: 100})
		Expect(img.Bounds().Dx()).To(Equal(1000))
		Expect(img.Bounds().Dy()).To(Equal(400))

		Expect(img.RGBAAt(0, 0)).To(Equal(white))
		// inside the first span, above the label
		Expect(img.RGBAAt(158, 26)).ToNot(Equal(white))
		// past every segment
		Expect(img.RGBAAt(900, 26)).To(Equal(white))
	})

	It("alternates span colors", func() {
		img := Draw(silence(10, 100), segs, Options{Width: 10, Height: 4, DPI: 100})
		Expect(img.RGBAAt(158, 26)).ToNot(Equal(img.RGBAAt(300, 26)))
	})

	It("falls back to the transcript length without audio", func() {
		img := Draw(&audio.Waveform{SampleRate: 16000}, segs, Options{DPI: 100, Height: 4})
		Expect(img.Bounds().Dx()).To(Equal(400))
	})
})

var _ = Describe("Render", func() {
	It("writes a decodable PNG", func() {
		var buf bytes.Buffer
		Expect(Render(&buf, sine(2, 200), types.Transcript{{Text: "x", StartTime: 0, EndTime: 1}}, Options{DPI: 100})).To(Succeed())

		img, err := png.Decode(&buf)
		Expect(err).ToNot(HaveOccurred())
		Expect(img.Bounds().Dx()).To(Equal(320))
	})

	It("writes files", func() {
		p := filepath.Join(GinkgoT().TempDir(), "out.png")
		Expect(RenderFile(p, sine(1, 100), nil, Options{Title: "Audio Alignment: a.wav"})).To(Succeed())
		Expect(p).To(BeARegularFile())
	})
})
