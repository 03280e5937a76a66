package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/google/uuid"
)

// IsPCMWav reports whether path is a WAV file with integer PCM samples,
// which LoadWaveform can read without conversion.
func IsPCMWav(path string) bool {
	if strings.ToLower(filepath.Ext(path)) != ".wav" {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	return dec.IsValidFile() && dec.WavAudioFormat == 1
}

// EnsureWav returns a PCM WAV version of src. Files that already qualify are
// returned as-is; anything else is converted with ffmpeg into workDir and the
// returned cleanup removes the converted file.
func EnsureWav(ctx context.Context, src, workDir string) (string, func(), error) {
	if IsPCMWav(src) {
		return src, func() {}, nil
	}

	if workDir == "" {
		workDir = os.TempDir()
	}
	outputPath := filepath.Join(workDir, fmt.Sprintf("converted_%s.wav", uuid.New().String()))

	// Mono 16-bit PCM, original sample rate
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", src,
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y",
		outputPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(outputPath)
		return "", nil, fmt.Errorf("ffmpeg failed: %w\nOutput: %s", err, string(output))
	}

	return outputPath, func() { os.Remove(outputPath) }, nil
}
