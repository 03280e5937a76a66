package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/speech-align-viz/internal/audio"
	"github.com/codebuildervaibhav/speech-align-viz/internal/figure"
	"github.com/codebuildervaibhav/speech-align-viz/internal/transcript"
)

func newFigureCmd() *cobra.Command {
	var (
		output string
		title  string
		opts   figure.Options
	)

	cmd := &cobra.Command{
		Use:   "figure AUDIO TRANSCRIPT",
		Short: "Export a static alignment image",
		Long: "Render the waveform of AUDIO with one shaded span per segment of TRANSCRIPT " +
			"and write it as a PNG. Non-WAV audio is converted with ffmpeg.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			audioPath, transcriptPath := args[0], args[1]
			if output == "" {
				output = strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath)) + "_alignment.png"
			}
			opts.Title = title
			if opts.Title == "" {
				opts.Title = "Audio Alignment: " + filepath.Base(audioPath)
			}

			// Parse first so a bad transcript fails before any conversion
			f, err := os.Open(transcriptPath)
			if err != nil {
				return err
			}
			res, err := transcript.ParseReader(f, filepath.Base(transcriptPath))
			f.Close()
			if err != nil {
				return fmt.Errorf("failed to parse transcript: %w", err)
			}
			for _, w := range res.Warnings {
				log.Warn(w.String())
			}

			workDir, err := os.MkdirTemp("", "salign-*")
			if err != nil {
				return err
			}
			defer os.RemoveAll(workDir)

			wavPath, cleanup, err := audio.EnsureWav(cmd.Context(), audioPath, workDir)
			if err != nil {
				return err
			}
			defer cleanup()

			wave, err := audio.LoadWaveform(wavPath)
			if err != nil {
				return fmt.Errorf("failed to load audio: %w", err)
			}

			if err := figure.RenderFile(output, wave, res.Segments, opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved static image to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output PNG path (default <audio>_alignment.png)")
	cmd.Flags().StringVar(&title, "title", "", "Figure title")
	cmd.Flags().Float64Var(&opts.Width, "width", 0, "Width in inches (default min(300, duration))")
	cmd.Flags().Float64Var(&opts.Height, "height", 4, "Height in inches")
	cmd.Flags().IntVar(&opts.DPI, "dpi", 100, "Pixels per inch")
	cmd.Flags().IntVar(&opts.MaxWidthPx, "max-width-px", 30000, "Upper bound on the image width in pixels")

	return cmd
}
