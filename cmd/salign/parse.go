package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/speech-align-viz/internal/transcript"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	summaryStyle = lipgloss.NewStyle().Faint(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func newParseCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "parse TRANSCRIPT",
		Short: "Parse a transcript and print its segments",
		Long:  "Parse an SRT, WebVTT, TextGrid or JSON transcript into the canonical segment list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := transcript.ParseReader(f, filepath.Base(path))
			if err != nil {
				return fmt.Errorf("failed to parse transcript: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				data, err := json.MarshalIndent(res.Segments, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal segments to JSON: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			printSegments(out, res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the canonical JSON list")

	return cmd
}

func printSegments(w io.Writer, res *transcript.Result) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "START", "END", "DUR", "TEXT").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for i, s := range res.Segments {
		t.Row(
			strconv.Itoa(i),
			strconv.FormatFloat(s.StartTime, 'f', 3, 64),
			strconv.FormatFloat(s.EndTime, 'f', 3, 64),
			strconv.FormatFloat(s.Duration(), 'f', 3, 64),
			s.Text,
		)
	}
	fmt.Fprintln(w, t.Render())

	fmt.Fprintln(w, summaryStyle.Render(fmt.Sprintf("%s: %d segments, %d skipped, %d warnings",
		res.Format, len(res.Segments), res.Skipped, len(res.Warnings))))
	for _, warn := range res.Warnings {
		fmt.Fprintln(w, warnStyle.Render(warn.String()))
	}
}
