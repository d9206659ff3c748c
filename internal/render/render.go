// Package render formats analysis results for the terminal.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/nadzzz/shouldi/internal/message"
)

// Output formats.
const (
	FormatHuman = "human"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

const barWidth = 20

// view is the printable form of a result; audio bytes are summarized.
type view struct {
	RequestID    string   `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Probability  *int     `json:"probability" yaml:"probability"`
	Verdict      string   `json:"verdict,omitempty" yaml:"verdict,omitempty"`
	Transcript   string   `json:"transcript,omitempty" yaml:"transcript,omitempty"`
	Reason       string   `json:"reason,omitempty" yaml:"reason,omitempty"`
	AudioFormat  string   `json:"audio_format,omitempty" yaml:"audio_format,omitempty"`
	AudioBytes   int      `json:"audio_bytes,omitempty" yaml:"audio_bytes,omitempty"`
	AudioSeconds float64  `json:"audio_seconds,omitempty" yaml:"audio_seconds,omitempty"`
	Failure      string   `json:"failure,omitempty" yaml:"failure,omitempty"`
	Warnings     []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func toView(res message.Result) view {
	return view{
		RequestID:    res.RequestID,
		Probability:  res.Probability,
		Verdict:      string(res.Verdict),
		Transcript:   res.Transcript,
		Reason:       res.Reason,
		AudioFormat:  res.AudioFormat,
		AudioBytes:   len(res.Audio),
		AudioSeconds: res.AudioSeconds,
		Failure:      string(res.Failure),
		Warnings:     res.Warnings,
	}
}

// Result writes res to w in the given format. Unknown formats render as human.
func Result(w io.Writer, res message.Result, format string) error {
	switch format {
	case FormatJSON:
		out, err := json.MarshalIndent(toView(res), "", "  ")
		if err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case FormatYAML:
		out, err := yaml.Marshal(toView(res))
		if err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		_, err = w.Write(out)
		return err
	default:
		human(w, res)
		return nil
	}
}

func human(w io.Writer, res message.Result) {
	red := color.New(color.FgRed, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan, color.Bold)

	fmt.Fprintln(w)

	if res.Transcript != "" {
		fmt.Fprintf(w, "Heard: %q\n\n", res.Transcript)
	}

	// Sentinel results show only the error.
	if res.Failure != "" {
		red.Fprintf(w, "✗ %s\n", res.Reason)
		printWarnings(w, yellow, res.Warnings)
		return
	}

	if res.Probability != nil {
		p := *res.Probability
		c := red
		if res.Verdict == message.VerdictYes {
			c = green
		}
		c.Fprintf(w, "%s  %3d%%  %s\n", strings.ToUpper(string(res.Verdict)), p, Bar(p))
	} else {
		yellow.Fprintln(w, "No probability given.")
	}

	if res.Reason != "" {
		fmt.Fprintln(w)
		cyan.Fprintln(w, "Reason:")
		fmt.Fprintf(w, "   %s\n", res.Reason)
	}

	if len(res.Audio) > 0 {
		fmt.Fprintln(w)
		if res.AudioSeconds > 0 {
			fmt.Fprintf(w, "🔊 %s, %.1fs\n", res.AudioFormat, res.AudioSeconds)
		} else {
			fmt.Fprintf(w, "🔊 %s, %d bytes\n", res.AudioFormat, len(res.Audio))
		}
	}

	printWarnings(w, yellow, res.Warnings)
}

func printWarnings(w io.Writer, c *color.Color, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, warn := range warnings {
		c.Fprintf(w, "⚠ %s\n", warn)
	}
}

// Bar draws a fixed-width progress bar for a probability in [0, 100].
func Bar(probability int) string {
	if probability < 0 {
		probability = 0
	}
	if probability > 100 {
		probability = 100
	}
	filled := probability * barWidth / 100
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"
}
