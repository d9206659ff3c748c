package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nadzzz/shouldi/internal/config"
	"github.com/nadzzz/shouldi/internal/message"
	"github.com/nadzzz/shouldi/internal/render"
	grpctransport "github.com/nadzzz/shouldi/internal/transport/grpc"
)

type askOptions struct {
	image       string
	audio       string
	language    string
	output      string
	audioOut    string
	noSearch    bool
	temperature float64
	rate        string
	gender      string
	server      string
	verbose     bool
}

func newAskCmd(configFile *string) *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask [QUESTION]",
		Short: "Ask a yes/no question, optionally about an image or by voice",
		Long: `Ask the model whether you should do something.

Examples:
  # Text question with web search context
  shouldi ask "Should I buy NVDA this week?"

  # Image question, saving the spoken reason
  shouldi ask --image banana.jpg "Is this ripe enough to eat?" --audio-out reason.mp3

  # Spoken question recorded to a file
  shouldi ask --audio question.wav

  # Image only, in Korean, as JSON
  shouldi ask --image menu.png --lang ko -o json

  # Ask a running server over gRPC
  shouldi ask --server localhost:50051 "Should I take the job offer?"`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, *configFile, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVar(&opts.image, "image", "", "path to an image to analyze")
	cmd.Flags().StringVar(&opts.audio, "audio", "", "path to a recorded question, used when no question is typed")
	cmd.Flags().StringVarP(&opts.language, "lang", "l", "", "locale tag for speech output (default from config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", render.FormatHuman, "output format (human, json, yaml)")
	cmd.Flags().StringVar(&opts.audioOut, "audio-out", "", "write the spoken reason to this file")
	cmd.Flags().BoolVar(&opts.noSearch, "no-search", false, "disable web search augmentation")
	cmd.Flags().Float64Var(&opts.temperature, "temperature", 0, "sampling temperature override")
	cmd.Flags().StringVar(&opts.rate, "rate", "", "speaking rate (slow, normal, fast)")
	cmd.Flags().StringVar(&opts.gender, "gender", "", "voice gender (female, male)")
	cmd.Flags().StringVar(&opts.server, "server", "", "gRPC address of a running shouldi server")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")

	return cmd
}

func runAsk(cmd *cobra.Command, configFile, question string, opts *askOptions) error {
	req := &message.Request{
		Question:   question,
		Language:   opts.language,
		SkipSearch: opts.noSearch,
		Voice: message.VoiceParams{
			Rate:   message.Rate(opts.rate),
			Gender: message.Gender(opts.gender),
		},
	}
	if !req.Voice.Rate.Valid() {
		return fmt.Errorf("unknown rate %q", opts.rate)
	}
	if cmd.Flags().Changed("temperature") {
		req.Generation.Temperature = opts.temperature
	}
	if opts.image != "" {
		image, err := os.ReadFile(opts.image)
		if err != nil {
			return fmt.Errorf("reading image: %w", err)
		}
		req.Image = image
	}
	if opts.audio != "" {
		audio, err := os.ReadFile(opts.audio)
		if err != nil {
			return fmt.Errorf("reading audio: %w", err)
		}
		req.Audio = audio
		req.AudioFormat = audioFormat(opts.audio)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if !opts.verbose {
		cfg.Logging = config.LoggingConfig{Level: "error", Format: "text"}
	}
	config.SetupLogging(cfg.Logging)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " Thinking..."
	if opts.output == render.FormatHuman {
		s.Start()
	}

	var res message.Result
	if opts.server != "" {
		res, err = askRemote(ctx, opts.server, req)
	} else {
		res, err = askLocal(ctx, cfg, req)
	}
	s.Stop()
	if err != nil {
		return err
	}

	if err := render.Result(cmd.OutOrStdout(), res, opts.output); err != nil {
		return err
	}

	if opts.audioOut != "" {
		if err := saveAudio(cmd.ErrOrStderr(), opts.audioOut, res); err != nil {
			return err
		}
	}

	if res.Failure != "" {
		return fmt.Errorf("analysis failed: %s", res.Failure)
	}
	return nil
}

// audioTypes covers the containers the transcribers accept. Platform mime
// tables disagree on most of them.
var audioTypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/ogg",
	".flac": "audio/flac",
	".webm": "audio/webm",
	".m4a":  "audio/mp4",
}

// audioFormat guesses a recording's content type from its file extension.
func audioFormat(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := audioTypes[ext]; ok {
		return ct
	}
	ct := mime.TypeByExtension(ext)
	if ct == "" {
		return "audio/wav"
	}
	ct, _, _ = strings.Cut(ct, ";")
	return ct
}

func askLocal(ctx context.Context, cfg *config.Config, req *message.Request) (message.Result, error) {
	comps, err := build(cfg)
	if err != nil {
		return message.Result{}, err
	}
	defer comps.Close()
	return comps.analyzer.Analyze(ctx, req), nil
}

func askRemote(ctx context.Context, addr string, req *message.Request) (message.Result, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return message.Result{}, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	res, err := grpctransport.Analyze(ctx, conn, req)
	if err != nil {
		return message.Result{}, fmt.Errorf("remote analyze: %w", err)
	}
	return *res, nil
}

func saveAudio(stderr io.Writer, path string, res message.Result) error {
	if len(res.Audio) == 0 {
		color.New(color.FgYellow).Fprintln(stderr, "⚠ no audio to save")
		return nil
	}
	if err := os.WriteFile(path, res.Audio, 0o644); err != nil {
		return fmt.Errorf("writing audio: %w", err)
	}
	fmt.Fprintf(stderr, "audio saved to %s (%s)\n", path, res.AudioFormat)
	return nil
}
