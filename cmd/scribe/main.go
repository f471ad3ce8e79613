package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	configloader "github.com/foxseedlab/meetingscribe/external/config"
	generatorimpl "github.com/foxseedlab/meetingscribe/external/generator"
	transcriberimpl "github.com/foxseedlab/meetingscribe/external/transcriber"
	"github.com/foxseedlab/meetingscribe/internal/assistant"
	"github.com/foxseedlab/meetingscribe/internal/config"
)

var supportedExtensions = []string{".mp3", ".wav", ".mp4", ".m4a"}

func main() {
	var (
		filePath       string
		question       string
		showTranscript bool
	)
	flag.StringVar(&filePath, "file", "", "Meeting recording to transcribe (mp3, wav, mp4, m4a)")
	flag.StringVar(&question, "question", "", "Question to ask about the meeting")
	flag.BoolVar(&showTranscript, "show-transcript", false, "Print the transcript before the answer")
	flag.Parse()

	if filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: scribe -file meeting.mp3 [-question \"...\"] [-show-transcript]")
		os.Exit(2)
	}
	if !supported(filePath) {
		fmt.Fprintf(os.Stderr, "unsupported file type %q; use one of %s\n", filepath.Ext(filePath), strings.Join(supportedExtensions, ", "))
		os.Exit(2)
	}

	cfg, err := configloader.LoadCore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config validation failed: %v\n", err)
		os.Exit(1)
	}
	initLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, filePath, question, showTranscript); err != nil {
		slog.Error("scribe failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, filePath, question string, showTranscript bool) error {
	stt, err := transcriberimpl.New(cfg)
	if err != nil {
		return err
	}
	gen, err := generatorimpl.New(cfg)
	if err != nil {
		return err
	}
	s := assistant.NewSession(stt, gen, assistant.Options{MaxTranscriptChars: cfg.MaxTranscriptChars})

	transcript, err := s.Transcribe(ctx, filePath)
	if err != nil {
		return fmt.Errorf("transcribe %s: %w", filePath, err)
	}
	if showTranscript || question == "" {
		fmt.Println(transcript.Text)
	}
	if question == "" {
		return nil
	}

	answer, err := s.Ask(ctx, question)
	if err != nil {
		return fmt.Errorf("answer question: %w", err)
	}
	if showTranscript {
		fmt.Println()
	}
	fmt.Printf("Question: %s\nAnswer: %s\n", answer.Question, answer.Text)
	return nil
}

func supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range supportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Logs go to stderr so stdout carries only the transcript and answer.
func initLogger(cfg *config.Config) {
	logLevel := slog.LevelWarn
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}
