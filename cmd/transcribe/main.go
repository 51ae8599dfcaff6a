package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"scriba/internal/asr"
)

func main() {
	var (
		inputFile  = flag.String("i", "", "Input media file (any format ffmpeg can read)")
		outputFile = flag.String("o", "", "Output file (default: stdout)")
		format     = flag.String("format", "text", "Output format: text, json, srt, vtt")
		modelDir   = flag.String("models", "models", "Root directory holding Whisper model folders")
		model      = flag.String("model", "medium", "Whisper model name")
		precision  = flag.String("precision", "auto", "Model precision: auto or int8")
		language   = flag.String("lang", "pt", "Transcription language")
		verbose    = flag.Bool("v", false, "Verbose output")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -i talk.mp4\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i talk.mp4 -lang en -format srt -o talk.srt\n", os.Args[0])
	}

	flag.Parse()

	if *inputFile == "" {
		fmt.Fprintf(os.Stderr, "Error: input file is required\n\n")
		flag.Usage()
		os.Exit(1)
	}
	if _, err := os.Stat(*inputFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: input file not found: %s\n", *inputFile)
		os.Exit(1)
	}
	switch *format {
	case "text", "json", "srt", "vtt":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid format %q. Must be: text, json, srt, or vtt\n", *format)
		os.Exit(1)
	}

	logger := zap.NewNop()
	if *verbose {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	engine := asr.NewSherpaEngine(*modelDir, logger)
	defer engine.Close()
	transcriber := asr.NewTranscriber(asr.NewFFmpegTranscoder(), engine, *language, logger)

	var progress func(float64)
	if *verbose {
		progress = func(f float64) {
			fmt.Fprintf(os.Stderr, "\rprogress: %3.0f%%", f*100)
		}
	}

	tr, err := transcriber.Transcribe(context.Background(), *inputFile, *language, *model, *precision, progress)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nError: transcription failed: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		fmt.Fprintln(os.Stderr)
	}

	var rendered string
	switch *format {
	case "text":
		rendered = tr.Text + "\n"
	case "json":
		data, err := json.MarshalIndent(tr, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		rendered = string(data) + "\n"
	case "srt":
		rendered = tr.SRT()
	case "vtt":
		rendered = tr.VTT()
	}

	if *outputFile == "" {
		fmt.Print(rendered)
		return
	}
	if err := os.WriteFile(*outputFile, []byte(rendered), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to write output: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		fmt.Fprintf(os.Stderr, "Wrote %s\n", *outputFile)
	}
}
