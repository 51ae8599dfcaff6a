package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"scriba/internal/fetch"
)

func main() {
	var (
		outDir       = flag.String("o", ".", "Output directory")
		format       = flag.String("format", "mp4", "Container format: mp4 or webm")
		quality      = flag.String("quality", "best", "Quality: best, worst, or a height like 720p")
		audioOnly    = flag.Bool("audio", false, "Download audio only, transcoded to mp3")
		extractAudio = flag.Bool("extract-audio", false, "Also produce an mp3 next to the video")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <URL>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s https://www.youtube.com/watch?v=dQw4w9WgXcQ\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -quality 720p -extract-audio <URL>\n", os.Args[0])
	}

	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	url := flag.Arg(0)

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fetcher := fetch.NewYouTube(logger)
	opts := fetch.Options{
		Format:       *format,
		Quality:      *quality,
		AudioOnly:    *audioOnly,
		ExtractAudio: *extractAudio,
	}

	progress := func(f float64) {
		fmt.Fprintf(os.Stderr, "\rdownloading: %3.0f%%", f*100)
	}

	result, primary, auxiliary, err := fetch.Acquire(context.Background(), fetcher, url, opts, *outDir, progress)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Title:    %s\n", result.Title)
	fmt.Printf("Duration: %.1fs\n", result.Duration)
	fmt.Printf("Primary:  %s (%d bytes)\n", primary, result.FileSize)
	for _, file := range auxiliary {
		fmt.Printf("Also:     %s\n", file)
	}
}
