package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jgivc/fetchimages/internal/app"
)

const defaultConfigFileName = "config.yml"

func main() {
	cfgFileName := flag.String("c", defaultConfigFileName, "Path to config file")
	outputDir := flag.String("o", "", "Output directory, overrides output_dir from config")
	inputFile := flag.String("i", "", "Read URLs from a text, markdown or html file")
	format := flag.String("format", "", "Input file format: text, markdown or html (default: by extension)")
	base := flag.String("base", "", "Base URL for relative references in markdown and html input")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [URL[,URL...]...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfgSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "c" {
			cfgSet = true
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(*cfgFileName, app.Options{
		ConfigOptional: !cfgSet,
		OutputDir:      *outputDir,
		InputFile:      *inputFile,
		Format:         *format,
		Base:           *base,
		Args:           flag.Args(),
	})

	if err := a.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Cannot start: %s\n", err)
		os.Exit(1)
	}

	_, err := a.Run(ctx)
	a.Stop()

	switch {
	case err == nil:
	case errors.Is(err, app.ErrNoURLs):
		fmt.Fprintln(os.Stderr, "No image URLs given.")
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
