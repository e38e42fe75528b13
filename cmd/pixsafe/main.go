// Command pixsafe is the interactive and flag-driven front end for hiding a
// directory's contents across a set of PNG cover images, and extracting it
// back out.
//
// Flag-driven invocation mirrors the teacher's cmd/wicos64-server: every
// path and the run mode can be supplied on the command line for CI use.
// With no -mode given, the program falls back to the original tool's
// interactive 1/2 prompt.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/pixsafe/pixsafe/internal/config"
	"github.com/pixsafe/pixsafe/internal/logging"
	"github.com/pixsafe/pixsafe/internal/stego"
	"github.com/pixsafe/pixsafe/internal/stegoerr"
	"github.com/pixsafe/pixsafe/internal/version"
)

func main() {
	var (
		mode         string
		yes          bool
		configPath   string
		envFile      string
		dataPath     string
		inputPath    string
		processedDir string
		extractedDir string
		logLevel     string
		showVersion  bool
	)
	flag.StringVar(&mode, "mode", "", "operation to run: encode or decode (omit for the interactive prompt)")
	flag.BoolVar(&yes, "yes", false, "skip the confirmation prompt")
	flag.StringVar(&configPath, "config", "", "path to pixsafe.config.json")
	flag.StringVar(&envFile, "env", ".env", "path to an optional .env file of PIXSAFE_* overrides")
	flag.StringVar(&dataPath, "data", "", "override the configured data-to-hide path")
	flag.StringVar(&inputPath, "input", "", "override the configured input-photos path")
	flag.StringVar(&processedDir, "processed", "", "override the configured processed-photos path")
	flag.StringVar(&extractedDir, "extracted", "", "override the configured extracted-data path")
	flag.StringVar(&logLevel, "log-level", "", "override the configured log level (debug|info|warn|error)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version.Get().String())
		return
	}

	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pixsafe:", err)
		os.Exit(1)
	}
	if dataPath != "" {
		cfg.DataToHide = dataPath
	}
	if inputPath != "" {
		cfg.InputPhotos = inputPath
	}
	if processedDir != "" {
		cfg.ProcessedPhotos = processedDir
	}
	if extractedDir != "" {
		cfg.ExtractedData = extractedDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	log := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel))
	ctx := logging.WithLogger(context.Background(), log)

	reader := bufio.NewReader(os.Stdin)
	if mode == "" {
		mode = promptMode(reader)
	}
	mode = strings.ToLower(strings.TrimSpace(mode))

	switch mode {
	case "encode", "1", "hide":
		runEncode(ctx, cfg, reader, yes)
	case "decode", "2", "extract":
		runDecode(ctx, cfg)
	default:
		fmt.Fprintf(os.Stderr, "pixsafe: unrecognized mode %q (want encode or decode)\n", mode)
		os.Exit(1)
	}
}

func promptMode(r *bufio.Reader) string {
	fmt.Println("What would you like to do?")
	fmt.Println("  1) Hide a file or directory inside a set of cover images")
	fmt.Println("  2) Extract previously hidden data from a set of images")
	fmt.Print("> ")
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}

func runEncode(ctx context.Context, cfg config.Config, reader *bufio.Reader, yes bool) {
	log := logging.Logger(ctx)

	if !yes {
		size, err := stego.PreviewPayloadSize(cfg.DataToHide)
		if err != nil {
			fail(err)
		}
		fmt.Printf("About to hide %q (%s) inside images from %q, writing results to %q.\n",
			cfg.DataToHide, stego.FormatSize(size), cfg.InputPhotos, cfg.ProcessedPhotos)
		fmt.Print("Proceed? [y/N] ")
		line, _ := reader.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		if answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return
		}
	}

	var bar *progressbar.ProgressBar
	if cfg.ShowProgressBar {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("encoding"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)
	}

	report, err := stego.Encode(ctx, stego.Options{
		DataPath:  cfg.DataToHide,
		InputDir:  cfg.InputPhotos,
		OutputDir: cfg.ProcessedPhotos,
		Progress: func(name string, index, total int, fraction float64) {
			if bar != nil {
				bar.Set(index)
				bar.ChangeMax(total)
			}
			log.Info().Str("image", name).Float64("complete_pct", fraction*100).
				Msgf("(%.1f%% complete)", fraction*100)
		},
	})
	if err != nil {
		fail(err)
	}

	fmt.Printf("Hid %s across %d of %d images.\n", stego.FormatSize(report.PayloadBytes), report.ImagesUsed, report.ImagesTotal)
	if len(report.UnusedImages) > 0 {
		fmt.Printf("%d cover images carried no payload bits: %s\n", len(report.UnusedImages), strings.Join(report.UnusedImages, ", "))
	}
}

func runDecode(ctx context.Context, cfg config.Config) {
	log := logging.Logger(ctx)

	var bar *progressbar.ProgressBar
	if cfg.ShowProgressBar {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("decoding"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)
	}

	report, err := stego.Decode(ctx, stego.Options{
		InputDir:     cfg.ProcessedPhotos,
		ExtractedDir: cfg.ExtractedData,
		Progress: func(name string, index, total int, fraction float64) {
			if bar != nil {
				bar.Set(index)
				bar.ChangeMax(total)
			}
			log.Info().Str("image", name).Float64("complete_pct", fraction*100).
				Msgf("(%.1f%% complete)", fraction*100)
		},
	})
	if err != nil {
		fail(err)
	}

	fmt.Printf("Extracted %s from %d images into %q.\n", stego.FormatSize(report.PayloadBytes), report.ImagesTotal, cfg.ExtractedData)
}

func fail(err error) {
	kind := "Unknown"
	if se, ok := err.(*stegoerr.Error); ok {
		kind = string(se.Kind)
	}
	fmt.Fprintf(os.Stderr, "pixsafe: %s: %v\n", kind, err)
	os.Exit(1)
}
