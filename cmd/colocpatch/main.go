package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"colocpatch/pkg/config"
	"colocpatch/pkg/export"
	"colocpatch/pkg/loader"
	"colocpatch/pkg/patch"
	"colocpatch/pkg/pipeline"
)

func main() {
	// Parse command line arguments
	chADir := flag.String("channel-a", "", "Directory containing slice images of the first channel")
	chBDir := flag.String("channel-b", "", "Directory containing slice images of the second channel")
	configPath := flag.String("config", "colocpatch.yaml", "Path to YAML configuration file")
	outputDir := flag.String("output", "", "Output directory (overrides config)")
	patchCount := flag.Int("patches", 0, "Number of patches to extract (overrides config)")
	patchSize := flag.String("patch-size", "", "Patch size as Z,Y,X (overrides config)")
	percentile := flag.Float64("percentile", -1, "Threshold percentile in [0,100] (overrides config)")
	flag.Parse()

	// Validate inputs
	if *chADir == "" || *chBDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flag overrides
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *patchCount > 0 {
		cfg.Extraction.PatchCount = *patchCount
	}
	if *patchSize != "" {
		size, err := parsePatchSize(*patchSize)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid patch size: %v\n", err)
			os.Exit(1)
		}
		cfg.Extraction.PatchSize = size
	}
	if *percentile >= 0 {
		cfg.Extraction.Percentile = *percentile
	}

	level := zerolog.InfoLevel
	if !cfg.Output.Verbose {
		level = zerolog.WarnLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Load both channel volumes
	log.Info().Str("dir", *chADir).Str("channel", cfg.Channels.NameA).Msg("loading channel A")
	chA, err := loader.LoadSliceDir(*chADir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load channel A")
	}

	log.Info().Str("dir", *chBDir).Str("channel", cfg.Channels.NameB).Msg("loading channel B")
	chB, err := loader.LoadSliceDir(*chBDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load channel B")
	}

	params := pipeline.Params{
		PatchCount:   cfg.Extraction.PatchCount,
		PatchSize:    cfg.Extraction.PatchSize,
		Percentile:   cfg.Extraction.Percentile,
		ChannelNames: [2]string{cfg.Channels.NameA, cfg.Channels.NameB},
	}

	start := time.Now()
	result, err := pipeline.New(params).WithLogger(log).Run(chA, chB)
	if err != nil {
		log.Fatal().Err(err).Msg("extraction failed")
	}

	log.Info().
		Float64("mandersCoefficient", result.Colocalization.Coefficient).
		Float64("colocPercent", result.ColocPercentage).
		Int("requested", result.Requested).
		Int("found", result.Found).
		Dur("elapsed", time.Since(start)).
		Msg("extraction complete")

	writer := export.NewWriter(cfg.Output.Dir, log)
	if err := writer.WriteRun(result, params); err != nil {
		log.Fatal().Err(err).Msg("export failed")
	}
	if cfg.Output.SaveColocMap {
		if err := writer.WriteColocMap(result.Colocalization.Mask); err != nil {
			log.Fatal().Err(err).Msg("failed to export colocalization map")
		}
	}
}

// parsePatchSize parses a Z,Y,X triple such as "64,64,64".
func parsePatchSize(s string) (patch.Size, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return patch.Size{}, fmt.Errorf("expected Z,Y,X, got %q", s)
	}
	dims := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return patch.Size{}, fmt.Errorf("bad dimension %q: %v", part, err)
		}
		dims[i] = n
	}
	return patch.Size{Depth: dims[0], Height: dims[1], Width: dims[2]}, nil
}
