package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/jengzang/records-timeline-go/internal/config"
	"github.com/jengzang/records-timeline-go/internal/logging"
	"github.com/jengzang/records-timeline-go/internal/replay"
	"github.com/jengzang/records-timeline-go/internal/timeline"
)

func main() {
	configPath := flag.String("config", "", "HCL file with timeline thresholds")
	userID := flag.String("user", "replay", "User ID attached to the replayed stream")
	logLevel := flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] samples.csv\n\nReads timestamp,lat,lon,speed,accuracy rows (\"-\" for stdin) and prints timeline events as JSON lines.\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger, err := logging.New(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logger.Sync()

	cfg, err := config.LoadTimelineConfig(*configPath)
	if err != nil {
		logger.Fatal("failed to load timeline config", zap.Error(err))
	}

	var input io.Reader = os.Stdin
	if path := flag.Arg(0); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			logger.Fatal("failed to open samples", zap.Error(err))
		}
		defer f.Close()
		input = f
	}

	points, err := replay.ReadPoints(input)
	if err != nil {
		logger.Fatal("failed to parse samples", zap.Error(err))
	}

	processor := timeline.NewStreamProcessor(timeline.NewDataGapService(), timeline.NewFinalizationService(logger), logger)
	written, err := replay.Run(processor, *userID, points, cfg, os.Stdout)
	if err != nil {
		logger.Fatal("replay failed", zap.Error(err), zap.Int("eventsWritten", written))
	}

	logger.Info("replay finished", zap.Int("points", len(points)), zap.Int("events", written))
}
