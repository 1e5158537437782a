package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/slowverb/slowverb/api"
	"github.com/slowverb/slowverb/internal/audio"
	"github.com/slowverb/slowverb/internal/config"
	"github.com/slowverb/slowverb/internal/media"
	"github.com/slowverb/slowverb/internal/remote"
	"github.com/slowverb/slowverb/internal/ui"
	"github.com/slowverb/slowverb/pkg/events"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	configPath := config.GetConfigPath()
	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Scan the queue: CLI arguments first, configured directories otherwise
	roots := os.Args[1:]
	if len(roots) == 0 {
		roots = cfg.MusicDirectories
	}
	if len(roots) == 0 {
		return fmt.Errorf("no tracks: pass files or directories, or set music_directories in %s", configPath)
	}

	tracks, err := media.ScanTracks(ctx, roots, audio.IsSupported)
	if err != nil {
		return fmt.Errorf("scan tracks: %w", err)
	}
	if len(tracks) == 0 {
		return fmt.Errorf("no supported audio files found")
	}

	queue := remote.NewQueue()
	for i := range tracks {
		queue.Add(&tracks[i])
	}

	// Initialize audio engine
	bus := events.NewEventBus()
	defer bus.Close()

	engine := audio.NewEngine(audio.NewSpeakerSink(), bus, audio.Options{
		Mode:     api.ParseRateMode(cfg.RateMode),
		Volume:   cfg.DefaultVolume,
		Params:   api.DefaultEffectParams(),
		Meta:     media.NewWAVWriter(),
		ExportTo: cfg.ExportDirectory,
	})
	engine.Start(ctx)

	// Wire the remote adapter for transport commands and end-of-track policy
	adapter := remote.NewAdapter(engine, queue, bus,
		cfg.PresetA, cfg.PresetB, remote.ParsePolicy(cfg.EndOfTrack))
	go adapter.Run(ctx, nil)

	// Load the first track so the player opens ready to play
	if first := queue.Current(); first != nil {
		if _, err := engine.Load(first.FilePath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: load %s: %v\n", first.FilePath, err)
		}
	}

	// Run UI
	if err := ui.Run(engine, adapter, queue, bus, cfg); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}

	return nil
}
