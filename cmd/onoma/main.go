package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crimson-sun/onoma/internal/config"
	"github.com/crimson-sun/onoma/internal/dataset"
	"github.com/crimson-sun/onoma/internal/encode"
	"github.com/crimson-sun/onoma/internal/logging"
	"github.com/crimson-sun/onoma/internal/nn"
	"github.com/crimson-sun/onoma/internal/privacy"
	"github.com/crimson-sun/onoma/internal/sampler"
	"github.com/crimson-sun/onoma/internal/trainer"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogJSON, logging.ParseLevel(cfg.LogLevel))

	// Set up graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nreceived %v, shutting down...\n", sig)
		cancel()
	}()

	alphabet := encode.Default()

	// Acquire the corpus unless it is already extracted.
	if _, err := dataset.Load(cfg.Dataset.DataDir, alphabet); err != nil {
		slog.Info("fetching corpus", "url", cfg.Dataset.URL, "dir", cfg.Dataset.DataDir)
		if err := dataset.Fetch(ctx, cfg.Dataset.URL, cfg.Dataset.DataDir); err != nil {
			log.Fatalf("failed to fetch dataset: %v", err)
		}
	}
	ds, err := dataset.Load(cfg.Dataset.DataDir, alphabet)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}
	slog.Info("corpus loaded", "categories", len(ds.Catalog()), "samples", ds.Len())

	seed := cfg.Dataset.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	split := dataset.BuildSplit(ds, cfg.Dataset.TrainFraction, rng)
	trainSize := dataset.Size(split.Train)
	slog.Info("split built", "train", trainSize, "eval", dataset.Size(split.Eval))

	model, err := nn.New(nn.Config{
		AlphabetSize:  alphabet.Size(),
		EmbeddingSize: cfg.Model.EmbeddingSize,
		HiddenSize:    cfg.Model.HiddenSize,
		NumCategories: len(ds.Catalog()),
	}, rng)
	if err != nil {
		log.Fatalf("failed to create model: %v", err)
	}

	trainSampler, err := sampler.NewRandom(alphabet, cfg.Model.MaxLength,
		cfg.Training.BatchSize, ds.Catalog(), split.Train, rng)
	if err != nil {
		log.Fatalf("failed to create training sampler: %v", err)
	}
	evalSampler, err := sampler.NewExhaustive(alphabet, cfg.Model.MaxLength,
		cfg.Training.BatchSize, ds.Catalog(), split.Eval)
	if err != nil {
		log.Fatalf("failed to create eval sampler: %v", err)
	}

	var (
		opt  privacy.Optimizer
		acct *privacy.Accountant
	)
	if cfg.Privacy.Enabled {
		sampleRate := float64(cfg.Training.BatchSize) / float64(trainSize)
		if sampleRate > 1 {
			sampleRate = 1
		}
		acct, err = privacy.NewAccountant(cfg.Privacy.NoiseMultiplier, sampleRate)
		if err != nil {
			log.Fatalf("failed to create accountant: %v", err)
		}
		opt, err = privacy.NewDPSGD(cfg.Training.LearningRate, cfg.Privacy.ClipNorm,
			cfg.Privacy.NoiseMultiplier, acct, rng)
		if err != nil {
			log.Fatalf("failed to create DP-SGD optimizer: %v", err)
		}
		slog.Info("privacy enabled",
			"noise_multiplier", cfg.Privacy.NoiseMultiplier,
			"clip_norm", cfg.Privacy.ClipNorm,
			"delta", cfg.Privacy.Delta,
			"sample_rate", sampleRate,
		)
	} else {
		opt, err = privacy.NewSGD(cfg.Training.LearningRate)
		if err != nil {
			log.Fatalf("failed to create optimizer: %v", err)
		}
		slog.Info("privacy disabled: training with plain SGD")
	}

	tr, err := trainer.New(trainer.Options{
		Model:       model,
		Optimizer:   opt,
		Train:       trainSampler,
		Eval:        evalSampler,
		Accountant:  acct,
		Delta:       cfg.Privacy.Delta,
		Iterations:  cfg.Training.Iterations,
		ReportEvery: cfg.Training.ReportEvery,
	})
	if err != nil {
		log.Fatalf("failed to create trainer: %v", err)
	}

	if err := tr.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("training error: %v", err)
	}

	if path := cfg.Model.CheckpointPath; path != "" {
		ck := model.Checkpoint(encode.DefaultLetters, cfg.Model.MaxLength, ds.Catalog())
		if err := ck.Save(path); err != nil {
			log.Fatalf("failed to save checkpoint: %v", err)
		}
		slog.Info("checkpoint written", "path", path)
	}
}
