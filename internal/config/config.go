package config

import (
	"os"
	"strconv"
)

// Config holds all onoma configuration.
type Config struct {
	Dataset  DatasetConfig
	Model    ModelConfig
	Training TrainingConfig
	Privacy  PrivacyConfig
	LogLevel string
	LogJSON  bool
}

// DatasetConfig holds dataset acquisition and split settings.
type DatasetConfig struct {
	URL           string
	DataDir       string
	TrainFraction float64
	Seed          int64 // 0 = nondeterministic
}

// ModelConfig holds classifier architecture settings.
type ModelConfig struct {
	MaxLength      int
	EmbeddingSize  int
	HiddenSize     int
	CheckpointPath string // empty = no checkpoint written
}

// TrainingConfig holds training-loop settings.
type TrainingConfig struct {
	BatchSize    int
	LearningRate float64
	Iterations   int
	ReportEvery  int
}

// PrivacyConfig holds the DP-SGD settings.
type PrivacyConfig struct {
	Enabled         bool
	NoiseMultiplier float64
	ClipNorm        float64
	Delta           float64
}

// Load reads configuration from environment variables with sensible defaults.
// Defaults target the standard surname corpus.
func Load() Config {
	return Config{
		Dataset: DatasetConfig{
			URL:           getenv("ONOMA_DATASET_URL", "https://download.pytorch.org/tutorial/data.zip"),
			DataDir:       getenv("ONOMA_DATA_DIR", "data"),
			TrainFraction: getenvFloat("ONOMA_TRAIN_FRACTION", 0.8),
			Seed:          getenvInt64("ONOMA_SEED", 0),
		},
		Model: ModelConfig{
			MaxLength:      getenvInt("ONOMA_MAX_LENGTH", 15),
			EmbeddingSize:  getenvInt("ONOMA_EMBEDDING_SIZE", 64),
			HiddenSize:     getenvInt("ONOMA_HIDDEN_SIZE", 128),
			CheckpointPath: os.Getenv("ONOMA_CHECKPOINT_PATH"),
		},
		Training: TrainingConfig{
			BatchSize:    getenvInt("ONOMA_BATCH_SIZE", 800),
			LearningRate: getenvFloat("ONOMA_LEARNING_RATE", 2.0),
			Iterations:   getenvInt("ONOMA_ITERATIONS", 1000),
			ReportEvery:  getenvInt("ONOMA_REPORT_EVERY", 100),
		},
		Privacy: PrivacyConfig{
			Enabled:         getenvBool("ONOMA_PRIVATE", true),
			NoiseMultiplier: getenvFloat("ONOMA_NOISE_MULTIPLIER", 1.0),
			ClipNorm:        getenvFloat("ONOMA_CLIP_NORM", 1.5),
			Delta:           getenvFloat("ONOMA_DELTA", 8e-5),
		},
		LogLevel: getenv("ONOMA_LOG_LEVEL", "info"),
		LogJSON:  getenvBool("ONOMA_LOG_JSON", false),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
