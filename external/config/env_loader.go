package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/gijiroku/internal/config"
)

type envConfig struct {
	Env                        string  `env:"ENV" envDefault:"production"`
	DatabaseURL                string  `env:"DATABASE_URL,required"`
	DefaultTranscribeLanguage  string  `env:"DEFAULT_TRANSCRIBE_LANGUAGE" envDefault:"en-US"`
	RemoteWorkerURL            string  `env:"REMOTE_WORKER_URL"`
	RemoteTimeoutSec           int     `env:"REMOTE_TIMEOUT_SEC" envDefault:"120"`
	EngineRetryBackoffMs       int     `env:"ENGINE_RETRY_BACKOFF_MS" envDefault:"500"`
	MaxChunkDurationSec        int     `env:"MAX_CHUNK_DURATION_SEC" envDefault:"30"`
	MinChunkDurationSec        int     `env:"MIN_CHUNK_DURATION_SEC" envDefault:"5"`
	SilenceSearchWindowSec     int     `env:"SILENCE_SEARCH_WINDOW_SEC" envDefault:"5"`
	MinSilenceGapMs            int     `env:"MIN_SILENCE_GAP_MS" envDefault:"300"`
	VADMode                    int     `env:"VAD_MODE" envDefault:"2"`
	PipelineWorkerCount        int     `env:"PIPELINE_WORKER_COUNT" envDefault:"4"`
	FailedChunkTolerance       float64 `env:"FAILED_CHUNK_TOLERANCE" envDefault:"0.5"`
	BoundaryMergeEpsilonMs     int     `env:"BOUNDARY_MERGE_EPSILON_MS" envDefault:"150"`
	ProgressWebhookURL         string  `env:"PROGRESS_WEBHOOK_URL"`
	GoogleCloudProjectID       string  `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string  `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string  `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleCloudSpeechModel     string  `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"chirp_3"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		DatabaseURL:                raw.DatabaseURL,
		DefaultTranscribeLanguage:  raw.DefaultTranscribeLanguage,
		RemoteWorkerURL:            raw.RemoteWorkerURL,
		RemoteTimeoutSec:           raw.RemoteTimeoutSec,
		EngineRetryBackoffMs:       raw.EngineRetryBackoffMs,
		MaxChunkDurationSec:        raw.MaxChunkDurationSec,
		MinChunkDurationSec:        raw.MinChunkDurationSec,
		SilenceSearchWindowSec:     raw.SilenceSearchWindowSec,
		MinSilenceGapMs:            raw.MinSilenceGapMs,
		VADMode:                    raw.VADMode,
		PipelineWorkerCount:        raw.PipelineWorkerCount,
		FailedChunkTolerance:       raw.FailedChunkTolerance,
		BoundaryMergeEpsilonMs:     raw.BoundaryMergeEpsilonMs,
		ProgressWebhookURL:         raw.ProgressWebhookURL,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
