package config

import "fmt"

type Config struct {
	Env                        string
	DatabaseURL                string
	DefaultTranscribeLanguage  string
	RemoteWorkerURL            string
	RemoteTimeoutSec           int
	EngineRetryBackoffMs       int
	MaxChunkDurationSec        int
	MinChunkDurationSec        int
	SilenceSearchWindowSec     int
	MinSilenceGapMs            int
	VADMode                    int
	PipelineWorkerCount        int
	FailedChunkTolerance       float64
	BoundaryMergeEpsilonMs     int
	ProgressWebhookURL         string
	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.MaxChunkDurationSec <= 0 {
		return fmt.Errorf("MAX_CHUNK_DURATION_SEC must be positive, got %d", c.MaxChunkDurationSec)
	}
	if c.MinChunkDurationSec <= 0 || c.MinChunkDurationSec > c.MaxChunkDurationSec {
		return fmt.Errorf("MIN_CHUNK_DURATION_SEC must be in (0, MAX_CHUNK_DURATION_SEC], got %d", c.MinChunkDurationSec)
	}
	if c.SilenceSearchWindowSec <= 0 || c.SilenceSearchWindowSec > c.MaxChunkDurationSec {
		return fmt.Errorf("SILENCE_SEARCH_WINDOW_SEC must be in (0, MAX_CHUNK_DURATION_SEC], got %d", c.SilenceSearchWindowSec)
	}
	// A short tail merges into its neighbor, so the merged chunk can reach
	// max + min. Keeping min within the search window keeps every chunk
	// under max + window.
	if c.MinChunkDurationSec > c.SilenceSearchWindowSec {
		return fmt.Errorf("MIN_CHUNK_DURATION_SEC must not exceed SILENCE_SEARCH_WINDOW_SEC, got %d > %d", c.MinChunkDurationSec, c.SilenceSearchWindowSec)
	}
	if c.VADMode < 0 || c.VADMode > 3 {
		return fmt.Errorf("VAD_MODE must be between 0 and 3, got %d", c.VADMode)
	}
	if c.PipelineWorkerCount <= 0 {
		return fmt.Errorf("PIPELINE_WORKER_COUNT must be positive, got %d", c.PipelineWorkerCount)
	}
	if c.FailedChunkTolerance < 0 || c.FailedChunkTolerance > 1 {
		return fmt.Errorf("FAILED_CHUNK_TOLERANCE must be between 0 and 1, got %g", c.FailedChunkTolerance)
	}
	if c.RemoteTimeoutSec <= 0 {
		return fmt.Errorf("REMOTE_TIMEOUT_SEC must be positive, got %d", c.RemoteTimeoutSec)
	}
	if c.HasLocalTranscriber() && (c.GoogleCloudProjectID == "" || c.GoogleCloudCredentialsJSON == "") {
		return fmt.Errorf("GOOGLE_CLOUD_PROJECT_ID and GOOGLE_CLOUD_CREDENTIALS_JSON must be set together")
	}
	if !c.HasRemoteWorker() && !c.HasLocalTranscriber() {
		return fmt.Errorf("at least one of REMOTE_WORKER_URL or GOOGLE_CLOUD_PROJECT_ID must be configured")
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "DEFAULT_TRANSCRIBE_LANGUAGE", value: c.DefaultTranscribeLanguage},
	}
}

// HasLocalTranscriber reports whether the in-process speech engine is
// configured. Transcription falls back to it when the remote worker fails.
func (c *Config) HasLocalTranscriber() bool {
	return c.GoogleCloudProjectID != "" || c.GoogleCloudCredentialsJSON != ""
}

func (c *Config) HasRemoteWorker() bool {
	return c.RemoteWorkerURL != ""
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
