package engine

import (
	"time"

	"github.com/foxseedlab/gijiroku/external/engine/local"
	"github.com/foxseedlab/gijiroku/external/engine/remote"
	"github.com/foxseedlab/gijiroku/internal/config"
	internalengine "github.com/foxseedlab/gijiroku/internal/engine"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*internalengine.Strategy, error) {
		c := do.MustInvoke[*config.Config](i)

		var remoteTranscriber internalengine.Transcriber
		var remoteDiarizer internalengine.Diarizer
		if c.HasRemoteWorker() {
			client := remote.NewClient(c.RemoteWorkerURL)
			remoteTranscriber = client
			remoteDiarizer = client
		}

		var localTranscriber internalengine.Transcriber
		if c.HasLocalTranscriber() {
			localTranscriber = local.NewCloudSpeechTranscriber(local.CloudSpeechConfig{
				ProjectID:       c.GoogleCloudProjectID,
				CredentialsJSON: c.GoogleCloudCredentialsJSON,
				Language:        c.DefaultTranscribeLanguage,
				Location:        c.GoogleCloudSpeechLocation,
				Model:           c.GoogleCloudSpeechModel,
			})
		}
		localDiarizer := local.NewGapDiarizer(local.GapDiarizerConfig{})

		return internalengine.NewStrategy(internalengine.StrategyConfig{
			RemoteTimeout: time.Duration(c.RemoteTimeoutSec) * time.Second,
			RetryBackoff:  time.Duration(c.EngineRetryBackoffMs) * time.Millisecond,
		}, remoteTranscriber, localTranscriber, remoteDiarizer, localDiarizer), nil
	})
}
