package pipeline

import (
	"time"

	"github.com/foxseedlab/gijiroku/internal/audio"
	"github.com/foxseedlab/gijiroku/internal/config"
	"github.com/foxseedlab/gijiroku/internal/engine"
	"github.com/foxseedlab/gijiroku/internal/progress"
	"github.com/foxseedlab/gijiroku/internal/repository"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Controller, error) {
		cfg := do.MustInvoke[*config.Config](i)
		decoder := do.MustInvoke[audio.Decoder](i)
		chunker := do.MustInvoke[*audio.Chunker](i)
		strategy := do.MustInvoke[*engine.Strategy](i)
		repo := do.MustInvoke[repository.Repository](i)
		sink := do.MustInvoke[progress.Sink](i)

		pipelineCfg := Config{
			WorkerCount:          cfg.PipelineWorkerCount,
			FailedChunkTolerance: cfg.FailedChunkTolerance,
			BoundaryMergeEpsilon: time.Duration(cfg.BoundaryMergeEpsilonMs) * time.Millisecond,
		}
		return NewController(pipelineCfg, decoder, chunker, strategy, repo, sink), nil
	})
}
