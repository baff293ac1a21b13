package webhook

import (
	"github.com/foxseedlab/gijiroku/internal/config"
	"github.com/foxseedlab/gijiroku/internal/progress"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (progress.Sink, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewHTTPSink(c.ProgressWebhookURL), nil
	})
}
