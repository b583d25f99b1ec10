package observability

import (
	"context"
	"log/slog"

	"github.com/Sumatoshi-tech/semevo/pkg/model"
)

// RoundLogger returns an observer logging every n-th round (every round when
// n < 2) at debug level.
func RoundLogger(ctx context.Context, logger *slog.Logger, n int) model.Observer {
	return model.ObserverFunc(func(stats model.RoundStats) {
		if n > 1 && stats.Round%n != 0 {
			return
		}

		logger.DebugContext(ctx, "round complete",
			"model", stats.Model,
			"round", stats.Round,
			"active", stats.Active,
			"frozen", stats.Frozen,
			"overlaps", stats.Overlaps,
			"resolved", stats.Resolved,
		)
	})
}
