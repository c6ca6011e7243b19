package jobs

import (
	"context"

	"cryptosnap/internal/models"
	"cryptosnap/internal/processor"
)

// Run4h fetches 4h klines directly, enriches them and saves the 4h snapshot.
func (r *Runner) Run4h(ctx context.Context) models.JobResult {
	jr := r.newRun(models.TF4h)

	coins, groups, unsupported, err := r.loadCoins(ctx, jr)
	if err != nil {
		return r.fail(jr, err)
	}

	data := r.fetchAll(ctx, jr, groups, r.limits.KlineDirect)
	enriched := processor.Enrich(data.klines.Successful, data.oi, models.TF4h, data.fr)

	if err := r.save(ctx, jr, models.TF4h, enriched); err != nil {
		return r.fail(jr, err)
	}

	return r.succeed(jr, len(coins), len(enriched), len(data.klines.Failed)+len(unsupported))
}
