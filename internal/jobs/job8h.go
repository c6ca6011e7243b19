package jobs

import (
	"context"
	"fmt"

	"cryptosnap/internal/models"
	"cryptosnap/internal/processor"
)

// Run8h fetches one base set of 4h klines and derives both outputs from it:
// the 4h snapshot from its most recent SaveLimit candles and the 8h snapshot
// from pairwise combination of the whole set. A failed 4h save is recorded
// and does not stop the 8h save.
func (r *Runner) Run8h(ctx context.Context) models.JobResult {
	jr := r.newRun(models.TF8h)

	coins, groups, unsupported, err := r.loadCoins(ctx, jr)
	if err != nil {
		return r.fail(jr, err)
	}

	data := r.fetchAll(ctx, jr, groups, r.limits.KlineBase)
	base := data.klines.Successful

	trimmed := processor.Trim(base, r.limits.SaveLimit)
	enriched4h := processor.Enrich(trimmed, data.oi, models.TF4h, data.fr)
	if err := r.save(ctx, jr, models.TF4h, enriched4h); err != nil {
		jr.errors = append(jr.errors, fmt.Sprintf("4h snapshot: %v", err))
		jr.log.WithError(err).Error("4h snapshot save failed, continuing with 8h")
	}

	combined := processor.Combine(base)
	enriched8h := processor.Enrich(combined, data.oi, models.TF8h, data.fr)
	if err := r.save(ctx, jr, models.TF8h, enriched8h); err != nil {
		return r.fail(jr, err)
	}

	return r.succeed(jr, len(coins), len(enriched8h), len(data.klines.Failed)+len(unsupported))
}
