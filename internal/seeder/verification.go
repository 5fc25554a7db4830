package seeder

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/okian/asinrank/internal/domain/types"
	"github.com/okian/asinrank/pkg/logger"
)

// verify fetches the charts of every seeded ASIN and compares the number of
// fragments with the plan.
func verify(ctx context.Context, c *client, plan Plan, stats *Stats) error {
	log := logger.Get()

	asins := make([]string, 0, len(plan))
	for asin := range plan {
		asins = append(asins, asin)
	}
	sort.Strings(asins)

	var mismatches []string
	for _, asin := range asins {
		want := plan[asin]
		var resp types.ChartsResponse
		status, err := c.get(ctx, "/api/charts/"+url.PathEscape(asin), nil, &resp)
		if err != nil {
			return fmt.Errorf("fetch charts for %s: %w", asin, err)
		}

		got := resp.ChartCount()
		if status != http.StatusOK || resp.Error != "" || got != want {
			stats.Mismatched++
			mismatches = append(mismatches, asin)
			log.Warn(ctx, "chart mismatch",
				logger.String("asin", asin),
				logger.Int("status", status),
				logger.Int("want", want),
				logger.Int("got", got),
				logger.String("error", resp.Error),
				logger.String("message", resp.Message),
			)
			continue
		}
		stats.Verified++
		log.Debug(ctx, "charts verified", logger.String("asin", asin), logger.Int("charts", got))
	}

	if len(mismatches) > 0 {
		return fmt.Errorf("%w: %d of %d ASINs (first: %s)", ErrVerification, len(mismatches), len(asins), mismatches[0])
	}
	return nil
}
