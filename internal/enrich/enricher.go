package enrich

import (
	"context"

	"stage-scanner/internal/model"
)

// Enricher gathers the opaque context strings for a ticker: sector and its
// performance, institutional ownership, earnings proximity, news headlines.
// Implementations are best-effort; missing data degrades to "N/A" fields,
// never to a failed scan.
type Enricher interface {
	Enrich(ctx context.Context, ticker string) model.Enrichment
}
