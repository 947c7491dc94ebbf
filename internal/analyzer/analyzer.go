package analyzer

import (
	"context"
	"errors"

	"stage-scanner/internal/model"
)

var (
	// ErrRateLimited indicates the vision service rejected the call for rate.
	ErrRateLimited = errors.New("analyzer: rate limited")
	// ErrInvalidResponse indicates the response could not be parsed or
	// failed schema validation.
	ErrInvalidResponse = errors.New("analyzer: invalid response")
)

// Request is one chart-analysis call. Charts are PNG blobs (5-year first,
// 1-year zoom second); Context is the opaque technical-context text built by
// the caller.
type Request struct {
	Ticker  string
	Charts  [][]byte
	Context string
}

// Classifier submits chart artifacts plus technical context to the external
// vision model and returns its validated structured verdict.
type Classifier interface {
	Classify(ctx context.Context, req Request) (*model.ExternalVerdict, error)
}
