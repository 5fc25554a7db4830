package charting

import "errors"

// Sentinel kinds for chart rendering.
var (
	ErrEmptySeries = errors.New("series has no points")
	ErrRender      = errors.New("chart render failed")
)
