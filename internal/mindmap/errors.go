package mindmap

import "errors"

var (
	ErrNothingLoaded = errors.New("no mind map loaded")
	ErrUnknownNode   = errors.New("node not found in mind map")

	// ErrSuperseded is returned to a load that finished after a newer load
	// started in the same session. Its result was discarded.
	ErrSuperseded = errors.New("mind map request superseded by a newer request")
)
