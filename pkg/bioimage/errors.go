package bioimage

import "errors"

var (
	// ErrNotLoaded reports an operation attempted before a successful Load.
	ErrNotLoaded = errors.New("bioimage not loaded")

	// ErrNotNormalized reports a binarize or normalized-slice access on a
	// channel whose normalization has not been computed yet. It is distinct
	// from a range error: the channel exists but nothing is cached for it.
	ErrNotNormalized = errors.New("channel not normalized")

	// ErrNotBinarized reports a binary-slice access on a channel that has
	// not been binarized yet.
	ErrNotBinarized = errors.New("channel not binarized")

	// ErrUnsupportedFormat reports a bioformats file for which no decoder is
	// available.
	ErrUnsupportedFormat = errors.New("unsupported bioimage format")
)
