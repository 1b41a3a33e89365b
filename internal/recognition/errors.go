package recognition

import "errors"

// Configuration errors. Any of these makes the index unusable and recognition
// must not start.
var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrDegenerateVector  = errors.New("embedding has near-zero norm")
	ErrUnknownAngle      = errors.New("unknown angle")
	ErrEmptyEnrollment   = errors.New("no enrolled identities")
	ErrInvalidThreshold  = errors.New("invalid threshold")
)

// ErrInvalidBBox marks a detection whose bounding box could not be parsed.
var ErrInvalidBBox = errors.New("invalid face bounding box")
