// Package recognition implements the hybrid face recognition decision engine:
// per-angle nearest neighbour search over enrolled embeddings, a remote
// comparison fallback, multi-frame confirmation and attendance cooldown.
package recognition

import (
	"fmt"
	"strings"
)

// Angle is the head pose under which a reference embedding was captured.
type Angle int

const (
	AngleFront Angle = iota
	AngleLeft
	AngleRight
	AngleUp
	AngleDown
)

// Angles lists all angles in stable iteration order. Ties between angles are
// resolved in this order.
var Angles = []Angle{AngleFront, AngleLeft, AngleRight, AngleUp, AngleDown}

var angleNames = [...]string{"front", "left", "right", "up", "down"}

func (a Angle) String() string {
	if a < 0 || int(a) >= len(angleNames) {
		return fmt.Sprintf("angle(%d)", int(a))
	}
	return angleNames[a]
}

// ParseAngle parses an angle name (case-insensitive).
func ParseAngle(s string) (Angle, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range angleNames {
		if s == name {
			return Angle(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAngle, s)
}

// EnrolledEmbedding is one reference embedding of an identity.
// (IdentityID, Angle) is unique within an enrollment set.
type EnrolledEmbedding struct {
	IdentityID  string
	DisplayName string
	Angle       Angle
	Vector      []float32
}

// Identity is the metadata stored alongside every indexed vector.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// MatchSource tells which matcher produced a match.
type MatchSource string

const (
	SourceLocal  MatchSource = "local"
	SourceRemote MatchSource = "remote"
)

// MatchResult is the best identity found for a query.
// Score is cosine similarity in [-1, 1] for local matches and the remote
// service confidence for remote matches.
type MatchResult struct {
	IdentityID  string      `json:"identity_id"`
	DisplayName string      `json:"display_name"`
	Score       float64     `json:"score"`
	Angle       string      `json:"angle,omitempty"`
	Source      MatchSource `json:"source"`
}
