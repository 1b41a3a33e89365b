package recognition

import (
	"context"
	"image"
	"log"
	"strconv"
	"time"

	"github.com/kozaktomas/face-attendance/internal/faceimage"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/kozaktomas/face-attendance/internal/references"
)

// DefaultRemoteThreshold is the minimum remote confidence accepted as a match.
const DefaultRemoteThreshold = 78.0

// maxRemoteSide bounds the longer side of images sent for comparison.
const maxRemoteSide = 1920

// Comparer compares two encoded face images and returns a confidence.
type Comparer interface {
	Compare(ctx context.Context, live, reference []byte) (float64, error)
}

// ReferenceSource lists and opens stored reference images.
type ReferenceSource interface {
	References(ctx context.Context) ([]references.Reference, error)
	Open(ctx context.Context, key string) ([]byte, error)
}

// comparison is the outcome of comparing against one reference image: either
// a score or the reason it was skipped.
type comparison struct {
	ref   references.Reference
	score float64
	skip  string
}

func (c comparison) ok() bool { return c.skip == "" }

// RemoteMatcher is the last-resort matcher that asks the remote comparison
// service about every stored reference image.
type RemoteMatcher struct {
	comparer  Comparer
	refs      ReferenceSource
	threshold float64
}

// NewRemoteMatcher creates a remote matcher. A non-positive threshold selects
// DefaultRemoteThreshold.
func NewRemoteMatcher(comparer Comparer, refs ReferenceSource, threshold float64) *RemoteMatcher {
	if threshold <= 0 {
		threshold = DefaultRemoteThreshold
	}
	return &RemoteMatcher{comparer: comparer, refs: refs, threshold: threshold}
}

// Threshold returns the similarity floor.
func (m *RemoteMatcher) Threshold() float64 {
	return m.threshold
}

// SelectImage picks the image to send: the crop if it is valid, otherwise the
// fallback frame if that is valid, otherwise nothing.
func SelectImage(crop, fallback image.Image) (image.Image, bool) {
	if faceimage.ValidImage(crop) {
		return crop, true
	}
	if faceimage.ValidImage(fallback) {
		log.Printf("[remote] face crop too small for comparison, using full frame")
		return fallback, true
	}
	return nil, false
}

// Match compares the live image against the references of every identity
// enrolled in idx and returns the best identity if its confidence reaches the
// threshold. References of identities missing from idx are never compared.
// Individual failures are skipped; cancellation of ctx yields no match.
func (m *RemoteMatcher) Match(ctx context.Context, idx *IdentityIndex, crop, fallback image.Image) (MatchResult, bool) {
	start := time.Now()
	result, ok := m.match(ctx, idx, crop, fallback)
	metrics.RemoteMatchDuration.WithLabelValues(strconv.FormatBool(ok)).Observe(time.Since(start).Seconds())
	return result, ok
}

func (m *RemoteMatcher) match(ctx context.Context, idx *IdentityIndex, crop, fallback image.Image) (MatchResult, bool) {
	img, ok := SelectImage(crop, fallback)
	if !ok {
		log.Printf("[remote] no valid image to send, skipping remote match")
		return MatchResult{}, false
	}

	live, err := faceimage.EncodeJPEG(fitForRemote(img))
	if err != nil {
		log.Printf("[remote] encoding live image: %v", err)
		return MatchResult{}, false
	}

	refs, err := m.refs.References(ctx)
	if err != nil {
		log.Printf("[remote] listing references: %v", err)
		return MatchResult{}, false
	}

	var best comparison
	found := false
	for _, ref := range refs {
		if _, enrolled := idx.DisplayName(ref.IdentityID); !enrolled {
			continue
		}
		if ctx.Err() != nil {
			log.Printf("[remote] cancelled after partial comparison: %v", ctx.Err())
			return MatchResult{}, false
		}
		c := m.compare(ctx, live, ref)
		metrics.RemoteComparisons.WithLabelValues(resultLabel(c)).Inc()
		if !c.ok() {
			log.Printf("[remote] skipping %s: %s", ref.Key, c.skip)
			continue
		}
		if c.score > best.score {
			best = c
			found = true
		}
	}

	if !found || best.score < m.threshold {
		log.Printf("[remote] no suitable match (best score %.1f)", best.score)
		return MatchResult{}, false
	}

	log.Printf("[remote] matched %s (%s) with score %.1f", best.ref.DisplayName, best.ref.IdentityID, best.score)
	return MatchResult{
		IdentityID:  best.ref.IdentityID,
		DisplayName: best.ref.DisplayName,
		Score:       best.score,
		Angle:       best.ref.Angle,
		Source:      SourceRemote,
	}, true
}

// fitForRemote bounds the longer side to maxRemoteSide. Extreme aspect ratios
// would push the short side under the validity floor, so those images are
// sent unscaled.
func fitForRemote(img image.Image) image.Image {
	scaled := faceimage.Downscale(img, maxRemoteSide)
	if !faceimage.ValidImage(scaled) {
		return img
	}
	return scaled
}

func (m *RemoteMatcher) compare(ctx context.Context, live []byte, ref references.Reference) comparison {
	data, err := m.refs.Open(ctx, ref.Key)
	if err != nil {
		return comparison{ref: ref, skip: "read: " + err.Error()}
	}
	score, err := m.comparer.Compare(ctx, live, data)
	if err != nil {
		return comparison{ref: ref, skip: "compare: " + err.Error()}
	}
	return comparison{ref: ref, score: score}
}

func resultLabel(c comparison) string {
	if c.ok() {
		return "ok"
	}
	return "skipped"
}
