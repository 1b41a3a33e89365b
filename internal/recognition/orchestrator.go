package recognition

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/faceimage"
	"github.com/kozaktomas/face-attendance/internal/metrics"
)

// Defaults for the per-face decision.
const (
	DefaultMinFaceSize    = 30
	DefaultLocalThreshold = 0.48
	DefaultConfirmFrames  = 3
)

// Status is the display state of a face.
type Status string

const (
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusUnknown    Status = "unknown"
)

// Reason explains why a face ended up unknown.
type Reason string

const (
	ReasonTooSmall       Reason = "too_small"
	ReasonEmbeddingError Reason = "embedding_error"
	ReasonLowConfidence  Reason = "low_confidence"
	ReasonNoAPIMatch     Reason = "no_api_match"
)

// AttendanceRecorder writes attendance events to the persistent store.
// StatusAlreadyRecorded counts as success.
type AttendanceRecorder interface {
	RecordAttendance(ctx context.Context, identityID, displayName string, ts time.Time) (database.RecordStatus, error)
}

// Detection is one face reported by the embedding source.
type Detection struct {
	BBox      faceimage.BBox
	Embedding []float32
	// Err is set when the embedding source failed to extract an embedding.
	Err error
}

// Frame is a camera frame with its detected faces.
type Frame struct {
	Image image.Image
	Faces []Detection
	Time  time.Time
}

// FaceOutcome is the display decision for one detected face.
type FaceOutcome struct {
	BBox            faceimage.BBox `json:"bbox"`
	Status          Status         `json:"status"`
	Reason          Reason         `json:"reason,omitempty"`
	Match           *MatchResult   `json:"match,omitempty"`
	LocalScore      float64        `json:"local_score,omitempty"`
	Count           int            `json:"count,omitempty"`
	Required        int            `json:"required,omitempty"`
	Recorded        bool           `json:"recorded,omitempty"`
	AlreadyRecorded bool           `json:"already_recorded,omitempty"`
	RecordError     string         `json:"record_error,omitempty"`
}

// Label renders the outcome as an on-screen label.
func (o FaceOutcome) Label() string {
	suffix := ""
	if o.Match != nil && o.Match.Source == SourceRemote {
		suffix = " (API)"
	}
	switch o.Status {
	case StatusConfirmed:
		return o.Match.DisplayName + " ✔" + suffix
	case StatusInProgress:
		return fmt.Sprintf("%s %d/%d%s", o.Match.DisplayName, o.Count, o.Required, suffix)
	}
	reason := strings.ToUpper(strings.ReplaceAll(string(o.Reason), "_", " "))
	return "UNKNOWN (" + reason + ")"
}

// OrchestratorConfig wires the orchestrator's collaborators and thresholds.
type OrchestratorConfig struct {
	Index    *IndexHolder
	Remote   *RemoteMatcher // optional
	Tracker  *Tracker
	Dedup    *Deduplicator
	Recorder AttendanceRecorder

	MinFaceSize    int
	LocalThreshold float64
	Cooldown       time.Duration
}

// Orchestrator drives the per-face decision for every frame.
type Orchestrator struct {
	index    *IndexHolder
	remote   *RemoteMatcher
	tracker  *Tracker
	dedup    *Deduplicator
	recorder AttendanceRecorder

	minFaceSize    int
	localThreshold float64
	cooldown       time.Duration

	// recordMu serializes the should-record, write, mark sequence.
	recordMu sync.Mutex
}

// NewOrchestrator validates the configuration. It fails with
// ErrEmptyEnrollment when the index is empty: the remote fallback only
// considers enrolled identities, so nothing could ever match.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Index == nil {
		return nil, errors.New("identity index is required")
	}
	if cfg.Recorder == nil {
		return nil, errors.New("attendance recorder is required")
	}
	if cfg.Index.Load().Len() == 0 {
		return nil, ErrEmptyEnrollment
	}
	if cfg.LocalThreshold < 0 || cfg.LocalThreshold > 1 {
		return nil, fmt.Errorf("%w: local threshold %.2f outside [0, 1]", ErrInvalidThreshold, cfg.LocalThreshold)
	}
	if cfg.Tracker == nil {
		cfg.Tracker = NewTracker(DefaultConfirmFrames, PolicyAccumulate, 0)
	}
	if cfg.Dedup == nil {
		cfg.Dedup = NewDeduplicator()
	}
	if cfg.MinFaceSize <= 0 {
		cfg.MinFaceSize = DefaultMinFaceSize
	}
	if cfg.LocalThreshold == 0 {
		cfg.LocalThreshold = DefaultLocalThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}

	return &Orchestrator{
		index:          cfg.Index,
		remote:         cfg.Remote,
		tracker:        cfg.Tracker,
		dedup:          cfg.Dedup,
		recorder:       cfg.Recorder,
		minFaceSize:    cfg.MinFaceSize,
		localThreshold: cfg.LocalThreshold,
		cooldown:       cfg.Cooldown,
	}, nil
}

// Tracker returns the confirmation tracker.
func (o *Orchestrator) Tracker() *Tracker {
	return o.tracker
}

// Index returns the index holder.
func (o *Orchestrator) Index() *IndexHolder {
	return o.index
}

// ProcessFrame evaluates every detected face of a frame and returns one
// outcome per face, in detection order.
func (o *Orchestrator) ProcessFrame(ctx context.Context, frame Frame) []FaceOutcome {
	now := frame.Time
	if now.IsZero() {
		now = time.Now()
	}
	idx := o.index.Load()

	outcomes := make([]FaceOutcome, 0, len(frame.Faces))
	matched := make(map[string]struct{})
	for _, det := range frame.Faces {
		out := o.processFace(ctx, idx, frame.Image, det, now)
		if out.Status != StatusUnknown {
			matched[out.Match.IdentityID] = struct{}{}
		}
		observeOutcome(out)
		outcomes = append(outcomes, out)
	}
	o.tracker.EndFrame(matched)
	return outcomes
}

func (o *Orchestrator) processFace(
	ctx context.Context, idx *IdentityIndex, img image.Image, det Detection, now time.Time,
) FaceOutcome {
	out := FaceOutcome{BBox: det.BBox}

	switch {
	case errors.Is(det.Err, ErrInvalidBBox):
		log.Printf("[recognize] unusable detection: %v", det.Err)
		out.Reason = ReasonEmbeddingError
	case det.BBox.MinSide() < o.minFaceSize:
		out.Reason = ReasonTooSmall
	case det.Err != nil || len(det.Embedding) == 0:
		out.Reason = ReasonEmbeddingError
	default:
		m, ok, err := MatchLocal(det.Embedding, idx)
		switch {
		case err != nil:
			log.Printf("[recognize] invalid embedding: %v", err)
			out.Reason = ReasonEmbeddingError
		case !ok:
			out.Reason = ReasonNoAPIMatch
		case m.Score >= o.localThreshold:
			o.positive(ctx, &out, m, now)
			return out
		default:
			out.Reason = ReasonLowConfidence
			out.LocalScore = m.Score
		}
	}

	if o.remote != nil {
		crop := faceimage.Crop(img, det.BBox)
		if crop == nil {
			crop = img
		}
		if m, ok := o.remote.Match(ctx, idx, crop, img); ok {
			if name, known := idx.DisplayName(m.IdentityID); known {
				m.DisplayName = name
			}
			out.Reason = ""
			o.positive(ctx, &out, m, now)
			return out
		}
	}

	out.Status = StatusUnknown
	return out
}

// positive runs the confirmation and attendance path for a match.
func (o *Orchestrator) positive(ctx context.Context, out *FaceOutcome, m MatchResult, now time.Time) {
	out.Match = &m
	out.Required = o.tracker.Required()
	out.Count = o.tracker.RecordPositive(m.IdentityID, now)

	if out.Count < out.Required {
		out.Status = StatusInProgress
		return
	}
	out.Status = StatusConfirmed
	o.record(ctx, out, m, now)
}

func (o *Orchestrator) record(ctx context.Context, out *FaceOutcome, m MatchResult, now time.Time) {
	o.recordMu.Lock()
	defer o.recordMu.Unlock()

	if !o.dedup.ShouldRecord(m.IdentityID, now, o.cooldown) {
		return
	}

	status, err := o.recorder.RecordAttendance(ctx, m.IdentityID, m.DisplayName, now)
	if err != nil {
		log.Printf("[recognize] failed to record attendance for %s (%s): %v", m.DisplayName, m.IdentityID, err)
		metrics.AttendanceWrites.WithLabelValues("failed").Inc()
		out.RecordError = err.Error()
		return
	}
	metrics.AttendanceWrites.WithLabelValues(string(status)).Inc()
	o.dedup.MarkRecorded(m.IdentityID, now)

	switch status {
	case database.StatusRecorded:
		log.Printf("[recognize] attendance marked for %s (%s) via %s", m.DisplayName, m.IdentityID, m.Source)
		out.Recorded = true
	case database.StatusAlreadyRecorded:
		out.AlreadyRecorded = true
	}
}

func observeOutcome(out FaceOutcome) {
	source := ""
	if out.Match != nil {
		source = string(out.Match.Source)
	}
	metrics.FaceOutcomes.WithLabelValues(string(out.Status), string(out.Reason), source).Inc()
}
