// Package enrollment turns per-angle face images into stored embeddings and
// reference images.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/embedder"
	"github.com/kozaktomas/face-attendance/internal/faceimage"
	"github.com/kozaktomas/face-attendance/internal/recognition"
	"github.com/kozaktomas/face-attendance/internal/references"
)

var (
	ErrNoImages     = errors.New("no enrollment images given")
	ErrFaceTooSmall = errors.New("face crop below minimum size")
	ErrInvalidID    = errors.New("identity ID must be non-empty and must not contain '_' or '/'")
	ErrMissingName  = errors.New("display name is required")
)

// FaceDetector detects faces and computes their embeddings.
type FaceDetector interface {
	DetectFaces(ctx context.Context, imageData []byte) (*embedder.FaceResponse, error)
}

// Enroller registers identities.
type Enroller struct {
	detector FaceDetector
	store    database.EnrollmentStore
	refs     references.Store // optional
}

// New creates an enroller. refs may be nil, in which case no reference images
// are saved and the identity can only be matched locally.
func New(detector FaceDetector, store database.EnrollmentStore, refs references.Store) *Enroller {
	return &Enroller{detector: detector, store: store, refs: refs}
}

// prepared is one accepted angle, ready to be stored.
type prepared struct {
	row  database.EnrollmentRow
	crop []byte
}

// Enroll processes every given angle and replaces the identity's stored
// embeddings. Nothing is stored unless all images are accepted.
func (e *Enroller) Enroll(
	ctx context.Context, identityID, displayName string, images map[recognition.Angle][]byte,
) error {
	if identityID == "" || strings.ContainsAny(identityID, "_/\\") {
		return fmt.Errorf("%w: %q", ErrInvalidID, identityID)
	}
	if strings.TrimSpace(displayName) == "" {
		return ErrMissingName
	}
	if len(images) == 0 {
		return ErrNoImages
	}

	var accepted []prepared
	for _, angle := range recognition.Angles {
		data, ok := images[angle]
		if !ok {
			continue
		}
		p, err := e.prepare(ctx, identityID, displayName, angle, data)
		if err != nil {
			return fmt.Errorf("%s image: %w", angle, err)
		}
		accepted = append(accepted, p)
	}

	rows := make([]database.EnrollmentRow, len(accepted))
	for i, p := range accepted {
		rows[i] = p.row
	}
	if err := e.store.SaveEnrollment(ctx, identityID, displayName, rows); err != nil {
		return fmt.Errorf("saving enrollment: %w", err)
	}

	if e.refs != nil {
		// The new enrollment replaces every angle, so drop images of the
		// previous one, including folders under an older display name.
		if _, err := e.refs.Delete(ctx, identityID); err != nil {
			return fmt.Errorf("clearing previous reference images: %w", err)
		}
		for _, p := range accepted {
			if _, err := e.refs.Save(ctx, identityID, displayName, p.row.Angle, p.crop); err != nil {
				return fmt.Errorf("saving %s reference image: %w", p.row.Angle, err)
			}
		}
	}
	log.Printf("[enroll] %s (%s) enrolled with %d angles", identityID, displayName, len(rows))
	return nil
}

func (e *Enroller) prepare(
	ctx context.Context, identityID, displayName string, angle recognition.Angle, data []byte,
) (prepared, error) {
	img, err := faceimage.Decode(data)
	if err != nil {
		return prepared{}, err //nolint:wrapcheck // already wrapped by Decode
	}
	resp, err := e.detector.DetectFaces(ctx, data)
	if err != nil {
		return prepared{}, fmt.Errorf("embedding service: %w", err)
	}
	face, err := resp.SingleFace()
	if err != nil {
		return prepared{}, err //nolint:wrapcheck // sentinel errors from embedder
	}
	if _, err := recognition.Normalize(face.Embedding); err != nil {
		return prepared{}, err //nolint:wrapcheck // sentinel error
	}

	bbox, err := faceimage.BBoxFromSlice(face.BBox)
	if err != nil {
		return prepared{}, err //nolint:wrapcheck // descriptive
	}
	crop := faceimage.Crop(img, bbox)
	if !faceimage.ValidImage(crop) {
		return prepared{}, fmt.Errorf("%w: %dx%d", ErrFaceTooSmall, bbox.Width(), bbox.Height())
	}
	encoded, err := faceimage.EncodeJPEG(crop)
	if err != nil {
		return prepared{}, err //nolint:wrapcheck // already wrapped by EncodeJPEG
	}

	return prepared{
		row: database.EnrollmentRow{
			IdentityID:  identityID,
			DisplayName: displayName,
			Angle:       angle.String(),
			Embedding:   database.EncodeEmbedding(face.Embedding),
		},
		crop: encoded,
	}, nil
}

// Candidate is one identity found by ScanDir.
type Candidate struct {
	IdentityID  string
	DisplayName string
	Images      map[recognition.Angle]string
}

// ScanDir finds identities laid out as <root>/<id>_<name>/<angle>.<ext>.
// Folders without a single usable angle image are skipped.
func ScanDir(root string) ([]Candidate, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading enrollment directory: %w", err)
	}

	var result []Candidate
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, name, ok := references.ParseFolderName(entry.Name())
		if !ok {
			log.Printf("[enroll] skipping folder %s: expected <id>_<name>", entry.Name())
			continue
		}
		files, err := os.ReadDir(filepath.Join(root, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}

		c := Candidate{IdentityID: id, DisplayName: name, Images: make(map[recognition.Angle]string)}
		for _, f := range files {
			ext := strings.ToLower(filepath.Ext(f.Name()))
			if f.IsDir() || (ext != ".jpg" && ext != ".jpeg" && ext != ".png") {
				continue
			}
			angle, err := recognition.ParseAngle(strings.TrimSuffix(f.Name(), filepath.Ext(f.Name())))
			if err != nil {
				continue
			}
			c.Images[angle] = filepath.Join(root, entry.Name(), f.Name())
		}
		if len(c.Images) == 0 {
			log.Printf("[enroll] skipping folder %s: no angle images", entry.Name())
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].IdentityID < result[j].IdentityID })
	return result, nil
}

// ReadImages loads the image files of a candidate.
func ReadImages(paths map[recognition.Angle]string) (map[recognition.Angle][]byte, error) {
	images := make(map[recognition.Angle][]byte, len(paths))
	for angle, p := range paths {
		data, err := os.ReadFile(p) //nolint:gosec // user supplied enrollment path
		if err != nil {
			return nil, fmt.Errorf("reading %s image: %w", angle, err)
		}
		images[angle] = data
	}
	return images, nil
}
