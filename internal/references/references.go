// Package references stores the reference face images of enrolled identities,
// used by the remote comparison fallback.
package references

import (
	"context"
	"errors"
	"path"
	"strings"
)

// Reference points to one stored reference image.
type Reference struct {
	IdentityID  string
	DisplayName string
	Angle       string
	Key         string
}

// Store provides access to reference images.
type Store interface {
	// References lists all reference images in a stable order.
	References(ctx context.Context) ([]Reference, error)
	// Open returns the encoded image for a reference key.
	Open(ctx context.Context, key string) ([]byte, error)
	// Save stores the reference image of one angle and returns its key.
	Save(ctx context.Context, identityID, displayName, angle string, data []byte) (string, error)
	// Delete removes every reference image of an identity, under any display
	// name, and returns how many images were removed.
	Delete(ctx context.Context, identityID string) (int, error)
}

// ErrNotFound is returned by Open for unknown keys.
var ErrNotFound = errors.New("reference image not found")

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// isImageName reports whether a file name has a supported image extension.
func isImageName(name string) bool {
	return imageExtensions[strings.ToLower(path.Ext(name))]
}

// objectKey builds the relative key "<id>_<slug>/<angle>.jpg".
func objectKey(identityID, displayName, angle string) string {
	return FolderName(identityID, displayName) + "/" + angle + ".jpg"
}

// parseKey splits a relative key into its reference fields.
func parseKey(key string) (Reference, bool) {
	folder, file := path.Split(key)
	folder = strings.TrimSuffix(folder, "/")
	if folder == "" || strings.Contains(folder, "/") || !isImageName(file) {
		return Reference{}, false
	}
	id, name, ok := ParseFolderName(folder)
	if !ok {
		return Reference{}, false
	}
	return Reference{
		IdentityID:  id,
		DisplayName: name,
		Angle:       strings.TrimSuffix(file, path.Ext(file)),
		Key:         key,
	}, true
}
