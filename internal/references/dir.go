package references

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// DirStore keeps reference images on disk as <root>/<id>_<slug>/<angle>.jpg.
type DirStore struct {
	root string
}

// NewDirStore creates a store rooted at dir, creating it if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if dir == "" {
		return nil, errors.New("reference directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating reference directory: %w", err)
	}
	return &DirStore{root: dir}, nil
}

// References lists all reference images, sorted by folder then file name.
func (s *DirStore) References(ctx context.Context) ([]Reference, error) {
	folders, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading reference directory: %w", err)
	}

	var refs []Reference
	for _, folder := range folders {
		if !folder.IsDir() {
			continue
		}
		if _, _, ok := ParseFolderName(folder.Name()); !ok {
			log.Printf("[references] unexpected folder name format: %s", folder.Name())
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.root, folder.Name()))
		if err != nil {
			log.Printf("[references] reading %s: %v", folder.Name(), err)
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			if ref, ok := parseKey(folder.Name() + "/" + f.Name()); ok {
				refs = append(refs, ref)
			}
		}
	}
	return refs, nil
}

// Open reads a reference image.
func (s *DirStore) Open(ctx context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p) //nolint:gosec // key is validated by path
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading reference %s: %w", key, err)
	}
	return data, nil
}

// Save writes the reference image of one angle, replacing an existing one.
func (s *DirStore) Save(ctx context.Context, identityID, displayName, angle string, data []byte) (string, error) {
	key := objectKey(identityID, displayName, angle)
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return "", fmt.Errorf("creating identity folder: %w", err)
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return "", fmt.Errorf("writing reference %s: %w", key, err)
	}
	return key, nil
}

// Delete removes all folders of the identity.
func (s *DirStore) Delete(ctx context.Context, identityID string) (int, error) {
	folders, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("reading reference directory: %w", err)
	}

	removed := 0
	for _, folder := range folders {
		if !folder.IsDir() {
			continue
		}
		if id, _, ok := ParseFolderName(folder.Name()); !ok || id != identityID {
			continue
		}
		dir := filepath.Join(s.root, folder.Name())
		files, _ := os.ReadDir(dir)
		for _, f := range files {
			if !f.IsDir() && isImageName(f.Name()) {
				removed++
			}
		}
		if err := os.RemoveAll(dir); err != nil {
			return removed, fmt.Errorf("removing %s: %w", folder.Name(), err)
		}
		log.Printf("[references] removed folder %s", folder.Name())
	}
	return removed, nil
}

// path resolves a key inside the root, rejecting keys that escape it.
func (s *DirStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid reference key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}
