package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"face-auth-backend/internal/shared/storage/object"
	"face-auth-backend/internal/shared/util"
)

// DefaultExt is appended to object names written to disk.
const DefaultExt = ".jpg"

// Store implements ObjectStore using the local filesystem, one directory per namespace.
type Store struct {
	baseDir string
	ext     string
}

// New creates a new local object store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, ext: DefaultExt}
}

// Put writes the reader to baseDir/namespace/name+ext, truncating any previous file.
func (s *Store) Put(ctx context.Context, namespace, name, contentType string, r io.Reader) (object.Ref, error) {
	ns, err := util.SanitizeSegment(namespace)
	if err != nil {
		return object.Ref{}, fmt.Errorf("sanitize namespace: %w", err)
	}
	objName, err := util.SanitizeSegment(name)
	if err != nil {
		return object.Ref{}, fmt.Errorf("sanitize name: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return object.Ref{}, err
	}

	dirPath := filepath.Join(s.baseDir, ns)
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return object.Ref{}, fmt.Errorf("mkdir: %w", err)
	}

	fileName := objName + s.ext
	fullPath := filepath.Join(dirPath, fileName)
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return object.Ref{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, r)
	if err != nil {
		return object.Ref{}, fmt.Errorf("write body: %w", err)
	}
	_ = contentType

	relPath := filepath.ToSlash(filepath.Join(ns, fileName))
	return object.Ref{
		Key:      relPath,
		Name:     objName,
		Location: relPath,
		Size:     written,
	}, nil
}

// List returns the regular files of a namespace directory, sorted by name.
func (s *Store) List(ctx context.Context, namespace string) ([]object.Ref, error) {
	ns, err := util.SanitizeSegment(namespace)
	if err != nil {
		return nil, fmt.Errorf("sanitize namespace: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(s.baseDir, ns))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []object.Ref{}, nil
		}
		return nil, fmt.Errorf("read dir: %w", err)
	}

	refs := make([]object.Ref, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		relPath := filepath.ToSlash(filepath.Join(ns, entry.Name()))
		refs = append(refs, object.Ref{
			Key:          relPath,
			Name:         strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			Location:     relPath,
			Size:         info.Size(),
			LastModified: info.ModTime().UTC(),
		})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean := filepath.Clean(filepath.FromSlash(storageKey))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("invalid storage key")
	}

	f, err := os.Open(filepath.Join(s.baseDir, clean))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", object.ErrNotFound, storageKey)
		}
		return nil, err
	}
	return f, nil
}

var _ object.ObjectStore = (*Store)(nil)
