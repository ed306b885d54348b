/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package gallery

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// ErrBlobNotFound is returned by Open and Delete for unknown keys.
var ErrBlobNotFound = errors.New("blob not found")

// Object describes a stored blob.
type Object struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
}

// BlobStore holds image bytes outside the database.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (Object, error)
	Open(key string) (io.ReadSeekCloser, time.Time, error)
	Delete(ctx context.Context, key string) error
}

// FSStore is a BlobStore on top of an afero filesystem. Blobs are
// published at baseURL + "/" + key.
type FSStore struct {
	fs      afero.Fs
	baseURL string
}

// NewFSStore wraps an existing filesystem.
func NewFSStore(fs afero.Fs, baseURL string) *FSStore {
	return &FSStore{fs: fs, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// NewDirStore stores blobs under dir on the local disk, creating it if needed.
func NewDirStore(dir, baseURL string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, xerrors.Errorf("create blob dir %q: %w", dir, err)
	}

	return NewFSStore(afero.NewBasePathFs(afero.NewOsFs(), dir), baseURL), nil
}

func validKey(key string) bool {
	return key != "" && key != "." && key != ".." && !strings.ContainsAny(key, `/\`)
}

// Put writes r under key.
func (s *FSStore) Put(ctx context.Context, key, contentType string, r io.Reader) (Object, error) {
	if !validKey(key) {
		return Object{}, xerrors.Errorf("invalid blob key %q", key)
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	f, err := s.fs.OpenFile(key, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Object{}, xerrors.Errorf("create blob %q: %w", key, err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.fs.Remove(key)
		return Object{}, xerrors.Errorf("write blob %q: %w", key, err)
	}

	return Object{
		Key:         key,
		URL:         s.baseURL + "/" + key,
		ContentType: contentType,
		Size:        n,
	}, nil
}

// Open returns the blob contents along with its modification time.
func (s *FSStore) Open(key string) (io.ReadSeekCloser, time.Time, error) {
	if !validKey(key) {
		return nil, time.Time{}, ErrBlobNotFound
	}

	f, err := s.fs.Open(key)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, time.Time{}, ErrBlobNotFound
		}
		return nil, time.Time{}, xerrors.Errorf("open blob %q: %w", key, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, time.Time{}, xerrors.Errorf("stat blob %q: %w", key, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, time.Time{}, ErrBlobNotFound
	}

	return f, info.ModTime(), nil
}

// Delete removes the blob stored under key.
func (s *FSStore) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return ErrBlobNotFound
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.fs.Remove(key)
	switch {
	case err == nil:
		return nil
	case os.IsNotExist(err):
		return ErrBlobNotFound
	default:
		return xerrors.Errorf("remove blob %q: %w", key, err)
	}
}

// blobKey derives a storage key from the upload time, the tail of the photo
// id, and the original file name.
func blobKey(now time.Time, photoID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}

	clean := strings.Trim(b.String(), ".-")
	if clean == "" {
		clean = "upload"
	}
	if len(clean) > 100 {
		clean = clean[len(clean)-100:]
	}

	tag := strings.ReplaceAll(photoID, "-", "")
	if len(tag) > 8 {
		tag = tag[len(tag)-8:]
	}

	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + tag + "-" + clean
}
