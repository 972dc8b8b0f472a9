// Package upload stores comment and reply attachments.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/evcraddock/commentbox/internal/apperr"
)

// MaxSize is the largest attachment accepted, in bytes.
const MaxSize = 10 << 20

// File is an attachment waiting to be stored.
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Uploader stores a file and returns the URL it can be fetched from.
type Uploader interface {
	Upload(ctx context.Context, f File) (string, error)
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Disk stores files in a directory and serves them under a URL prefix.
type Disk struct {
	dir    string
	prefix string
}

// NewDisk creates the directory if needed. URLs returned by Upload are
// prefix + "/" + object name.
func NewDisk(dir, prefix string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory %s: %w", dir, err)
	}
	return &Disk{dir: dir, prefix: strings.TrimRight(prefix, "/")}, nil
}

var _ Uploader = (*Disk)(nil)

// Upload writes f under a unique name.
func (d *Disk) Upload(ctx context.Context, f File) (string, error) {
	if f.Body == nil {
		return "", apperr.Invalid("file", "is empty")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := ObjectName(f.Name)
	path := filepath.Join(d.dir, name)

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", name, err)
	}

	n, err := io.Copy(out, io.LimitReader(f.Body, MaxSize+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxSize {
		err = apperr.Invalid("file", fmt.Sprintf("larger than %d bytes", MaxSize))
	}
	if err != nil {
		_ = os.Remove(path)
		if apperr.Classified(err) {
			return "", err
		}
		return "", fmt.Errorf("writing %s: %w", name, err)
	}

	return d.prefix + "/" + name, nil
}

// Path returns the on-disk path of an object written by Upload.
func (d *Disk) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("object %q: %w", name, apperr.ErrNotFound)
	}
	path := filepath.Join(d.dir, name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("object %q: %w", name, apperr.ErrNotFound)
		}
		return "", fmt.Errorf("checking object %q: %w", name, err)
	}
	return path, nil
}

// ObjectName returns a unique storage name that keeps a readable form of the
// original file name.
func ObjectName(original string) string {
	base := unsafeChars.ReplaceAllString(filepath.Base(original), "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "file"
	}
	return uuid.NewString() + "-" + base
}
