// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attach reads local files for upload and checks them against the
// size and type limits the backend enforces.
package attach

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/multierr"

	"github.com/jeranaias/parley/internal/model"
)

// DefaultMaxBytes is the backend's upload limit.
const DefaultMaxBytes = 10 << 20

// DefaultExtensions are the file types the backend accepts.
var DefaultExtensions = []string{
	"pdf", "txt", "doc", "docx", "xls", "xlsx", "csv", "png", "jpg", "jpeg", "md", "json",
}

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrTooLarge        = errors.New("file is too large")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrNotRegularFile  = errors.New("not a regular file")
)

// imageExtensions must carry image content.
var imageExtensions = []string{"png", "jpg", "jpeg"}

// Policy limits what may be attached.
type Policy struct {
	MaxBytes   int64
	Extensions []string
}

// DefaultPolicy returns the backend's limits.
func DefaultPolicy() Policy {
	return Policy{MaxBytes: DefaultMaxBytes, Extensions: slices.Clone(DefaultExtensions)}
}

// NewPolicy builds a policy, falling back to the defaults for zero values.
func NewPolicy(maxBytes int64, extensions []string) Policy {
	p := DefaultPolicy()
	if maxBytes > 0 {
		p.MaxBytes = maxBytes
	}
	if len(extensions) > 0 {
		p.Extensions = make([]string, 0, len(extensions))
		for _, ext := range extensions {
			p.Extensions = append(p.Extensions, normalizeExt(ext))
		}
	}
	return p
}

// Allowed reports whether name has an accepted extension.
func (p Policy) Allowed(name string) bool {
	return slices.Contains(p.Extensions, normalizeExt(filepath.Ext(name)))
}

// Check validates data as the content of name and returns its detected
// content type.
func (p Policy) Check(name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%s: %w", name, ErrEmptyFile)
	}
	if int64(len(data)) > p.MaxBytes {
		return "", fmt.Errorf("%s: %w (%s, limit %s)", name, ErrTooLarge, humanSize(int64(len(data))), humanSize(p.MaxBytes))
	}
	ext := normalizeExt(filepath.Ext(name))
	if !slices.Contains(p.Extensions, ext) {
		return "", fmt.Errorf("%s: %w; allowed: %s", name, ErrUnsupportedType, strings.Join(p.Extensions, ", "))
	}

	detected := mimetype.Detect(data)
	if slices.Contains(imageExtensions, ext) && !strings.HasPrefix(detected.String(), "image/") {
		return "", fmt.Errorf("%s: %w: content is %s", name, ErrUnsupportedType, detected.String())
	}
	return detected.String(), nil
}

// FromBytes validates data and wraps it as an attachment called name.
func (p Policy) FromBytes(name string, data []byte) (model.Attachment, error) {
	name = filepath.Base(name)
	ct, err := p.Check(name, data)
	if err != nil {
		return model.Attachment{}, err
	}
	return model.Attachment{Name: name, ContentType: ct, Data: data}, nil
}

// Load reads and validates the file at path. The size is checked before
// the file is read.
func (p Policy) Load(path string) (model.Attachment, error) {
	name := filepath.Base(path)
	info, err := os.Stat(path)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("attach %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return model.Attachment{}, fmt.Errorf("%s: %w", name, ErrNotRegularFile)
	}
	if info.Size() > p.MaxBytes {
		return model.Attachment{}, fmt.Errorf("%s: %w (%s, limit %s)", name, ErrTooLarge, humanSize(info.Size()), humanSize(p.MaxBytes))
	}

	f, err := os.Open(path)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("attach %s: %w", name, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, p.MaxBytes+1))
	if err != nil {
		return model.Attachment{}, fmt.Errorf("attach %s: %w", name, err)
	}
	return p.FromBytes(name, data)
}

// LoadAll loads every path and reports all failures together. Two files
// with the same name are rejected.
func (p Policy) LoadAll(paths []string) ([]model.Attachment, error) {
	var (
		out  []model.Attachment
		errs error
	)
	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		a, err := p.Load(path)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if seen[a.Name] {
			errs = multierr.Append(errs, fmt.Errorf("%s: attached twice", a.Name))
			continue
		}
		seen[a.Name] = true
		out = append(out, a)
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
