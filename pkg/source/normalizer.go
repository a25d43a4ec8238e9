package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/aleksaelezovic/rdfstream/pkg/errors"
)

// Normalizer expands caller-supplied sources:
//
//   - File and string paths become a *Document, or a Seq of the supported
//     files of a directory sorted by name (recursively);
//   - []any becomes a Seq;
//   - a bare io.Reader becomes a *Document in DefaultFormat;
//   - anything else is returned unchanged.
type Normalizer struct {
	// DefaultFormat applies to readers and to files with an unknown extension.
	DefaultFormat Format
}

// Normalize implements parser.Normalizer.
func (n Normalizer) Normalize(ctx context.Context, src any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch s := src.(type) {
	case File:
		return n.path(string(s))
	case string:
		return n.path(s)
	case []any:
		return Seq(s), nil
	case *Document:
		if s.Format == FormatUnknown {
			doc := *s
			doc.Format = n.formatFor(s.Path)
			if doc.Format == FormatUnknown {
				doc.Format = n.formatFor(s.Name)
			}
			return &doc, nil
		}
		return s, nil
	case io.Reader:
		return &Document{Name: "<reader>", Format: n.DefaultFormat, Reader: s}, nil
	default:
		return src, nil
	}
}

func (n Normalizer) path(path string) (any, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSource, fmt.Sprintf("stat %s", path))
	}
	if info.IsDir() {
		return n.dir(path)
	}
	return n.document(path), nil
}

func (n Normalizer) document(path string) *Document {
	base := ""
	if abs, err := filepath.Abs(path); err == nil {
		base = "file://" + filepath.ToSlash(abs)
	}
	return &Document{
		Name:   path,
		Format: n.formatFor(path),
		Base:   base,
		Path:   path,
	}
}

func (n Normalizer) formatFor(path string) Format {
	if f := FormatForPath(path); f != FormatUnknown {
		return f
	}
	return n.DefaultFormat
}

// dir lists the supported files below root in name order. Files with an
// unknown extension are skipped.
func (n Normalizer) dir(root string) (Seq, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && FormatForPath(path) != FormatUnknown {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSource, fmt.Sprintf("listing %s", root))
	}
	slices.Sort(paths)

	seq := make(Seq, 0, len(paths))
	for _, p := range paths {
		seq = append(seq, n.document(p))
	}
	return seq, nil
}
