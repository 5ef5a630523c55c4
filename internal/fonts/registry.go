// Package fonts owns the closed set of faces used for stamping: the
// built-in Go Regular sans face and the script faces that signatures are
// drawn in.
package fonts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/docusigner/internal/logging"
	"golang.org/x/image/font/gofont/goregular"
)

// Known faces, in resolution order.
const (
	Pacifico          = "Pacifico"
	Caveat            = "Caveat"
	Sacramento        = "Sacramento"
	DancingScriptBold = "Dancing Script Bold"
	DancingScript     = "Dancing Script"
	Default           = "Go Regular"
)

// ErrFaceUnavailable is returned by Lookup for a known face whose file
// could not be loaded at startup.
var ErrFaceUnavailable = errors.New("font face unavailable")

var files = map[string]string{
	Pacifico:          "Pacifico-Regular.ttf",
	Caveat:            "Caveat-Regular.ttf",
	Sacramento:        "Sacramento-Regular.ttf",
	DancingScriptBold: "DancingScript-Bold.ttf",
	DancingScript:     "DancingScript-Regular.ttf",
}

// Registry is read-only after construction and safe for concurrent use.
type Registry struct {
	def         *Face
	faces       map[string]*Face
	unavailable map[string]error
}

// NewRegistry loads the script faces from dir. A face that is missing or
// does not parse is logged and remembered: Resolve serves the default face
// for it, Lookup reports it. Only a broken built-in face fails construction.
func NewRegistry(ctx context.Context, dir string, logger logging.Logger) (*Registry, error) {
	def, err := ParseFace(Default, goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("built-in font: %w", err)
	}

	r := &Registry{def: def, faces: make(map[string]*Face, len(files)), unavailable: map[string]error{}}
	for name, file := range files {
		data, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Warn(ctx, "font file missing, using default face", "face", name, "file", file)
			} else {
				logger.Warn(ctx, "font file unreadable, using default face", "face", name, "error", err)
			}
			r.faces[name] = def
			r.unavailable[name] = err
			continue
		}

		face, err := ParseFace(name, data)
		if err != nil {
			logger.Warn(ctx, "font file corrupt, using default face", "face", name, "error", err)
			r.faces[name] = def
			r.unavailable[name] = err
			continue
		}
		r.faces[name] = face
	}

	return r, nil
}

// Default returns the built-in sans face.
func (r *Registry) Default() *Face {
	return r.def
}

// Resolve maps a free-form style identifier to a face. Matching is by
// substring in a fixed order; anything unmatched gets the default face.
func (r *Registry) Resolve(style string) *Face {
	if f, ok := r.faces[StyleName(style)]; ok {
		return f
	}
	return r.def
}

// Lookup is Resolve for stamping. A style that names a face whose file was
// unreadable yields ErrFaceUnavailable instead of the default face; unknown
// and empty styles still get the default.
func (r *Registry) Lookup(style string) (*Face, error) {
	name := StyleName(style)
	if err, ok := r.unavailable[name]; ok {
		return nil, fmt.Errorf("%w: %s: %v", ErrFaceUnavailable, name, err)
	}
	return r.Resolve(style), nil
}

// StyleName returns the known face named by style, or Default.
func StyleName(style string) string {
	switch {
	case style == "":
		return Default
	case strings.Contains(style, Pacifico):
		return Pacifico
	case strings.Contains(style, Caveat):
		return Caveat
	case strings.Contains(style, Sacramento):
		return Sacramento
	case strings.Contains(style, DancingScript) && strings.Contains(style, "Bold"):
		return DancingScriptBold
	case strings.Contains(style, DancingScript):
		return DancingScript
	default:
		return Default
	}
}
