package render

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/IshaanNene/entitymap/internal/types"
)

// Fonts loads the Latin and Arabic typefaces once and hands out faces and
// laid out labels at any size.
type Fonts struct {
	latin  *opentype.Font
	arabic *shaper

	mu    sync.Mutex
	faces map[float64]font.Face
}

// LoadFonts parses the configured font files. An empty latinPath selects
// the Go regular font. An unreadable Arabic font leaves Arabic text
// unshaped, drawn with the Latin font, with a warning.
func LoadFonts(latinPath, arabicPath string, logger *slog.Logger) (*Fonts, error) {
	data, err := readFont(latinPath, goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("latin font: %w", err)
	}
	latin, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("latin font: %w", err)
	}

	f := &Fonts{latin: latin, faces: make(map[float64]font.Face)}
	if arabicPath != "" {
		data, err := readFont(arabicPath, nil)
		if err == nil {
			f.arabic, err = newShaper(data)
		}
		if err != nil {
			logger.Warn("arabic font unavailable, arabic text will not be shaped", "path", arabicPath, "error", err)
		}
	}
	return f, nil
}

func readFont(path string, fallback []byte) ([]byte, error) {
	if path == "" {
		if fallback == nil {
			return nil, fmt.Errorf("no font data")
		}
		return fallback, nil
	}
	return os.ReadFile(path)
}

// Face returns a Latin face of the given size.
func (f *Fonts) Face(size float64) (font.Face, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if face, ok := f.faces[size]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f.latin, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	f.faces[size] = face
	return face, nil
}

// label is one line of text measured and ready to draw.
type label struct {
	text   string
	face   font.Face
	shaped *shapedLine

	width, ascent, descent int
}

// Label lays s out at size. Arabic text is shaped with the Arabic font when
// one is loaded; anything else is drawn with the Latin face.
func (f *Fonts) Label(s string, size float64) (label, error) {
	arabic := types.ContainsArabic(s)
	if arabic && f.arabic != nil {
		line := f.arabic.shape(s, size)
		return label{text: s, shaped: &line, width: line.width, ascent: line.ascent, descent: line.descent}, nil
	}

	face, err := f.Face(size)
	if err != nil {
		return label{}, err
	}
	if arabic {
		s = visualOrder(s)
	}
	w, ascent, descent := measure(face, s)
	return label{text: s, face: face, width: w, ascent: ascent, descent: descent}, nil
}

// Close releases every face.
func (f *Fonts) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, face := range f.faces {
		_ = face.Close()
		delete(f.faces, k)
	}
	return nil
}
