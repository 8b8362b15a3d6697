package export

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/image/font/sfnt"
)

// ErrMissingGlyphs is returned when some text cannot be drawn by any of the
// PDF fonts.
var ErrMissingGlyphs = errors.New("no PDF font covers the text")

var (
	//go:embed fonts/DejaVuSans.ttf
	dejaVuSans []byte
	//go:embed fonts/DejaVuSans-Bold.ttf
	dejaVuSansBold []byte
)

// Font is a TrueType face that PDF exports can draw with.
type Font struct {
	Name    string
	regular []byte
	bold    []byte
	hasRune func(r rune) bool
}

// NewFont parses a TrueType face. bold may be nil, in which case headers use
// the regular face.
func NewFont(name string, regular, bold []byte) (*Font, error) {
	face, err := sfnt.Parse(regular)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", name, err)
	}
	if bold == nil {
		bold = regular
	}
	var (
		mu  sync.Mutex
		buf sfnt.Buffer
	)
	hasRune := func(r rune) bool {
		mu.Lock()
		defer mu.Unlock()
		gi, err := face.GlyphIndex(&buf, r)
		return err == nil && gi != 0
	}
	return &Font{Name: name, regular: regular, bold: bold, hasRune: hasRune}, nil
}

// LoadFont reads a TrueType file, for example Noto Sans Sinhala.
func LoadFont(path string) (*Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return NewFont(name, data, nil)
}

// DefaultFont is the embedded DejaVu Sans face. It covers Latin, Greek and
// Cyrillic but not the Sinhala or Tamil blocks.
var DefaultFont = sync.OnceValue(func() *Font {
	f, err := NewFont("DejaVuSans", dejaVuSans, dejaVuSansBold)
	if err != nil {
		panic(err)
	}
	return f
})

// Covers reports whether the face has a glyph for r. Runes outside the Basic
// Multilingual Plane are never covered: fpdf writes text as UCS-2.
func (f *Font) Covers(r rune) bool {
	if r > 0xFFFF {
		return false
	}
	return ignorable(r) || f.hasRune(r)
}

// ignorable runes draw nothing and need no glyph.
func ignorable(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\ufeff':
		return true
	}
	return unicode.IsSpace(r) || unicode.IsControl(r) || unicode.Is(unicode.Variation_Selector, r)
}

// fontSet picks, per word, the first font that can draw all of it.
type fontSet struct {
	fonts   []*Font
	missing map[rune]bool
}

func newFontSet(fonts []*Font) *fontSet {
	if len(fonts) == 0 {
		fonts = []*Font{DefaultFont()}
	}
	return &fontSet{fonts: fonts, missing: map[rune]bool{}}
}

func (s *fontSet) family(i int) string {
	return fmt.Sprintf("F%d", i)
}

// pick returns the index of the font for word. Runes the chosen font cannot
// draw are remembered and reported by err.
func (s *fontSet) pick(word string) int {
	best, bestCount := 0, -1
	for i, f := range s.fonts {
		n := 0
		for _, r := range word {
			if f.Covers(r) {
				n++
			}
		}
		if n == utf8.RuneCountInString(word) {
			return i
		}
		if n > bestCount {
			best, bestCount = i, n
		}
	}
	for _, r := range word {
		if !s.fonts[best].Covers(r) {
			s.missing[r] = true
		}
	}
	return best
}

func (s *fontSet) err() error {
	if len(s.missing) == 0 {
		return nil
	}
	runes := make([]rune, 0, len(s.missing))
	for r := range s.missing {
		runes = append(runes, r)
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })

	names := make([]string, 0, len(runes))
	for i, r := range runes {
		if i == 5 {
			names = append(names, fmt.Sprintf("and %d more", len(runes)-i))
			break
		}
		names = append(names, fmt.Sprintf("U+%04X %q", r, r))
	}
	return fmt.Errorf("%w: %s; add a font for this script with EXPORT_PDF_FONTS",
		ErrMissingGlyphs, strings.Join(names, ", "))
}
