package pdf

import (
	"embed"
	"strings"
	"unicode"

	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	marotoentity "github.com/johnfercher/maroto/v2/pkg/core/entity"
	"github.com/johnfercher/maroto/v2/pkg/repository"
	"golang.org/x/text/unicode/bidi"
)

// fontFamily DejaVu Sans Condensed: cubre latino y hebreo.
const fontFamily = "dejavu"

//go:embed fonts/*.ttf
var fontFiles embed.FS

// loadFonts registra las tres variantes que usa la hoja (normal, negrita, cursiva).
func loadFonts() ([]*marotoentity.CustomFont, error) {
	read := func(name string) []byte {
		b, _ := fontFiles.ReadFile("fonts/" + name)
		return b
	}
	return repository.New().
		AddUTF8FontFromBytes(fontFamily, fontstyle.Normal, read("DejaVuSansCondensed.ttf")).
		AddUTF8FontFromBytes(fontFamily, fontstyle.Bold, read("DejaVuSansCondensed-Bold.ttf")).
		AddUTF8FontFromBytes(fontFamily, fontstyle.Italic, read("DejaVuSansCondensed-Oblique.ttf")).
		Load()
}

// lrm fija la dirección base del párrafo a izquierda-a-derecha.
const lrm = "\u200e"

// visual devuelve s en orden de dibujo. El PDF escribe los glifos en orden
// lógico, así que los tramos en hebreo se invierten aquí; los números dentro
// de un tramo hebreo conservan su orden.
func visual(s string) string {
	if !hasRTL(s) {
		return s
	}
	var p bidi.Paragraph
	if _, err := p.SetString(lrm + s); err != nil {
		return s
	}
	o, err := p.Order()
	if err != nil {
		return s
	}

	var out strings.Builder
	var block []bidi.Run
	flush := func() {
		for i := len(block) - 1; i >= 0; i-- {
			if block[i].Direction() == bidi.RightToLeft {
				out.WriteString(bidi.ReverseString(block[i].String()))
			} else {
				out.WriteString(block[i].String())
			}
		}
		block = block[:0]
	}
	for i := 0; i < o.NumRuns(); i++ {
		r := o.Run(i)
		switch {
		case r.Direction() == bidi.RightToLeft:
			block = append(block, r)
		case len(block) > 0 && numeric(r.String()):
			block = append(block, r)
		default:
			flush()
			out.WriteString(r.String())
		}
	}
	flush()
	return strings.TrimPrefix(out.String(), lrm)
}

func hasRTL(s string) bool {
	for _, r := range s {
		if r < unicode.MaxASCII {
			continue
		}
		props, _ := bidi.LookupRune(r)
		if c := props.Class(); c == bidi.R || c == bidi.AL {
			return true
		}
	}
	return false
}

// numeric tramo con cifras y sin letras latinas (nivel embebido dentro de texto hebreo).
func numeric(s string) bool {
	digits := false
	for _, r := range s {
		props, _ := bidi.LookupRune(r)
		switch props.Class() {
		case bidi.L:
			return false
		case bidi.EN, bidi.AN:
			digits = true
		}
	}
	return digits
}
