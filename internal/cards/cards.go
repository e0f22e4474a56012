// package cards renders printable double-sided game cards: QR codes on the front,
// artist, year and title on the back.
package cards

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strconv"
	"strings"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/desertthunder/songseeker/internal/formatter"
	"github.com/desertthunder/songseeker/internal/models"
	"github.com/desertthunder/songseeker/internal/shared"
)

const (
	pointsPerCM = 72 / 2.54

	boxSize     = 6.5 * pointsPerCM
	pageIndent  = 0.8 * pointsPerCM
	labelSize   = 8.0
	labelMargin = 4.0
	textIndent  = 8.0
	textMargin  = 5.0
	artistSize  = 14.0
	titleSize   = 14.0
	yearSize    = 50.0
	wrapWidth   = 20
	qrPixels    = 512
	iconDivisor = 4
)

// Options configures card rendering.
type Options struct {
	GameName string      // Printed in the lower left corner of both sides
	Icon     image.Image // Drawn over the center of each QR code when set
}

// Layout is the card grid of one page, in points with the origin at the top left.
type Layout struct {
	PageWidth  float64
	PageHeight float64
	Box        float64
	PerRow     int
	PerColumn  int
	HIndent    float64
	VIndent    float64
}

// NewLayout fits as many boxes as possible on the page and centers them horizontally.
func NewLayout(pageWidth, pageHeight float64) Layout {
	l := Layout{PageWidth: pageWidth, PageHeight: pageHeight, Box: boxSize, VIndent: pageIndent}
	l.PerRow = int(pageWidth / boxSize)
	l.PerColumn = int(pageHeight / boxSize)
	l.HIndent = (pageWidth - boxSize*float64(l.PerRow)) / 2
	return l
}

// PerPage is the number of cards on one sheet side.
func (l Layout) PerPage() int {
	return l.PerRow * l.PerColumn
}

// Position returns the top left corner of card index. Backs are mirrored horizontally
// so they line up with their fronts when printed double-sided.
func (l Layout) Position(index int, back bool) (float64, float64) {
	pos := index % l.PerPage()
	col := pos % l.PerRow
	if back {
		col = l.PerRow - 1 - col
	}
	row := pos / l.PerRow
	return l.HIndent + float64(col)*l.Box, l.VIndent + float64(row)*l.Box
}

// LoadIcon reads an icon from a file path or an http(s) URL.
func LoadIcon(ctx context.Context, src string) (image.Image, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(src, "http") {
		data, err = formatter.DownloadImage(ctx, src)
	} else {
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load icon %s: %w", src, err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode icon %s: %v", shared.ErrInvalidInput, src, err)
	}
	return img, nil
}

// QRCode encodes data with quartile error correction, leaving room for an optional centered icon.
func QRCode(data string, size int, icon image.Image) (image.Image, error) {
	qr, err := qrcode.New(data, qrcode.High)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}

	img := qr.Image(size)
	if icon == nil {
		return img, nil
	}

	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Src)

	iconSize := bounds.Dx() / iconDivisor
	offset := (bounds.Dx() - iconSize) / 2
	target := image.Rect(offset, offset, offset+iconSize, offset+iconSize)
	draw.CatmullRom.Scale(dst, target, icon, icon.Bounds(), draw.Over, nil)
	return dst, nil
}

// Wrap breaks text into lines of at most width characters at word boundaries.
// Words longer than width are split.
func Wrap(text string, width int) []string {
	var lines []string
	var current []rune

	for word := range strings.FieldsSeq(text) {
		w := []rune(word)
		for len(w) > width {
			if len(current) > 0 {
				lines = append(lines, string(current))
				current = nil
			}
			lines = append(lines, string(w[:width]))
			w = w[width:]
		}
		switch {
		case len(w) == 0:
		case len(current) == 0:
			current = w
		case len(current)+1+len(w) <= width:
			current = append(append(current, ' '), w...)
		default:
			lines = append(lines, string(current))
			current = w
		}
	}
	if len(current) > 0 {
		lines = append(lines, string(current))
	}
	return lines
}

type renderer struct {
	pdf    *fpdf.Fpdf
	layout Layout
	opts   Options
	tr     func(string) string
}

// Generate writes a card PDF for tracks to w. Each sheet is a front page of QR codes
// followed by a mirrored back page of song details.
func Generate(w io.Writer, tracks []models.Track, opts Options) error {
	if len(tracks) == 0 {
		return fmt.Errorf("%w: no tracks to print", shared.ErrInvalidArgument)
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetTitle(opts.GameName, true)

	width, height := pdf.GetPageSize()
	r := &renderer{pdf: pdf, layout: NewLayout(width, height), opts: opts, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	perPage := r.layout.PerPage()
	for start := 0; start < len(tracks); start += perPage {
		end := min(start+perPage, len(tracks))

		pdf.AddPage()
		for i := start; i < end; i++ {
			if err := r.front(i, tracks[i]); err != nil {
				return err
			}
		}

		pdf.AddPage()
		for i := start; i < end; i++ {
			r.back(i, tracks[i])
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

// WriteFile renders the cards into the PDF file at path.
func WriteFile(path string, tracks []models.Track, opts Options) error {
	var buf bytes.Buffer
	if err := Generate(&buf, tracks, opts); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (r *renderer) front(index int, t models.Track) error {
	x, y := r.layout.Position(index, false)
	box := r.layout.Box

	img, err := QRCode("plex:"+t.RatingKey, qrPixels, r.opts.Icon)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("failed to encode QR image: %w", err)
	}

	name := "qr-" + strconv.Itoa(index)
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	r.pdf.RegisterImageOptionsReader(name, opts, &buf)
	r.pdf.ImageOptions(name, x, y, box, box, false, opts, 0, "")
	r.pdf.Rect(x, y, box, box, "D")

	r.labels(x, y, t.RatingKey)
	return r.pdf.Error()
}

func (r *renderer) back(index int, t models.Track) {
	x, y := r.layout.Position(index, true)
	box := r.layout.Box

	r.labels(x, y, t.RatingKey)

	r.pdf.SetFont("Helvetica", "B", artistSize)
	lineY := y + textIndent + artistSize
	for _, line := range Wrap(t.Artist, wrapWidth) {
		r.centered(x, lineY, line)
		lineY += textMargin + artistSize
	}

	if t.Year != 0 {
		r.pdf.SetFont("Helvetica", "B", yearSize)
		r.centered(x, y+box/2+yearSize/4, strconv.Itoa(t.Year))
	}

	r.pdf.SetFont("Helvetica", "", titleSize)
	lines := Wrap(t.Title, wrapWidth)
	lineY = y + box - (float64(len(lines)-1)*(textMargin+titleSize) + titleSize/2 + textIndent)
	for _, line := range lines {
		r.centered(x, lineY, line)
		lineY += textMargin + titleSize
	}
}

func (r *renderer) centered(x, baseline float64, text string) {
	text = r.tr(text)
	r.pdf.Text(x+(r.layout.Box-r.pdf.GetStringWidth(text))/2, baseline, text)
}

func (r *renderer) labels(x, y float64, ratingKey string) {
	box := r.layout.Box
	baseline := y + box - labelMargin

	r.pdf.SetFont("Helvetica", "", labelSize)
	if r.opts.GameName != "" {
		r.pdf.Text(x+labelMargin, baseline, r.tr(r.opts.GameName))
	}
	if ratingKey != "" {
		w := r.pdf.GetStringWidth(ratingKey)
		r.pdf.Text(x+box-w-labelMargin, baseline, ratingKey)
	}
}
