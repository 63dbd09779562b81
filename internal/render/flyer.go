package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // product image decoding
	_ "image/jpeg" // product image decoding
	_ "image/png"  // product image decoding
	"net/http"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/dealwire/social-engine/internal/logger"
	"github.com/dealwire/social-engine/internal/models"
)

// FlyerFormat is one fixed output geometry.
type FlyerFormat struct {
	Name   string
	Width  int
	Height int
}

// The three render targets: portrait feed, square, and tall story.
var FlyerFormats = []FlyerFormat{
	{Name: "feed", Width: 1080, Height: 1350},
	{Name: "square", Width: 1080, Height: 1080},
	{Name: "story", Width: 1080, Height: 1920},
}

// Flyer is one rendered image artifact.
type Flyer struct {
	Format FlyerFormat
	PNG    []byte
}

const (
	titleMaxLines  = 2
	titleStartSize = 72.0
	titleMinSize   = 28.0
	titleSizeStep  = 4.0

	footerHeight = 90.0
	marginX      = 60.0
)

// Brand palette.
var (
	colorBackground = "#ffffff"
	colorInk        = "#1a1a2e"
	colorAccent     = "#e94560"
	colorFooter     = "#16213e"
)

// FlyerRenderer produces the three flyer images for a deal. The product
// image is fetched over HTTP with a timeout; any fetch or decode failure
// degrades to a drawn brand placeholder, so a broken image never aborts a
// render.
type FlyerRenderer struct {
	client *http.Client
	logger logger.Logger
}

// NewFlyerRenderer creates a renderer with the given product-image fetch
// timeout.
func NewFlyerRenderer(imageTimeout time.Duration, log logger.Logger) *FlyerRenderer {
	if imageTimeout <= 0 {
		imageTimeout = 10 * time.Second
	}
	return &FlyerRenderer{
		client: &http.Client{Timeout: imageTimeout},
		logger: log,
	}
}

// Render produces all three formats for the deal in the chosen language.
func (r *FlyerRenderer) Render(ctx context.Context, deal *models.Deal, lang models.Language) ([]Flyer, error) {
	productImg := r.fetchProductImage(ctx, deal.ImageURL)

	flyers := make([]Flyer, 0, len(FlyerFormats))
	for _, format := range FlyerFormats {
		png, err := r.renderOne(format, deal, lang, productImg)
		if err != nil {
			return nil, fmt.Errorf("render %s flyer: %w", format.Name, err)
		}
		flyers = append(flyers, Flyer{Format: format, PNG: png})
	}

	return flyers, nil
}

// fetchProductImage downloads and decodes the deal's image. On any failure
// it returns the drawn placeholder.
func (r *FlyerRenderer) fetchProductImage(ctx context.Context, url string) image.Image {
	if url == "" {
		return placeholderImage()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		r.logger.Warn("bad product image URL, using placeholder",
			logger.String("url", url), logger.Error(err))
		return placeholderImage()
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("product image fetch failed, using placeholder",
			logger.String("url", url), logger.Error(err))
		return placeholderImage()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("product image fetch returned non-200, using placeholder",
			logger.String("url", url), logger.Int("status", resp.StatusCode))
		return placeholderImage()
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		r.logger.Warn("product image decode failed, using placeholder",
			logger.String("url", url), logger.Error(err))
		return placeholderImage()
	}

	return img
}

// placeholderImage draws the brand fallback asset. Drawn programmatically
// so the binary carries no image files.
func placeholderImage() image.Image {
	const size = 800
	dc := gg.NewContext(size, size)
	dc.SetHexColor(colorFooter)
	dc.Clear()
	dc.SetHexColor(colorAccent)
	dc.DrawCircle(size/2, size/2, size/3)
	dc.Fill()
	dc.SetHexColor(colorBackground)
	if face, err := loadFace(gobold.TTF, 120); err == nil {
		dc.SetFontFace(face)
		dc.DrawStringAnchored("DW", size/2, size/2, 0.5, 0.5)
	}
	return dc.Image()
}

func (r *FlyerRenderer) renderOne(format FlyerFormat, deal *models.Deal, lang models.Language, productImg image.Image) ([]byte, error) {
	w := float64(format.Width)
	h := float64(format.Height)

	dc := gg.NewContext(format.Width, format.Height)
	dc.SetHexColor(colorBackground)
	dc.Clear()

	// Title block: wrapped to at most two lines, shrinking the face until
	// it fits or the floor is reached.
	titleFace, lines, lineHeight, err := fitTitle(deal.Title(lang), w-2*marginX)
	if err != nil {
		return nil, fmt.Errorf("layout title: %w", err)
	}
	dc.SetFontFace(titleFace)
	dc.SetHexColor(colorInk)
	titleTop := 70.0
	for i, line := range lines {
		dc.DrawStringAnchored(line, w/2, titleTop+float64(i)*lineHeight, 0.5, 0.5)
	}
	titleBottom := titleTop + float64(titleMaxLines)*lineHeight

	// Product image fitted into a bounded box between title and badge.
	boxTop := titleBottom + 30
	boxBottom := h - footerHeight - 220
	drawImageFitted(dc, productImg, marginX, boxTop, w-2*marginX, boxBottom-boxTop)

	// Price badge.
	if err := drawPriceBadge(dc, deal, lang, w, boxBottom+40); err != nil {
		return nil, fmt.Errorf("draw price badge: %w", err)
	}

	// Brand footer.
	if err := drawFooter(dc, w, h); err != nil {
		return nil, fmt.Errorf("draw footer: %w", err)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// fitTitle finds the largest font size at or above the floor whose
// word-wrap of the title fits in two lines. At the floor the text is
// wrapped regardless and truncated to two lines.
func fitTitle(title string, maxWidth float64) (font.Face, []string, float64, error) {
	for size := titleStartSize; size >= titleMinSize; size -= titleSizeStep {
		face, err := loadFace(gobold.TTF, size)
		if err != nil {
			return nil, nil, 0, err
		}

		dc := gg.NewContext(1, 1)
		dc.SetFontFace(face)
		lines := dc.WordWrap(title, maxWidth)

		if len(lines) <= titleMaxLines || size-titleSizeStep < titleMinSize {
			if len(lines) > titleMaxLines {
				lines = lines[:titleMaxLines]
				lines[titleMaxLines-1] += "…"
			}
			return face, lines, size * 1.35, nil
		}
	}
	return nil, nil, 0, fmt.Errorf("unreachable title layout state")
}

// drawImageFitted scales the image to fit inside the box, preserving aspect
// ratio and centering it.
func drawImageFitted(dc *gg.Context, img image.Image, x, y, boxW, boxH float64) {
	bounds := img.Bounds()
	iw := float64(bounds.Dx())
	ih := float64(bounds.Dy())
	if iw <= 0 || ih <= 0 {
		return
	}

	scale := boxW / iw
	if s := boxH / ih; s < scale {
		scale = s
	}

	dc.Push()
	dc.Translate(x+(boxW-iw*scale)/2, y+(boxH-ih*scale)/2)
	dc.Scale(scale, scale)
	dc.DrawImage(img, 0, 0)
	dc.Pop()
}

func drawPriceBadge(dc *gg.Context, deal *models.Deal, lang models.Language, w, y float64) error {
	priceFace, err := loadFace(gobold.TTF, 64)
	if err != nil {
		return err
	}
	smallFace, err := loadFace(goregular.TTF, 34)
	if err != nil {
		return err
	}

	const badgeW, badgeH = 520.0, 130.0
	x := (w - badgeW) / 2

	dc.SetHexColor(colorAccent)
	dc.DrawRoundedRectangle(x, y, badgeW, badgeH, 24)
	dc.Fill()

	dc.SetFontFace(priceFace)
	dc.SetHexColor(colorBackground)
	dc.DrawStringAnchored(formatPrice(deal.Price), x+badgeW/2, y+badgeH/2-12, 0.5, 0.5)

	dc.SetFontFace(smallFace)
	sub := ""
	if deal.OldPrice != nil && *deal.OldPrice > deal.Price {
		sub = formatPrice(*deal.OldPrice)
	}
	if pct := deal.Discount(); pct >= 1 {
		if sub != "" {
			sub += "  "
		}
		sub += fmt.Sprintf("-%d%%", int(pct))
	}
	if sub != "" {
		dc.DrawStringAnchored(sub, x+badgeW/2, y+badgeH/2+36, 0.5, 0.5)
	}

	return nil
}

func drawFooter(dc *gg.Context, w, h float64) error {
	face, err := loadFace(gobold.TTF, 40)
	if err != nil {
		return err
	}

	dc.SetHexColor(colorFooter)
	dc.DrawRectangle(0, h-footerHeight, w, footerHeight)
	dc.Fill()

	dc.SetFontFace(face)
	dc.SetHexColor(colorBackground)
	dc.DrawStringAnchored("DEALWIRE · dealwire.io", w/2, h-footerHeight/2, 0.5, 0.5)

	return nil
}

func loadFace(ttf []byte, size float64) (font.Face, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	return face, nil
}
