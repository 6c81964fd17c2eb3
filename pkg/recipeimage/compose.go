package recipeimage

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// AlignX is the horizontal placement of a padded image inside its box.
type AlignX string

// AlignY is the vertical placement of a padded image inside its box.
type AlignY string

const (
	AlignLeft    AlignX = "left"
	AlignXMiddle AlignX = "middle"
	AlignRight   AlignX = "right"

	AlignTop     AlignY = "top"
	AlignYMiddle AlignY = "middle"
	AlignBottom  AlignY = "bottom"
)

var transparent = color.NRGBA{}

// ImageProvider lazily produces an image. Providers defer expensive lookups
// and synthesis until an action actually renders.
type ImageProvider func() (image.Image, error)

// OpenImage loads an image file as a provider-compatible value.
func OpenImage(path string) (image.Image, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, NewTextureNotFoundError("", "file not found: "+path)
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, NewTextureNotFoundError("", "cannot decode "+path+": "+err.Error())
	}
	return img, nil
}

// PadAndScale scales img to fit a width x height box preserving aspect ratio
// and pads the remainder with background. The source is upscaled with
// nearest-neighbor only when it is smaller than the box in either dimension,
// then shrunk to fit; the result is placed inside the box per the alignment.
func PadAndScale(
	img image.Image, width, height int, alignX AlignX, alignY AlignY,
	background color.NRGBA,
) *image.NRGBA {
	bounds := img.Bounds()
	if bounds.Dx() < width || bounds.Dy() < height {
		ratio := math.Max(
			float64(width)/float64(bounds.Dx()),
			float64(height)/float64(bounds.Dy()))
		img = imaging.Resize(
			img,
			int(float64(bounds.Dx())*ratio),
			int(float64(bounds.Dy())*ratio),
			imaging.NearestNeighbor)
	}
	fitted := imaging.Fit(img, width, height, imaging.NearestNeighbor)

	var xOffset, yOffset int
	switch alignX {
	case AlignLeft:
		xOffset = 0
	case AlignXMiddle, "":
		xOffset = (width - fitted.Bounds().Dx()) / 2
	case AlignRight:
		xOffset = width - fitted.Bounds().Dx()
	}
	switch alignY {
	case AlignTop:
		yOffset = 0
	case AlignYMiddle, "":
		yOffset = (height - fitted.Bounds().Dy()) / 2
	case AlignBottom:
		yOffset = height - fitted.Bounds().Dy()
	}

	canvas := imaging.New(width, height, background)
	draw.Draw(
		canvas,
		image.Rect(xOffset, yOffset, xOffset+fitted.Bounds().Dx(), yOffset+fitted.Bounds().Dy()),
		fitted, fitted.Bounds().Min, draw.Over)
	return canvas
}

// OverlayImage composites overlay onto background in place at pos. This is
// not plain source-over: the result alpha is the clamped sum of both alphas,
// and the color blend weight accounts for the background's transparency so a
// fully transparent background never leaks its stale color into a
// translucent result.
//
// With oa and ba the overlay and background alphas in [0,1]:
//
//	ratio    = oa + (1-oa)*(1-ba)*oa
//	outColor = overlayColor*ratio + backgroundColor*(1-ratio)
//	outAlpha = min(oa+ba, 1)
//
// Channel values round up when converted back to 8 bits.
func OverlayImage(background *image.NRGBA, overlay image.Image, pos image.Point) {
	layer := imaging.Clone(overlay)
	region := layer.Bounds().Add(pos).Intersect(background.Bounds())
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			op := layer.NRGBAAt(x-pos.X, y-pos.Y)
			bp := background.NRGBAAt(x, y)

			oa := float64(op.A) / 255
			ba := float64(bp.A) / 255
			ratio := oa + (1-oa)*(1-ba)*oa

			blend := func(o, b uint8) uint8 {
				v := (float64(o)/255)*ratio + (float64(b)/255)*(1-ratio)
				return uint8(math.Min(math.Ceil(v*255), 255))
			}
			background.SetNRGBA(x, y, color.NRGBA{
				R: blend(op.R, bp.R),
				G: blend(op.G, bp.G),
				B: blend(op.B, bp.B),
				A: uint8(math.Min(math.Ceil(math.Min(oa+ba, 1)*255), 255)),
			})
		}
	}
}

// PadBox asks for a subimage to be pad-scaled into a fixed box instead of
// being uniformly resized.
type PadBox struct {
	Width  int
	Height int
	AlignX AlignX
	AlignY AlignY
}

// Subimage describes one image pasted onto a composite. Coordinates and the
// box dimensions are in unscaled template units.
type Subimage struct {
	X, Y     int
	Scale    float64
	Provider ImageProvider
	Box      *PadBox
	// AlphaClip forces any nonzero alpha to fully opaque; used for
	// stencil-style masks.
	AlphaClip bool
}

// BuildComposite renders a canvas of the given size (or the background's
// native size when size is nil) multiplied by scale, pad-scales the optional
// background to fill it and overlays the subimages in list order. At least
// one of size and backgroundPath must be given.
func BuildComposite(
	size *image.Point, scale float64, backgroundPath string,
	subimages []Subimage,
) (*image.NRGBA, error) {
	if size == nil && backgroundPath == "" {
		return nil, NewTemplateError(
			"you must provide either the size of the image or the " +
				"background (or both)")
	}
	var width, height int
	if size != nil {
		width, height = size.X, size.Y
	} else {
		img, err := OpenImage(backgroundPath)
		if err != nil {
			return nil, err
		}
		width, height = img.Bounds().Dx(), img.Bounds().Dy()
	}

	canvas := imaging.New(int(float64(width)*scale), int(float64(height)*scale), transparent)
	if backgroundPath != "" {
		img, err := OpenImage(backgroundPath)
		if err != nil {
			return nil, err
		}
		background := PadAndScale(
			img,
			int(float64(width)*scale), int(float64(height)*scale),
			AlignXMiddle, AlignYMiddle, transparent)
		OverlayImage(canvas, background, image.Point{})
	}
	for _, subimage := range subimages {
		if err := PasteSubimage(canvas, scale, subimage); err != nil {
			return nil, err
		}
	}
	return canvas, nil
}

// PasteSubimage pastes one subimage onto img. The outer scale multiplies the
// paste coordinates as well as the subimage's own scale factor.
func PasteSubimage(img *image.NRGBA, scale float64, subimage Subimage) error {
	source, err := subimage.Provider()
	if err != nil {
		return err
	}
	var layer *image.NRGBA
	if subimage.Box != nil {
		layer = PadAndScale(
			source,
			int(float64(subimage.Box.Width)*subimage.Scale*scale),
			int(float64(subimage.Box.Height)*subimage.Scale*scale),
			subimage.Box.AlignX, subimage.Box.AlignY, transparent)
	} else {
		bounds := source.Bounds()
		layer = imaging.Resize(
			source,
			int(float64(bounds.Dx())*subimage.Scale*scale),
			int(float64(bounds.Dy())*subimage.Scale*scale),
			imaging.NearestNeighbor)
	}
	if subimage.AlphaClip {
		alphaClip(layer)
	}
	pos := image.Pt(
		int(float64(subimage.X)*scale),
		int(float64(subimage.Y)*scale))
	OverlayImage(img, layer, pos)
	return nil
}

func alphaClip(img *image.NRGBA) {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			p := img.NRGBAAt(x, y)
			if p.A > 0 {
				p.A = 255
				img.SetNRGBA(x, y, p)
			}
		}
	}
}

// MultiplyColor multiplies every pixel of img by the given color, channel by
// channel. Used to tint the spawn-egg silhouettes.
func MultiplyColor(img image.Image, c color.NRGBA) *image.NRGBA {
	result := imaging.Clone(img)
	bounds := result.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			p := result.NRGBAAt(x, y)
			result.SetNRGBA(x, y, color.NRGBA{
				R: uint8(int(p.R) * int(c.R) / 255),
				G: uint8(int(p.G) * int(c.G) / 255),
				B: uint8(int(p.B) * int(c.B) / 255),
				A: uint8(int(p.A) * int(c.A) / 255),
			})
		}
	}
	return result
}

// TextSpec describes a text element rasterized onto a composite.
type TextSpec struct {
	Text string
	X, Y int
	// Size is the font size in unscaled template units.
	Size float64
	// FontPath is the TTF/OTF file to use; empty selects the built-in
	// Go Regular face.
	FontPath  string
	Color     color.NRGBA
	Alignment string // left, center or right
	// Anchor follows the two-character convention: horizontal l|m|r then
	// vertical a (ascender), m (middle), s (baseline) or b (bottom).
	Anchor      string
	LineSpacing float64
	AntiAlias   bool
}

// PasteText rasterizes possibly multi-line text onto img. The outer scale
// multiplies the position, the font size and the line spacing.
func PasteText(img *image.NRGBA, scale float64, spec TextSpec) error {
	fontBytes := goregular.TTF
	if spec.FontPath != "" {
		data, err := os.ReadFile(spec.FontPath)
		if err != nil {
			return &PathNotFoundError{
				Subpath: spec.FontPath, Searched: []string{spec.FontPath}}
		}
		fontBytes = data
	}
	parsed, err := opentype.Parse(fontBytes)
	if err != nil {
		return NewTemplateError("cannot parse font " + spec.FontPath + ": " + err.Error())
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    spec.Size * scale,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return NewTemplateError("cannot create font face: " + err.Error())
	}
	defer face.Close()

	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil() + int(spec.LineSpacing*scale)
	lines := strings.Split(spec.Text, "\n")

	// Width of the widest line determines the text block.
	lineWidths := make([]int, len(lines))
	blockWidth := 0
	for i, line := range lines {
		lineWidths[i] = font.MeasureString(face, line).Ceil()
		if lineWidths[i] > blockWidth {
			blockWidth = lineWidths[i]
		}
	}
	blockHeight := len(lines) * lineHeight

	x := int(float64(spec.X) * scale)
	y := int(float64(spec.Y) * scale)
	anchor := spec.Anchor
	if anchor == "" {
		anchor = "la"
	}
	switch anchor[0] {
	case 'm':
		x -= blockWidth / 2
	case 'r':
		x -= blockWidth
	}
	// Baseline of the first line.
	baseline := y + metrics.Ascent.Ceil()
	if len(anchor) > 1 {
		switch anchor[1] {
		case 'm':
			baseline = y - blockHeight/2 + metrics.Ascent.Ceil()
		case 's':
			baseline = y
		case 'b', 'd':
			baseline = y - blockHeight + metrics.Ascent.Ceil()
		}
	}

	// Text is rendered onto a scratch layer so anti-aliasing can be
	// stripped before compositing.
	scratch := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), transparent)
	drawer := &font.Drawer{
		Dst:  scratch,
		Src:  image.NewUniform(spec.Color),
		Face: face,
	}
	for i, line := range lines {
		lineX := x
		switch spec.Alignment {
		case "center":
			lineX += (blockWidth - lineWidths[i]) / 2
		case "right":
			lineX += blockWidth - lineWidths[i]
		}
		drawer.Dot = fixed.P(lineX, baseline+i*lineHeight)
		drawer.DrawString(line)
	}
	if !spec.AntiAlias {
		binarizeAlpha(scratch)
	}
	draw.Draw(img, img.Bounds(), scratch, scratch.Bounds().Min, draw.Over)
	return nil
}

// binarizeAlpha approximates a 1-bit font mode for crisp pixel-art text:
// coverage of half and above becomes fully opaque, the rest is dropped.
func binarizeAlpha(img *image.NRGBA) {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			p := img.NRGBAAt(x, y)
			if p.A >= 128 {
				p.A = 255
			} else {
				p.A = 0
			}
			img.SetNRGBA(x, y, p)
		}
	}
}
