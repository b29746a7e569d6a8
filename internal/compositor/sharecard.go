package compositor

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	cardWidth  = 1080
	cardHeight = 1350

	captionMaxLineLen = 35
	captionMarginX    = 72
	captionMarginY    = 96
	lineSpacing       = 26
	sentenceSpacing   = 14

	avatarDiameter = 220
	avatarPadding  = 48
)

// RenderShareCard draws the caption and a circular avatar onto a template
// background and returns the path of the flattened card. basePhoto serves as
// the avatar fallback when avatarPath is empty or unreadable.
func (c *Compositor) RenderShareCard(basePhoto, caption, avatarPath string) (string, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, cardWidth, cardHeight))
	xdraw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)

	if tpl, err := c.loadTemplate(); err != nil {
		c.logger.Warn().Err(err).Msg("compositor: template unavailable, using plain background")
	} else {
		xdraw.CatmullRom.Scale(canvas, canvas.Bounds(), tpl, tpl.Bounds(), xdraw.Src, nil)
	}

	drawCaption(canvas, caption)

	avatar, err := decodeImage(avatarPath)
	if err != nil || avatarPath == "" {
		avatar, err = decodeImage(basePhoto)
		if err != nil {
			return "", fmt.Errorf("compositor: load avatar fallback: %w", err)
		}
	}
	drawCircularAvatar(canvas, avatar)

	outPath := filepath.Join(filepath.Dir(basePhoto), "card.jpg")
	if err := writeJPEG(outPath, canvas); err != nil {
		return "", err
	}
	return outPath, nil
}

// loadTemplate picks the lexically first image in the templates directory so
// card backgrounds stay deterministic across runs.
func (c *Compositor) loadTemplate() (image.Image, error) {
	entries, err := os.ReadDir(c.templatesPath)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no template images in %s", c.templatesPath)
	}
	sort.Strings(names)
	return decodeImage(filepath.Join(c.templatesPath, names[0]))
}

type captionLine struct {
	text        string
	sentenceEnd bool
}

// wrapCaption greedily re-breaks the caption on word boundaries once a line
// would exceed captionMaxLineLen runes. A line that closes a sentence is
// flagged so the renderer can add breathing room before the next one.
func wrapCaption(caption string) []captionLine {
	var lines []captionLine
	for _, para := range strings.Split(caption, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}
		current := words[0]
		for _, word := range words[1:] {
			if utf8.RuneCountInString(current)+1+utf8.RuneCountInString(word) > captionMaxLineLen {
				lines = append(lines, captionLine{text: current, sentenceEnd: endsSentence(current)})
				current = word
				continue
			}
			current += " " + word
		}
		lines = append(lines, captionLine{text: current, sentenceEnd: endsSentence(current)})
	}
	return lines
}

func endsSentence(line string) bool {
	trimmed := strings.TrimRight(line, `"')`)
	return strings.HasSuffix(trimmed, ".") ||
		strings.HasSuffix(trimmed, "!") ||
		strings.HasSuffix(trimmed, "?") ||
		strings.HasSuffix(trimmed, "…")
}

func drawCaption(canvas *image.RGBA, caption string) {
	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.RGBA{A: 255}),
		Face: basicfont.Face7x13,
	}
	y := captionMarginY
	for _, line := range wrapCaption(caption) {
		drawer.Dot = fixed.P(captionMarginX, y)
		drawer.DrawString(line.text)
		y += lineSpacing
		if line.sentenceEnd {
			y += sentenceSpacing
		}
	}
}

// drawCircularAvatar places the avatar bottom-right, cropped to a circle.
func drawCircularAvatar(canvas *image.RGBA, avatar image.Image) {
	square := image.NewRGBA(image.Rect(0, 0, avatarDiameter, avatarDiameter))
	xdraw.CatmullRom.Scale(square, square.Bounds(), avatar, centerSquare(avatar.Bounds()), xdraw.Src, nil)

	x := cardWidth - avatarDiameter - avatarPadding
	y := cardHeight - avatarDiameter - avatarPadding
	target := image.Rect(x, y, x+avatarDiameter, y+avatarDiameter)
	mask := &circleMask{d: avatarDiameter}
	xdraw.DrawMask(canvas, target, square, image.Point{}, mask, image.Point{}, xdraw.Over)
}

// centerSquare returns the largest centered square within b, so non-square
// avatars crop instead of distorting.
func centerSquare(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	if w == h {
		return b
	}
	if w > h {
		off := (w - h) / 2
		return image.Rect(b.Min.X+off, b.Min.Y, b.Min.X+off+h, b.Max.Y)
	}
	off := (h - w) / 2
	return image.Rect(b.Min.X, b.Min.Y+off, b.Max.X, b.Min.Y+off+w)
}

// circleMask is an alpha mask that is opaque inside the inscribed circle of a
// d-by-d square and transparent outside it.
type circleMask struct {
	d int
}

func (m *circleMask) ColorModel() color.Model { return color.AlphaModel }

func (m *circleMask) Bounds() image.Rectangle { return image.Rect(0, 0, m.d, m.d) }

func (m *circleMask) At(x, y int) color.Color {
	r := float64(m.d) / 2
	dx := float64(x) + 0.5 - r
	dy := float64(y) + 0.5 - r
	if dx*dx+dy*dy <= r*r {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}
