package compositor

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"

	"visage/internal/infra"
)

// Compositor performs the deterministic image transforms of the pipeline:
// merging paired photos into one canvas and rendering share cards.
type Compositor struct {
	templatesPath string
	logger        infra.Logger
}

func New(templatesPath string, logger infra.Logger) *Compositor {
	return &Compositor{templatesPath: templatesPath, logger: logger}
}

// CombineHorizontally merges the images at paths into a single canvas. Every
// input is scaled to the tallest input's height with aspect ratio preserved,
// backed by white, and the results are concatenated left to right. A single
// input is returned unchanged.
func (c *Compositor) CombineHorizontally(paths []string) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("compositor: no input images")
	}
	if len(paths) == 1 {
		return paths[0], nil
	}

	images := make([]image.Image, 0, len(paths))
	maxHeight := 0
	for _, p := range paths {
		img, err := decodeImage(p)
		if err != nil {
			return "", fmt.Errorf("compositor: decode %s: %w", filepath.Base(p), err)
		}
		if h := img.Bounds().Dy(); h > maxHeight {
			maxHeight = h
		}
		images = append(images, img)
	}

	scaled := make([]image.Image, 0, len(images))
	totalWidth := 0
	for _, img := range images {
		s := scaleToHeight(img, maxHeight)
		totalWidth += s.Bounds().Dx()
		scaled = append(scaled, s)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, totalWidth, maxHeight))
	xdraw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)
	offset := 0
	for _, s := range scaled {
		w := s.Bounds().Dx()
		xdraw.Draw(canvas, image.Rect(offset, 0, offset+w, maxHeight), s, s.Bounds().Min, xdraw.Over)
		offset += w
	}

	outPath := filepath.Join(filepath.Dir(paths[0]), "combined.jpg")
	if err := writeJPEG(outPath, canvas); err != nil {
		return "", err
	}
	return outPath, nil
}

// scaleToHeight resizes img so its height equals target, preserving aspect
// ratio, over a white backing.
func scaleToHeight(img image.Image, target int) image.Image {
	b := img.Bounds()
	if b.Dy() == target {
		return img
	}
	width := b.Dx() * target / b.Dy()
	if width < 1 {
		width = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, target))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

func writeJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("compositor: create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		return fmt.Errorf("compositor: encode %s: %w", filepath.Base(path), err)
	}
	return nil
}
