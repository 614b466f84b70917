package pipeline

import (
	"image"
	"image/color"

	exif "github.com/dsoprea/go-exif/v3"
	"golang.org/x/image/draw"
)

// exifOrientation returns the EXIF orientation (1-8) stored in raw image
// bytes, or 1 when the file carries no usable orientation tag.
func exifOrientation(raw []byte) int {
	if len(raw) == 0 {
		return 1
	}

	rawExif, err := exif.SearchAndExtractExif(raw)
	if err != nil || rawExif == nil {
		return 1
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return 1
	}

	for _, entry := range entries {
		if entry.TagName != "Orientation" {
			continue
		}
		if values, ok := entry.Value.([]uint16); ok && len(values) > 0 {
			if o := int(values[0]); o >= 1 && o <= 8 {
				return o
			}
		}
		return 1
	}
	return 1
}

// orient returns img transformed so that it displays upright for the given
// EXIF orientation. Orientation 1 returns img unchanged.
func orient(img image.Image, orientation int) image.Image {
	if orientation <= 1 || orientation > 8 {
		return img
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	dw, dh := w, h
	if orientation >= 5 {
		dw, dh = h, w
	}

	// srcAt maps a destination pixel to the source pixel it shows.
	var srcAt func(x, y int) (int, int)
	switch orientation {
	case 2: // mirrored horizontally
		srcAt = func(x, y int) (int, int) { return w - 1 - x, y }
	case 3: // rotated 180
		srcAt = func(x, y int) (int, int) { return w - 1 - x, h - 1 - y }
	case 4: // mirrored vertically
		srcAt = func(x, y int) (int, int) { return x, h - 1 - y }
	case 5: // transposed
		srcAt = func(x, y int) (int, int) { return y, x }
	case 6: // needs 90 clockwise
		srcAt = func(x, y int) (int, int) { return y, h - 1 - x }
	case 7: // transversed
		srcAt = func(x, y int) (int, int) { return w - 1 - y, h - 1 - x }
	case 8: // needs 90 counter-clockwise
		srcAt = func(x, y int) (int, int) { return w - 1 - y, x }
	}

	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	for y := range dh {
		for x := range dw {
			sx, sy := srcAt(x, y)
			dst.Set(x, y, img.At(b.Min.X+sx, b.Min.Y+sy))
		}
	}
	return dst
}

// flatten composites img over a solid background and returns an opaque
// RGBA image with its origin at (0, 0).
func flatten(img image.Image, background color.Color) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// scaledSize returns the dimensions of a w x h image scaled so that its
// shorter side equals target, keeping the aspect ratio.
func scaledSize(w, h, target int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	if w <= h {
		return target, max(1, (h*target+w/2)/w)
	}
	return max(1, (w*target+h/2)/h), target
}

// resizeMinSide scales img with Catmull-Rom so that its shorter side
// equals target.
func resizeMinSide(img image.Image, target int) image.Image {
	b := img.Bounds()
	w, h := scaledSize(b.Dx(), b.Dy(), target)
	if w == b.Dx() && h == b.Dy() {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
