package renderer

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/ivlev/keyringframes/internal/motion"
)

// Placement returns the source-to-canvas affine for a photo of the given size.
// The photo is moved so its center sits at the origin, rotated by
// sign*t.Rotation degrees (counter-clockwise on screen for sign=+1), then moved
// to the raster position of (t.DX, t.DY) on a size×size canvas.
func Placement(size int, photo image.Rectangle, t motion.Transform, sign float64) f64.Aff3 {
	cx, cy := motion.ToRaster(size, t.DX, t.DY)

	// photo center in source coordinates
	px := float64(photo.Min.X) + float64(photo.Dx())/2
	py := float64(photo.Min.Y) + float64(photo.Dy())/2

	sin, cos := math.Sincos(sign * t.Rotation * math.Pi / 180)

	// Raster Y grows downward, so a visual counter-clockwise turn is
	// x' = u*cos + v*sin, y' = -u*sin + v*cos.
	return f64.Aff3{
		cos, sin, cx - cos*px - sin*py,
		-sin, cos, cy + sin*px - cos*py,
	}
}

// DrawPhoto renders photo onto dst through m using Catmull-Rom resampling.
// Canvas pixels the transformed photo does not cover are left untouched.
func DrawPhoto(dst draw.Image, photo image.Image, m f64.Aff3) {
	draw.CatmullRom.Transform(dst, m, photo, photo.Bounds(), draw.Over, nil)
}

// DrawOverlay draws overlay source-over across the whole of dst,
// scaling it when its size differs from the canvas.
func DrawOverlay(dst draw.Image, overlay image.Image) {
	db, ob := dst.Bounds(), overlay.Bounds()
	if db.Size() == ob.Size() {
		draw.Draw(dst, db, overlay, ob.Min, draw.Over)
		return
	}
	draw.CatmullRom.Scale(dst, db, overlay, ob, draw.Over, nil)
}

// Composite layers photo (placed by m) under overlay on dst.
func Composite(dst draw.Image, photo, overlay image.Image, m f64.Aff3) {
	DrawPhoto(dst, photo, m)
	DrawOverlay(dst, overlay)
}
