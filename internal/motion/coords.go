package motion

// ToRaster converts a center-origin, Y-up offset on a size×size canvas into
// top-left-origin, Y-down raster coordinates.
func ToRaster(size int, dx, dy float64) (x, y float64) {
	s := float64(size)
	x = s/2 + dx
	y = s - (s/2 + dy)
	return x, y
}

// FromRaster is the inverse of ToRaster.
func FromRaster(size int, x, y float64) (dx, dy float64) {
	s := float64(size)
	return x - s/2, s/2 - y
}
