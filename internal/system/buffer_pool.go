package system

import (
	"image"
	"sync"
)

// CanvasPool reuses origin-anchored *image.RGBA canvases across frames,
// one sync.Pool per canvas size.
type CanvasPool struct {
	pools sync.Map // image.Point -> *sync.Pool
}

var globalPool = NewCanvasPool()

func NewCanvasPool() *CanvasPool {
	return &CanvasPool{}
}

// GetCanvas returns a fully transparent canvas from the shared pool.
func GetCanvas(rect image.Rectangle) *image.RGBA {
	return globalPool.Get(rect)
}

// PutCanvas hands a canvas back to the shared pool.
func PutCanvas(img *image.RGBA) {
	globalPool.Put(img)
}

func (p *CanvasPool) pool(size image.Point) *sync.Pool {
	if v, ok := p.pools.Load(size); ok {
		return v.(*sync.Pool)
	}
	v, _ := p.pools.LoadOrStore(size, &sync.Pool{
		New: func() any {
			return image.NewRGBA(image.Rectangle{Max: size})
		},
	})
	return v.(*sync.Pool)
}

// Get returns a canvas covering rect with every pixel cleared to transparent black.
func (p *CanvasPool) Get(rect image.Rectangle) *image.RGBA {
	img := p.pool(rect.Size()).Get().(*image.RGBA)
	clear(img.Pix)
	img.Rect = rect
	return img
}

// Put returns img to the pool of its size. Sub-images and nil are dropped.
func (p *CanvasPool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	size := img.Rect.Size()
	if len(img.Pix) != size.X*size.Y*4 || img.Stride != size.X*4 {
		return
	}
	if v, ok := p.pools.Load(size); ok {
		v.(*sync.Pool).Put(img)
	}
}
