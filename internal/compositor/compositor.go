// Package compositor turns one photo into the encoded frames of the keyring
// animation: the photo is normalized once, then for every frame it is placed
// by the motion table beneath that frame's overlay and encoded as PNG.
//
// A call either returns every frame or fails with an *Error; it never
// returns a partial sequence and never logs.
package compositor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"sync"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/keyringframes/internal/assets"
	"github.com/ivlev/keyringframes/internal/motion"
	"github.com/ivlev/keyringframes/internal/renderer"
	"github.com/ivlev/keyringframes/internal/system"
)

const (
	DefaultFrameSize   = 420
	DefaultPhotoWidth  = 158
	DefaultPhotoHeight = 170
)

type Options struct {
	FrameSize   int // S, the square canvas side
	PhotoWidth  int // W0
	PhotoHeight int // H0

	Table    *motion.Table // defaults to motion.Keyring
	Overlays assets.Store  // required, one overlay per table entry

	Workers          int // 0 = number of CPUs
	CompressionLevel png.CompressionLevel

	// Progress is called after each finished frame. It may be called
	// from several goroutines at once.
	Progress func(done, total int)
}

type Compositor struct {
	opts    Options
	pngPool *encoderPool
}

func New(opts Options) (*Compositor, error) {
	if opts.FrameSize == 0 {
		opts.FrameSize = DefaultFrameSize
	}
	if opts.PhotoWidth == 0 {
		opts.PhotoWidth = DefaultPhotoWidth
	}
	if opts.PhotoHeight == 0 {
		opts.PhotoHeight = DefaultPhotoHeight
	}
	if opts.Table == nil {
		opts.Table = motion.Keyring
	}
	if opts.FrameSize < 0 || opts.PhotoWidth < 0 || opts.PhotoHeight < 0 {
		return nil, fmt.Errorf("compositor: negative geometry %d, %dx%d", opts.FrameSize, opts.PhotoWidth, opts.PhotoHeight)
	}
	if opts.Overlays == nil {
		return nil, errors.New("compositor: overlay store is required")
	}
	if err := opts.Table.Validate(); err != nil {
		return nil, err
	}
	opts.Workers = system.Workers(opts.Workers)

	return &Compositor{opts: opts, pngPool: &encoderPool{}}, nil
}

// FrameCount is N, the number of frames every successful call returns.
func (c *Compositor) FrameCount() int {
	return c.opts.Table.Len()
}

func (c *Compositor) FrameSize() int {
	return c.opts.FrameSize
}

// GenerateFromReader decodes a photo and generates its frames.
func (c *Compositor) GenerateFromReader(ctx context.Context, r io.Reader) (Sequence, error) {
	photo, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &Error{Kind: KindDecode, Index: -1, Err: err}
	}
	return c.Generate(ctx, photo)
}

// Generate composites photo into FrameCount frames in ascending index order.
// The photo is only read.
func (c *Compositor) Generate(ctx context.Context, photo image.Image) (Sequence, error) {
	if photo == nil {
		return nil, &Error{Kind: KindDecode, Index: -1, Err: errors.New("nil photo")}
	}

	normalized, err := renderer.Normalize(photo, c.opts.PhotoWidth, c.opts.PhotoHeight)
	if err != nil {
		return nil, &Error{Kind: KindGeometry, Index: -1, Err: err}
	}

	need, err := system.CanvasBytes(c.opts.FrameSize)
	if err != nil {
		return nil, &Error{Kind: KindCanvasAllocation, Index: -1, Err: err}
	}
	if err := system.CheckMemory(need * uint64(c.opts.Workers)); err != nil {
		return nil, &Error{Kind: KindCanvasAllocation, Index: -1, Err: err}
	}

	n := c.FrameCount()
	frames := make([][]byte, n)
	var done atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			buf, err := c.renderFrame(normalized, i)
			if err != nil {
				return err
			}
			// each goroutine owns its own slot
			frames[i] = buf
			if c.opts.Progress != nil {
				c.opts.Progress(int(done.Add(1)), n)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Sequence(frames), nil
}

func (c *Compositor) renderFrame(photo image.Image, i int) ([]byte, error) {
	overlay, err := c.opts.Overlays.Overlay(i)
	if err != nil {
		return nil, &Error{Kind: KindAssetMissing, Index: i, Err: err}
	}
	if overlay == nil {
		return nil, &Error{Kind: KindAssetMissing, Index: i, Err: assets.ErrNotFound}
	}

	canvas, err := c.newCanvas()
	if err != nil {
		return nil, &Error{Kind: KindCanvasAllocation, Index: i, Err: err}
	}
	defer system.PutCanvas(canvas)

	m := renderer.Placement(c.opts.FrameSize, photo.Bounds(), c.opts.Table.At(i), c.opts.Table.RotationSign())
	renderer.Composite(canvas, photo, overlay, m)

	buf, err := c.encode(canvas)
	if err != nil {
		return nil, &Error{Kind: KindEncode, Index: i, Err: err}
	}
	return buf, nil
}

func (c *Compositor) newCanvas() (canvas *image.RGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			canvas, err = nil, fmt.Errorf("allocate %dx%d canvas: %v", c.opts.FrameSize, c.opts.FrameSize, r)
		}
	}()
	return system.GetCanvas(image.Rect(0, 0, c.opts.FrameSize, c.opts.FrameSize)), nil
}

func (c *Compositor) encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: c.opts.CompressionLevel, BufferPool: c.pngPool}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encoderPool shares png encoder scratch buffers between frames.
type encoderPool struct {
	pool sync.Pool
}

func (p *encoderPool) Get() *png.EncoderBuffer {
	b, _ := p.pool.Get().(*png.EncoderBuffer)
	return b
}

func (p *encoderPool) Put(b *png.EncoderBuffer) {
	p.pool.Put(b)
}

// ParseCompression maps a config name to a png compression level.
func ParseCompression(name string) (png.CompressionLevel, error) {
	switch name {
	case "", "default":
		return png.DefaultCompression, nil
	case "none":
		return png.NoCompression, nil
	case "speed":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	}
	return 0, fmt.Errorf("unknown compression %q", name)
}
