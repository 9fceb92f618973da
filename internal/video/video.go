package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"
)

type Options struct {
	FPS     int
	Loops   int    // how many times the sequence repeats, at least 1
	Encoder string // ffmpeg video encoder, see system.GetBestH264Encoder
	Quality int    // crf/cq for libx264/nvenc, bitrate/100 for videotoolbox
}

type LoopEncoder interface {
	EncodeLoop(ctx context.Context, frames []image.Image, videoPath string, opts Options) error
}

// FFmpegEncoder renders a frame sequence into a looping H.264 preview. Frames
// are flattened onto white, the way the display host shows them.
type FFmpegEncoder struct{}

func (e *FFmpegEncoder) EncodeLoop(ctx context.Context, frames []image.Image, videoPath string, opts Options) error {
	if len(frames) == 0 {
		return errors.New("no frames to encode")
	}
	if opts.FPS <= 0 {
		return fmt.Errorf("invalid fps %d", opts.FPS)
	}
	if opts.Loops < 1 {
		opts.Loops = 1
	}
	if opts.Encoder == "" {
		opts.Encoder = "libx264"
	}

	size := frames[0].Bounds().Size()
	raw := make([]*image.RGBA, len(frames))
	for i, f := range frames {
		if f.Bounds().Size() != size {
			return fmt.Errorf("frame %d is %v, expected %v", i, f.Bounds().Size(), size)
		}
		raw[i] = flatten(f)
	}

	args := e.buildFFmpegArgs(size.X, size.Y, videoPath, opts)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe error: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	if err := writeLoops(stdin, raw, opts.Loops); err != nil {
		stdin.Close()
		cmd.Wait()
		return fmt.Errorf("write raw error: %w", err)
	}
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error: %w", err)
	}
	return nil
}

func (e *FFmpegEncoder) buildFFmpegArgs(inputW, inputH int, videoPath string, opts Options) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", inputW, inputH),
		"-framerate", fmt.Sprintf("%d", opts.FPS),
		"-i", "-",
		// yuv420p needs even dimensions
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"-pix_fmt", "yuv420p",
		"-c:v", opts.Encoder,
	}

	switch opts.Encoder {
	case "h264_videotoolbox":
		args = append(args, "-b:v", fmt.Sprintf("%dk", opts.Quality*100))
	case "h264_nvenc":
		args = append(args, "-cq", fmt.Sprintf("%d", opts.Quality))
	default: // libx264
		args = append(args, "-crf", fmt.Sprintf("%d", opts.Quality), "-preset", "medium")
	}

	return append(args, videoPath)
}

func writeLoops(w io.Writer, frames []*image.RGBA, loops int) error {
	for l := 0; l < loops; l++ {
		for _, f := range frames {
			if _, err := w.Write(f.Pix); err != nil {
				return err
			}
		}
	}
	return nil
}

// flatten composites img over opaque white into a tightly packed RGBA buffer.
func flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Rect, image.White, image.Point{}, draw.Src)
	draw.Draw(rgba, rgba.Rect, img, b.Min, draw.Over)
	return rgba
}
