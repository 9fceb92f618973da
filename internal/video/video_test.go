package video

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"strings"
	"testing"
)

func TestBuildFFmpegArgs(t *testing.T) {
	e := &FFmpegEncoder{}
	tests := []struct {
		encoder string
		want    string
	}{
		{"libx264", "-crf 23 -preset medium"},
		{"h264_nvenc", "-cq 23"},
		{"h264_videotoolbox", "-b:v 2300k"},
	}

	for _, tt := range tests {
		t.Run(tt.encoder, func(t *testing.T) {
			args := e.buildFFmpegArgs(420, 420, "out.mp4", Options{FPS: 15, Encoder: tt.encoder, Quality: 23})
			joined := strings.Join(args, " ")

			for _, part := range []string{"-video_size 420x420", "-framerate 15", "-c:v " + tt.encoder, tt.want} {
				if !strings.Contains(joined, part) {
					t.Errorf("args %q missing %q", joined, part)
				}
			}
			if args[len(args)-1] != "out.mp4" {
				t.Errorf("output path must be last, got %q", args[len(args)-1])
			}
		})
	}
}

func TestFlattenOnWhite(t *testing.T) {
	img := image.NewNRGBA(image.Rect(10, 10, 14, 14))
	img.SetNRGBA(10, 10, color.NRGBA{255, 0, 0, 255})

	got := flatten(img)
	if got.Bounds() != image.Rect(0, 0, 4, 4) {
		t.Fatalf("unexpected bounds %v", got.Bounds())
	}
	if c := got.RGBAAt(0, 0); c != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("opaque pixel = %v", c)
	}
	if c := got.RGBAAt(3, 3); c != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("transparent pixel should become white, got %v", c)
	}
}

func TestWriteLoops(t *testing.T) {
	a := image.NewRGBA(image.Rect(0, 0, 1, 1))
	a.Pix = []byte{1, 2, 3, 4}
	b := image.NewRGBA(image.Rect(0, 0, 1, 1))
	b.Pix = []byte{5, 6, 7, 8}

	var buf bytes.Buffer
	if err := writeLoops(&buf, []*image.RGBA{a, b}, 2); err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 1, 2, 3, 4, 5, 6, 7, 8}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("got %v, want %v", buf.Bytes(), want)
	}
}

func TestEncodeLoopValidation(t *testing.T) {
	e := &FFmpegEncoder{}
	ctx := context.Background()

	if err := e.EncodeLoop(ctx, nil, "out.mp4", Options{FPS: 15}); err == nil {
		t.Error("expected error for no frames")
	}

	frames := []image.Image{image.NewRGBA(image.Rect(0, 0, 4, 4))}
	if err := e.EncodeLoop(ctx, frames, "out.mp4", Options{}); err == nil {
		t.Error("expected error for zero fps")
	}

	frames = append(frames, image.NewRGBA(image.Rect(0, 0, 2, 2)))
	if err := e.EncodeLoop(ctx, frames, "out.mp4", Options{FPS: 15}); err == nil {
		t.Error("expected error for mixed frame sizes")
	}
}
