package main

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/keyringframes/internal/storage"
	"github.com/ivlev/keyringframes/internal/system"
	"github.com/ivlev/keyringframes/internal/video"
)

func (a *app) previewCmd() *cobra.Command {
	var (
		out     string
		loops   int
		quality int
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Encode the stored frames into a looping MP4 preview",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := a.store(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			m, err := store.Manifest(ctx)
			if err != nil {
				return err
			}

			frames := make([]image.Image, m.Count)
			for i := range frames {
				data, err := store.Load(ctx, i)
				if err != nil {
					return err
				}
				if frames[i], err = png.Decode(bytes.NewReader(data)); err != nil {
					return fmt.Errorf("decode %s: %w", storage.FrameName(i), err)
				}
			}

			if out == "" {
				out = filepath.Join("output", fmt.Sprintf("keyring_%s.mp4", time.Now().Format("2006-01-02_15-04-05")))
			}
			if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
				return err
			}

			encoder := system.GetBestH264Encoder()
			if encoder != "libx264" {
				a.log.Info("hardware encoder detected", "encoder", encoder)
			}
			if quality == 0 {
				switch encoder {
				case "h264_videotoolbox":
					quality = 75
				case "h264_nvenc":
					quality = 28
				default:
					quality = 23
				}
			}

			enc := &video.FFmpegEncoder{}
			err = enc.EncodeLoop(ctx, frames, out, video.Options{
				FPS:     a.cfg.FPS,
				Loops:   loops,
				Encoder: encoder,
				Quality: quality,
			})
			if err != nil {
				return err
			}

			a.log.Info("preview written", "path", out, "frames", m.Count, "loops", loops)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output video (default: output/keyring_<timestamp>.mp4)")
	cmd.Flags().IntVar(&loops, "loops", 4, "how many times the animation repeats")
	cmd.Flags().IntVar(&quality, "quality", 0, "0 = auto; x264 CRF, nvenc CQ, or VideoToolbox bitrate/100")
	return cmd
}
