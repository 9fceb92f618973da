package main

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ivlev/keyringframes/internal/source"
	"github.com/ivlev/keyringframes/internal/system"
)

const photosDir = "input/photos"

func (a *app) generateCmd() *cobra.Command {
	var (
		photoPath string
		page      int
		outDir    string
		workers   int
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate and store the frames for one photo",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir != "" {
				a.cfg.StoreBackend = "dir"
				a.cfg.StoreDir = outDir
			}
			if workers > 0 {
				a.cfg.Workers = workers
			}

			if photoPath == "" {
				if err := os.MkdirAll(photosDir, 0755); err != nil {
					return fmt.Errorf("create %s: %w", photosDir, err)
				}
				latest, err := system.FindLatestImage(photosDir)
				if err != nil {
					return fmt.Errorf("%w (put a photo in %s/ or pass --photo)", err, photosDir)
				}
				photoPath = latest
				a.log.Info("picked photo", "path", photoPath)
			}

			src, err := source.Open(photoPath)
			if err != nil {
				return fmt.Errorf("open photo: %w", err)
			}
			defer src.Close()

			photo, err := src.RenderPage(page, a.cfg.DPI)
			if err != nil {
				return fmt.Errorf("load photo: %w", err)
			}

			var bar *progressbar.ProgressBar
			comp, err := a.compositor(a.overlays(), func(done, total int) {
				_ = bar.Add(1)
			})
			if err != nil {
				return err
			}
			bar = progressbar.NewOptions(comp.FrameCount(),
				progressbar.OptionSetDescription("compositing"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
			)

			start := time.Now()
			seq, err := comp.Generate(cmd.Context(), photo)
			_ = bar.Finish()
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return err
			}

			store, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			m, err := store.SaveAll(cmd.Context(), seq)
			if err != nil {
				return fmt.Errorf("store frames: %w", err)
			}

			a.log.Info("frames stored",
				"generation", m.Generation,
				"count", m.Count,
				"backend", a.cfg.StoreBackend,
				"duration", time.Since(start).Round(time.Millisecond),
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&photoPath, "photo", "p", "", "photo file, image directory or PDF (default: newest file in input/photos)")
	cmd.Flags().IntVar(&page, "page", 0, "page (PDF) or image index (directory) to use")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "write frames to this directory instead of the configured store")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "parallel frames (default: config or CPU count)")

	return cmd
}
