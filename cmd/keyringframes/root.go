package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ivlev/keyringframes/internal/assets"
	"github.com/ivlev/keyringframes/internal/compositor"
	"github.com/ivlev/keyringframes/internal/config"
	"github.com/ivlev/keyringframes/internal/logger"
	"github.com/ivlev/keyringframes/internal/motion"
	"github.com/ivlev/keyringframes/internal/storage"
)

// app carries what every command needs once flags are parsed.
type app struct {
	cfgPath string
	envFile string
	verbose bool

	cfg *config.Config
	log *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "keyringframes",
		Short:        "Composite a photo into the keyring animation frames",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "keyring.yaml", "config file (YAML)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file with KEYRING_* overrides")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(a.generateCmd())
	root.AddCommand(a.serveCmd())
	root.AddCommand(a.clearCmd())
	root.AddCommand(a.previewCmd())
	root.AddCommand(a.tableCmd())

	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(a.envFile)
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.log = logger.New(os.Stderr, cfg.LogLevel)
	return nil
}

func (a *app) table() (*motion.Table, error) {
	if a.cfg.TablePath == "" {
		return motion.Keyring, nil
	}
	t, err := motion.ReadTable(a.cfg.TablePath)
	if err != nil {
		return nil, err
	}
	a.log.Debug("using transform table", "path", a.cfg.TablePath, "name", t.Name, "frames", t.Len())
	return t, nil
}

// overlays returns a cached overlay store over the configured asset directory.
func (a *app) overlays() *assets.Cache {
	return assets.NewCache(assets.NewDirStore(a.cfg.AssetsDir, a.cfg.AssetPattern))
}

func (a *app) compositor(overlays assets.Store, progress func(done, total int)) (*compositor.Compositor, error) {
	table, err := a.table()
	if err != nil {
		return nil, err
	}
	level, err := compositor.ParseCompression(a.cfg.CompressionLevel)
	if err != nil {
		return nil, err
	}

	return compositor.New(compositor.Options{
		FrameSize:        a.cfg.FrameSize,
		PhotoWidth:       a.cfg.PhotoWidth,
		PhotoHeight:      a.cfg.PhotoHeight,
		Table:            table,
		Overlays:         overlays,
		Workers:          a.cfg.Workers,
		CompressionLevel: level,
		Progress:         progress,
	})
}

func (a *app) store(ctx context.Context) (storage.Store, error) {
	notify := storage.NotifierFunc(func(_ context.Context, m storage.Manifest) {
		a.log.Debug("frames refreshed", "generation", m.Generation, "count", m.Count)
	})
	return storage.Open(ctx, a.cfg, notify)
}
