package system

import (
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ImageExtensions are the photo formats the source package can decode.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".bmp", ".tif", ".tiff", ".pdf"}

// CanvasBytes returns the size of an 8-bit RGBA size×size canvas,
// or an error if it cannot be represented.
func CanvasBytes(size int) (uint64, error) {
	if size <= 0 {
		return 0, fmt.Errorf("canvas size %d must be positive", size)
	}
	s := uint64(size)
	if s > math.MaxInt32/4 || s*s > math.MaxInt/4 {
		return 0, fmt.Errorf("canvas %dx%d is too large", size, size)
	}
	return s * s * 4, nil
}

// CheckMemory reports an error when the host has less than need bytes available.
// Hosts where memory stats are unavailable pass the check.
func CheckMemory(need uint64) error {
	vm, err := mem.VirtualMemory()
	if err != nil || vm.Available == 0 {
		return nil
	}
	if vm.Available < need {
		return fmt.Errorf("need %d bytes, only %d available", need, vm.Available)
	}
	return nil
}

// Workers returns n when positive, otherwise the number of logical CPUs.
func Workers(n int) int {
	if n > 0 {
		return n
	}
	if c, err := cpu.Counts(true); err == nil && c > 0 {
		return c
	}
	return runtime.NumCPU()
}

// FindLatestImage returns the newest photo in path (or in path's directory if it is a file).
func FindLatestImage(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	searchDir := path
	if !fi.IsDir() {
		searchDir = filepath.Dir(path)
	}

	files, err := os.ReadDir(searchDir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !IsImage(f.Name()) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(searchDir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no photos found in %s", searchDir)
	}

	return latestFile, nil
}

func IsImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// GetBestH264Encoder picks a hardware encoder if ffmpeg has one, otherwise libx264.
func GetBestH264Encoder() string {
	out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(string(out), name) {
			return name
		}
	}
	return "libx264"
}
