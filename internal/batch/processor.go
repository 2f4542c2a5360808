// Package batch renders model directories to preview images with a
// worker pool.
package batch

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"nds-bmd-codec/internal/bmd"
	"nds-bmd-codec/internal/logger"
	"nds-bmd-codec/internal/postprocess"
	"nds-bmd-codec/internal/profile"
	"nds-bmd-codec/internal/raster"
	"nds-bmd-codec/internal/scene"

	"github.com/HugoSmits86/nativewebp"
)

// Config holds all shared resources for a batch run.
type Config struct {
	ModelsDir   string
	OutputDir   string
	Profile     *profile.Profile
	RenderSize  int
	Supersample int
	Workers     int
	Yaw         float64
	Pitch       float64
	FOV         float64
	FillRatio   float64
}

// Result holds the outcome of processing one model file.
type Result struct {
	Model     string
	File      string
	Image     string
	Bones     int
	Materials int
	Textures  int
	Faces     int
	Success   bool
	Error     string
}

// Discover lists model files in a directory, sorted by name.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("batch: scan %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".bmd") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Run processes all model files using a worker pool.
func Run(cfg Config, files []string) []Result {
	total := len(files)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					rate := float64(p) / time.Since(start).Seconds()
					logger.Sugar.Infof("[%d/%d] %.1f models/sec", p, total, rate)
				}
			}
		}
	}()

	fileChan := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range fileChan {
				results[idx] = processModel(cfg, files[idx])
				processed.Add(1)
			}
		}()
	}

	for i := range files {
		fileChan <- i
	}
	close(fileChan)

	wg.Wait()
	close(done)

	return results
}

func processModel(cfg Config, file string) Result {
	stem := strings.TrimSuffix(file, filepath.Ext(file))
	res := Result{Model: stem, File: file}
	fail := func(err error) Result {
		res.Error = err.Error()
		return res
	}

	m, err := bmd.ParseFile(filepath.Join(cfg.ModelsDir, file))
	if err != nil {
		return fail(err)
	}
	res.Bones = len(m.Bones)
	res.Materials = len(m.Materials)
	res.Textures = len(m.Textures)
	for _, g := range m.Geometries {
		res.Faces += len(g.Faces)
	}

	var s scene.Scene
	if err := scene.Build(m, &s); err != nil {
		return fail(err)
	}
	if len(s.Objects) == 0 {
		return fail(fmt.Errorf("batch: %s has no renderable faces", file))
	}

	texImgs := make([]*image.NRGBA, len(m.Textures))
	for i, t := range m.Textures {
		texImgs[i] = t.ToNRGBA()
	}

	opts := raster.Options{
		Size:        cfg.RenderSize,
		Supersample: cfg.Supersample,
		Yaw:         cfg.Yaw,
		Pitch:       cfg.Pitch,
		FOV:         cfg.FOV,
	}
	fill := cfg.FillRatio
	entry := cfg.Profile.Lookup(stem)
	if entry.Yaw != nil {
		opts.Yaw = *entry.Yaw
	}
	if entry.Pitch != nil {
		opts.Pitch = *entry.Pitch
	}
	if entry.FOV != nil {
		opts.FOV = *entry.FOV
	}
	if entry.FillRatio != nil {
		fill = *entry.FillRatio
	}

	img := raster.Render(s.Objects, m.Materials, texImgs, opts)
	if fill > 0 {
		img = postprocess.CropAndCenter(img, cfg.RenderSize*max(cfg.Supersample, 1), fill)
	}
	if cfg.Supersample > 1 {
		img = postprocess.Downsample(img, cfg.RenderSize)
	}

	outName := stem + ".webp"
	outPath := filepath.Join(cfg.OutputDir, outName)
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fail(err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fail(err)
	}
	defer f.Close()
	if err := nativewebp.Encode(f, img, nil); err != nil {
		return fail(fmt.Errorf("batch: encode %s: %w", outName, err))
	}

	res.Image = outName
	res.Success = true
	return res
}
