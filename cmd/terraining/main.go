package main

import (
	"flag"
	"log"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/xlab/closer"

	"terraining/internal/config"
	"terraining/internal/editor"
	"terraining/internal/journal"
	"terraining/internal/viewer"
	"terraining/internal/workers"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "terraining.yaml", "path to the YAML config")
	docPath := flag.String("doc", "", "terrain document, overrides the config")
	flag.Parse()
	defer closer.Close()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *docPath != "" {
		cfg.DocumentPath = *docPath
	}

	if err := glfw.Init(); err != nil {
		log.Fatalf("glfw: %v", err)
	}
	defer glfw.Terminate()

	// Window setup
	window, err := viewer.SetupWindow(cfg.Window)
	if err != nil {
		log.Fatalf("window: %v", err)
	}

	var pool *workers.Pool
	if cfg.Terrain.Async {
		pool = workers.NewPool(cfg.Workers)
		closer.Bind(pool.Shutdown)
	}

	m, loaded, err := editor.OpenTerrain(cfg.DocumentPath, cfg.TerrainSettings(), cfg.NoiseSettings())
	if err != nil {
		log.Fatalf("terrain: %v", err)
	}
	if loaded {
		log.Printf("loaded terrain from %s", cfg.DocumentPath)
	}

	var j *journal.Journal
	if cfg.JournalPath != "" {
		if j, err = journal.Open(cfg.JournalPath); err != nil {
			log.Printf("journal disabled: %v", err)
			j = nil
		} else {
			closer.Bind(func() {
				if err := j.Close(); err != nil {
					log.Printf("journal close: %v", err)
				}
			})
		}
	}

	app, err := viewer.NewApp(window, cfg, editor.New(m, cfg.DocumentPath, j), pool)
	if err != nil {
		log.Fatalf("viewer: %v", err)
	}
	defer app.Close()

	app.Run()
}
