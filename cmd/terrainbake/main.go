// Command terrainbake works on terrain documents without a window: it
// generates them, applies scripted strokes, converts between formats,
// exports noise previews and manages the edit journal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/xlab/closer"

	"terraining/internal/config"
	"terraining/internal/document"
	"terraining/internal/editor"
	"terraining/internal/journal"
	"terraining/internal/noise"
	"terraining/internal/terrain"
)

const usage = `usage: terrainbake [-config file] <command> [flags]

commands:
  generate   write a fresh terrain document
  stroke     apply a YAML stroke script to a document
  convert    rewrite a document in the format its extension names
  preview    export the combined noise heightmap as a BMP
  journal    list, record or restore journal revisions
`

func main() {
	log.SetFlags(0)
	configPath := flag.String("config", "terraining.yaml", "path to the YAML config")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	defer closer.Close()

	if flag.NArg() == 0 {
		flag.Usage()
		closer.Exit(2)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("config: %v", err)
		closer.Exit(1)
	}

	args := flag.Args()[1:]
	switch flag.Arg(0) {
	case "generate":
		err = runGenerate(cfg, args)
	case "stroke":
		err = runStroke(cfg, args)
	case "convert":
		err = runConvert(args)
	case "preview":
		err = runPreview(cfg, args)
	case "journal":
		err = runJournal(cfg, args)
	default:
		flag.Usage()
		closer.Exit(2)
	}
	if err != nil {
		log.Printf("%s: %v", flag.Arg(0), err)
		closer.Exit(1)
	}
}

func runGenerate(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	out := fs.String("out", cfg.DocumentPath, "output document")
	seed := fs.Int64("seed", cfg.Terrain.Seed, "noise seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ns := cfg.NoiseSettings()
	ns.Seed = *seed
	m, err := terrain.New(cfg.TerrainSettings(), ns)
	if err != nil {
		return err
	}
	if err := m.SaveFile(*out); err != nil {
		return err
	}
	log.Printf("wrote %s (seed %d)", *out, ns.Seed)
	return nil
}

func runStroke(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("stroke", flag.ContinueOnError)
	doc := fs.String("doc", cfg.DocumentPath, "document to edit, created if missing")
	script := fs.String("strokes", "strokes.yaml", "YAML stroke script")
	record := fs.Bool("record", false, "record the result in the journal")
	if err := fs.Parse(args); err != nil {
		return err
	}

	specs, err := editor.LoadStrokes(*script)
	if err != nil {
		return err
	}
	m, _, err := editor.OpenTerrain(*doc, cfg.TerrainSettings(), cfg.NoiseSettings())
	if err != nil {
		return err
	}
	defer m.Close()
	m.GenerateDefaultTerrain()

	var j *journal.Journal
	if *record {
		if j, err = openJournal(cfg); err != nil {
			return err
		}
	}
	ed := editor.New(m, *doc, j)
	changed, err := ed.ApplyStrokes(specs)
	if err != nil {
		return err
	}
	if changed == 0 {
		log.Printf("warning: no stroke touched a loaded tile")
	}
	rev, err := ed.Save(context.Background(), *script)
	if err != nil {
		return err
	}
	log.Printf("applied %d strokes (%d tile changes) to %s", len(specs), changed, *doc)
	if j != nil {
		log.Printf("recorded revision %s", rev.ID)
	}
	return nil
}

func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("want <in> <out>")
	}
	in, out := fs.Arg(0), fs.Arg(1)

	tree, err := document.ReadTree(in)
	if err != nil {
		return err
	}
	if err := terrain.ValidateTree(tree); err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	d, err := document.FromTree(tree)
	if err != nil {
		return err
	}
	if err := document.WriteFile(out, d); err != nil {
		return err
	}
	log.Printf("converted %s -> %s", in, out)
	return nil
}

func runPreview(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	doc := fs.String("doc", "", "take noise settings from this document instead of the config")
	out := fs.String("out", "preview.bmp", "output BMP")
	size := fs.Int("size", 512, "image width and height in samples")
	spacing := fs.Float64("spacing", 1, "world distance between samples")
	x := fs.Float64("x", 0, "world x of the top-left sample")
	z := fs.Float64("z", 0, "world z of the top-left sample")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *size <= 0 || *spacing <= 0 {
		return errors.New("size and spacing must be positive")
	}

	ns := cfg.NoiseSettings()
	if *doc != "" {
		m, err := terrain.LoadFile(*doc)
		if err != nil {
			return err
		}
		ns = m.NoiseSettings()
	}
	img := noise.Heightmap(ns, mgl32.Vec3{float32(*x), 0, float32(*z)}, *size, *size, float32(*spacing))
	if err := noise.WritePreview(*out, img); err != nil {
		return err
	}
	log.Printf("wrote %s (%dx%d)", *out, *size, *size)
	return nil
}

func runJournal(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("journal", flag.ContinueOnError)
	doc := fs.String("doc", cfg.DocumentPath, "terrain document")
	note := fs.String("note", "terrainbake", "note for recorded revisions")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("want list, record or restore")
	}

	j, err := openJournal(cfg)
	if err != nil {
		return err
	}
	ctx := context.Background()

	switch fs.Arg(0) {
	case "list":
		revs, err := j.Revisions(ctx)
		if err != nil {
			return err
		}
		for _, rev := range revs {
			fmt.Printf("%4d  %s  %s  %3d tiles  %s\n", rev.Seq, rev.ID, rev.Created.Format("2006-01-02 15:04:05"), rev.Tiles, rev.Note)
		}
		return nil
	case "record":
		m, err := terrain.LoadFile(*doc)
		if err != nil {
			return err
		}
		rev, err := j.Record(ctx, *note, m.EditSnapshot())
		if err != nil {
			return err
		}
		log.Printf("recorded revision %s", rev.ID)
		return nil
	case "restore":
		m, _, err := editor.OpenTerrain(*doc, cfg.TerrainSettings(), cfg.NoiseSettings())
		if err != nil {
			return err
		}
		rev, err := j.Restore(ctx, m)
		if err != nil {
			return err
		}
		if err := m.SaveFile(*doc); err != nil {
			return err
		}
		log.Printf("restored revision %s into %s", rev.ID, *doc)
		return nil
	default:
		return fmt.Errorf("unknown journal command %q", fs.Arg(0))
	}
}

func openJournal(cfg config.Config) (*journal.Journal, error) {
	if cfg.JournalPath == "" {
		return nil, errors.New("no journal_path configured")
	}
	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return nil, err
	}
	closer.Bind(func() {
		if err := j.Close(); err != nil {
			log.Printf("journal close: %v", err)
		}
	})
	return j, nil
}
