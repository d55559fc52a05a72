package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/binzume/pmdconv/converter"
	"github.com/binzume/pmdconv/internal/config"
	"github.com/binzume/pmdconv/internal/logger"
	"github.com/binzume/pmdconv/pmd"
	"github.com/binzume/pmdconv/pmd/exporter"
	"github.com/binzume/pmdconv/pmd/loader"
	"github.com/binzume/pmdconv/pmd/yamlio"
)

type options struct {
	configPath string
	initConfig string
	dump       bool
	input      string
	output     string
	cfg        *config.Config
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("pmdconv", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: pmdconv [flags] input.pmd|input.yaml [output.pmd|output.glb|output.yaml]\n")
		fs.PrintDefaults()
	}
	opt := &options{}
	fs.StringVar(&opt.configPath, "config", "", "config file (default: ./"+config.FileName+")")
	fs.StringVar(&opt.initConfig, "initconfig", "", "write the effective config to this path")
	fs.BoolVar(&opt.dump, "dump", false, "print a YAML summary of the input")
	level := fs.String("loglevel", "", "debug|info|warn|error")
	logFile := fs.String("logfile", "", "log file")
	ext := fs.String("ext", "", "base|english|toon|physics (.pmd output)")
	trim := fs.Bool("trim", false, "trim unreferenced elements before saving")
	scale := fs.Float64("scale", 0, "glTF scale")
	morphs := fs.Bool("morphs", true, "export morph targets (.glb)")
	skin := fs.Bool("skin", true, "export bones and skin (.glb)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, _, err := config.Load(opt.configPath)
	if err != nil {
		return nil, err
	}
	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "loglevel":
			cfg.Logging.Level = *level
		case "logfile":
			cfg.Logging.File = *logFile
		case "ext":
			cfg.Export.Extension, flagErr = pmd.ParseExtension(*ext)
		case "trim":
			cfg.Export.Trim = *trim
		case "scale":
			cfg.GLTF.Scale = float32(*scale)
		case "morphs":
			cfg.GLTF.Morphs = *morphs
		case "skin":
			cfg.GLTF.Skin = *skin
		}
	})
	if flagErr != nil {
		return nil, flagErr
	}
	opt.cfg = cfg

	if fs.NArg() == 0 && opt.initConfig == "" {
		fs.Usage()
		return nil, flag.ErrHelp
	}
	opt.input = fs.Arg(0)
	opt.output = fs.Arg(1)
	return opt, nil
}

func run(opt *options, stdout io.Writer) error {
	if opt.initConfig != "" {
		if err := opt.cfg.SaveTo(opt.initConfig); err != nil {
			return err
		}
		logger.Info("config written", zap.String("path", opt.initConfig))
		if opt.input == "" {
			return nil
		}
	}

	m, err := load(opt.input)
	if err != nil {
		return err
	}

	if opt.dump {
		data, err := yaml.Marshal(m.Summarize())
		if err != nil {
			return err
		}
		if _, err := stdout.Write(data); err != nil {
			return err
		}
	}
	if opt.output == "" {
		return nil
	}

	if opt.cfg.Export.Trim {
		m.Trim()
	}
	switch strings.ToLower(filepath.Ext(opt.output)) {
	case ".pmd":
		err = exporter.Save(m, opt.output, &exporter.Options{Extension: opt.cfg.Export.Extension})
	case ".glb":
		err = converter.SavePMDAsGLB(m, opt.output, opt.cfg.GLTFOption())
	case ".yaml", ".yml":
		err = yamlio.Save(m, opt.output)
	default:
		return fmt.Errorf("unsupported output type: %v", filepath.Ext(opt.output))
	}
	if err != nil {
		return err
	}
	logger.Info("saved", zap.String("path", opt.output))
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func load(path string) (*pmd.Model, error) {
	if isYAML(path) {
		m, err := yamlio.Load(path)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded", zap.String("name", m.Name.Primary), zap.String("format", "yaml"),
			zap.Int("vertices", len(m.Vertices)), zap.Int("bones", len(m.Bones)), zap.Int("morphs", len(m.Morphs)))
		return m, nil
	}
	l := loader.New(loader.WithLogger(logger.Log))
	m, err := l.LoadFile(path)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded", zap.String("name", m.Name.Primary), zap.Stringer("extension", l.Extension()),
		zap.Int("vertices", len(m.Vertices)), zap.Int("bones", len(m.Bones)), zap.Int("morphs", len(m.Morphs)))
	return m, nil
}

func main() {
	opt, err := parseArgs(os.Args[1:], os.Stderr)
	if err == flag.ErrHelp {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := logger.Init(opt.cfg.Logging.Level, opt.cfg.Logging.File); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logger.Sync()

	if err := run(opt, os.Stdout); err != nil {
		logger.Sync()
		logger.Fatal("pmdconv failed", zap.Error(err))
	}
}
