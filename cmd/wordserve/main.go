// Copyright 2025 The WordServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the wordserve suggestion server.

Note: This is a BETA release. APIs and functionality may rapidly change.

wordserve answers prefix completion requests over MessagePack on
stdin/stdout. Text expanders such as typer spawn it and use it as their
word source, so the dictionary lives in one process no matter how many
fields are being expanded.

# Usage

Start the server with default settings:

	wordserve

Use a custom data directory and enable debug logging on stderr:

	wordserve -data /path/to/chunks -d

Build chunk files from a plain word list first, most frequent word first:

	wordserve -build words.txt -data data/

The data directory holds binary chunks named dict_0001.bin, dict_0002.bin
and so on. Chunks are loaded in the background until -words words are
available; clients can change the loaded set at runtime.

# Configuration

The [server], [dict] and [suggest] sections of the shared config.toml
apply. The file is created with defaults if it doesn't exist, and changes
to the server bounds are picked up while running.

	[server]
	max_limit = 64
	min_prefix = 1
	max_prefix = 60

	[dict]
	max_words = 50000
	chunk_size = 10000
	min_frequency_threshold = 20

# IPC Protocol

Send a completion request:

	{"id": "req1", "p": "hello", "l": 20}

Receive suggestions with frequency ranking:

	{"id": "req1", "s": [{"w": "hello", "r": 1}, {"w": "help", "r": 2}], "c": 2, "t": 145}

Dictionary management requests:

	{"id": "dict1", "action": "get_info"}
	{"id": "dict2", "action": "set_size", "chunk_count": 5}

See package server for the full protocol.

# Command Line Flags

	-data string
	    Directory containing binary chunk files (default "data/")
	-d  Enable debug mode with detailed logging
	-words int
	    Maximum words to load (0 for all)
	-chunk int
	    Words per chunk when building
	-build string
	    Word list to turn into chunks before serving
	-config string
	    Path to a config file
	-version
	    Show current version
*/
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/bastiangx/wordexpand/internal/utils"
	"github.com/bastiangx/wordexpand/pkg/config"
	"github.com/bastiangx/wordexpand/pkg/dictionary"
	"github.com/bastiangx/wordexpand/pkg/server"
	"github.com/bastiangx/wordexpand/pkg/suggest"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	Version = "0.9.0-beta"
	AppName = "wordserve"
	gh      = "https://github.com/bastiangx/wordexpand"
)

// main only manages the flow: flags, config, dictionary and the server
// loop. The packages do the work.
func main() {
	defaultConfig := config.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show current version")
	binaryDir := flag.String("data", "data/", "Directory containing the binary files")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	wordLimit := flag.Int("words", defaultConfig.Dict.MaxWords, "Maximum number of words to load (use 0 for all words)")
	chunkSize := flag.Int("chunk", defaultConfig.Dict.ChunkSize, "Number of words per chunk when building")
	buildFrom := flag.String("build", "", "Build chunks from a word list (one word per line, most frequent first)")
	configPath := flag.String("config", "", "Path to config file")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// stdout carries the protocol, so logs go to stderr only.
	log.SetOutput(os.Stderr)
	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	cfg, activePath := config.LoadConfigWithPriority(*configPath)
	cfg.Apply()
	if !flagSet("words") {
		*wordLimit = cfg.Dict.MaxWords
	}
	if !flagSet("chunk") {
		*chunkSize = cfg.Dict.ChunkSize
	}

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}
	dataDir := pathResolver.GetDataDir(*binaryDir)
	log.Debugf("Using data dir at: %s", dataDir)

	if *buildFrom != "" {
		buildChunks(*buildFrom, dataDir, *chunkSize)
	}

	completer := suggest.NewCompleter(cfg.CompleterOptions())
	loader := dictionary.NewChunkLoader(dataDir, *wordLimit, completer)
	defer loader.Stop()

	log.Debugf("Init completer: maxWords=[%d]", *wordLimit)
	if err := loader.StartLazyLoading(); err != nil {
		if !errors.Is(err, dictionary.ErrNoChunks) {
			log.Fatalf("Failed to init dictionary: %v", err)
		}
		log.Warnf("No chunks in %s, running with empty dict...", dataDir)
	}

	srv := server.New(completer, dictionary.NewRuntimeLoader(loader), cfg.ServerOptions())

	if activePath != "" {
		w, err := config.Watch(activePath, cfg)
		if err != nil {
			log.Warnf("Config changes will not be picked up: %v", err)
		} else {
			defer w.Close()
			w.OnChange(func(c *config.Config) {
				c.Apply()
				srv.SetOptions(c.ServerOptions())
			})
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	showStartupInfo(dataDir, activePath)

	// Serve blocks on stdin; a signal exits here instead.
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, os.Stdin, os.Stdout) }()
	select {
	case err := <-done:
		if err != nil {
			log.Errorf("Server stopped: %v", err)
			loader.Stop()
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Debug("Exiting...")
	}
	log.Debug("Served requests", "count", srv.Requests())
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// buildChunks writes the chunk files for a word list into dir.
func buildChunks(wordsFile, dir string, chunkSize int) {
	format, err := dictionary.DetectFileFormat(wordsFile)
	if err != nil {
		log.Fatalf("Cannot read word list: %v", err)
	}
	if format != dictionary.FormatText {
		log.Fatalf("%s is %s, expected a plain text word list", wordsFile, format)
	}
	words, err := dictionary.ReadWordList(wordsFile)
	if err != nil {
		log.Fatalf("Failed to read word list: %v", err)
	}
	if err := utils.EnsureDir(dir); err != nil {
		log.Fatalf("Failed to create data dir: %v", err)
	}
	n, err := dictionary.WriteChunks(dir, words, chunkSize)
	if err != nil {
		log.Fatalf("Failed to write chunks: %v", err)
	}
	log.Infof("Wrote %d chunks for %s words to %s", n, utils.FormatWithCommas(len(words)), dir)
}

func printVersion() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	logger.SetStyles(styles)

	logger.Print("")
	logger.Print("[ WordServe ] Serves really Fast word completions!")
	logger.Print("", "version", Version)
	logger.Print("")
	logger.Print("use -h or --help to see available options")
	logger.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(dataDir, configPath string) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)
	defer log.SetLevel(currentLevel)

	if configPath == "" {
		configPath = "builtin defaults"
	}
	log.Infof("%s %s", AppName, Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("data dir: ( %s )", dataDir)
	log.Infof("config: ( %s )", configPath)
	log.Info("status: ready")
}
