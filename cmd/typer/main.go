// Copyright 2025 The WordServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command typer is an interactive text expander. Type @ and part of a word
// for completions or : and part of a shortcode for emoji.
//
// By default it runs a full screen TUI. -c switches to line mode, and
// -remote sources words from a spawned wordserve process instead of a
// local dictionary:
//
//	typer -remote "wordserve -data ./data"
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/bastiangx/wordexpand/internal/cli"
	"github.com/bastiangx/wordexpand/internal/logger"
	"github.com/bastiangx/wordexpand/internal/tui"
	"github.com/bastiangx/wordexpand/internal/utils"
	"github.com/bastiangx/wordexpand/pkg/config"
	"github.com/bastiangx/wordexpand/pkg/dictionary"
	"github.com/bastiangx/wordexpand/pkg/emoji"
	"github.com/bastiangx/wordexpand/pkg/server"
	"github.com/bastiangx/wordexpand/pkg/suggest"
	"github.com/charmbracelet/log"
)

func main() {
	binaryDir := flag.String("data", "data/", "Directory containing the binary files")
	wordList := flag.String("list", "", "Plain text word list to load (word [freq] per line)")
	wordLimit := flag.Int("words", 0, "Maximum number of words to load (default from config, 0 for all)")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run in line mode instead of the TUI")
	remote := flag.String("remote", "", "Command that starts a wordserve process to source words from")
	configPath := flag.String("config", "", "Path to config file")
	logPath := flag.String("log", "", "Log file for the TUI (default typer.log next to the config)")

	flag.Parse()

	if *debugMode {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	cfg, activePath := config.LoadConfigWithPriority(*configPath)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	cfg.Apply()

	// The TUI owns the terminal, so it logs to a file. The spawned
	// server's stderr goes there too.
	var logOut io.Writer = os.Stderr
	if !*cliMode {
		path := *logPath
		if path == "" {
			dir := os.TempDir()
			if activePath != "" {
				dir = filepath.Dir(activePath)
			}
			path = filepath.Join(dir, "typer.log")
		}
		_, f, err := logger.NewFile(path, "typer")
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logOut = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	words, cleanup, err := wordSource(ctx, cfg, *remote, *binaryDir, *wordList, *wordLimit, logOut)
	if err != nil {
		log.Fatalf("No word source: %v", err)
	}
	defer cleanup()

	emojis := emoji.NewIndex()
	for _, name := range cfg.Emoji.Extra {
		if !emojis.Add(name) {
			log.Warnf("Unknown emoji shortcode %q in config", name)
		}
	}

	if *cliMode {
		h, err := cli.NewInputHandler(cfg, words, emojis, os.Stdout)
		if err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		defer h.Close()
		if err := h.Start(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("CLI error: %v", err)
		}
		return
	}

	m, err := tui.New(tui.Options{Config: cfg, Words: words, Emoji: emojis, Logger: log.Default().WithPrefix("tui")})
	if err != nil {
		log.Fatalf("TUI error: %v", err)
	}
	defer m.Close()

	if activePath != "" {
		w, err := config.Watch(activePath, cfg)
		if err != nil {
			log.Warnf("Config changes will not be picked up: %v", err)
		} else {
			defer w.Close()
			w.OnChange(func(c *config.Config) {
				m.Post(func() { m.Reload(c) })
			})
		}
	}

	if err := tui.Run(m); err != nil {
		fmt.Fprintf(os.Stderr, "typer: %v\n", err)
		os.Exit(1)
	}
}

// wordSource returns the local dictionary, or a client of a spawned
// server when remote is set. cleanup releases either.
func wordSource(ctx context.Context, cfg *config.Config, remote, dataDir, list string, limit int, stderr io.Writer) (suggest.Source, func(), error) {
	if remote != "" {
		return spawnServer(ctx, remote, stderr)
	}

	completer := suggest.NewCompleter(cfg.CompleterOptions())
	if list != "" {
		f, err := os.Open(list)
		if err != nil {
			return nil, nil, err
		}
		n, err := dictionary.LoadText(f, completer)
		f.Close()
		if err != nil {
			return nil, nil, err
		}
		log.Debugf("Loaded %d words from %s", n, list)
	}

	pr, err := utils.NewPathResolver()
	if err != nil {
		return nil, nil, err
	}
	if limit == 0 {
		limit = cfg.Dict.MaxWords
	}
	loader := dictionary.NewChunkLoader(pr.GetDataDir(dataDir), limit, completer)
	if err := loader.StartLazyLoading(); err != nil {
		if !errors.Is(err, dictionary.ErrNoChunks) || list == "" {
			loader.Stop()
			return nil, nil, err
		}
	}
	return completer, loader.Stop, nil
}

// spawnServer starts command and talks msgpack to it over its pipes.
func spawnServer(ctx context.Context, command string, stderr io.Writer) (suggest.Source, func(), error) {
	args := strings.Fields(command)
	if len(args) == 0 {
		return nil, nil, errors.New("empty -remote command")
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stderr = stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("starting %s: %w", args[0], err)
	}
	log.Debug("Spawned server", "cmd", command, "pid", cmd.Process.Pid)

	client := server.NewClient(stdout, stdin)
	cleanup := func() {
		client.Close()
		if err := cmd.Wait(); err != nil {
			log.Debugf("Server exited: %v", err)
		}
	}
	return client, cleanup, nil
}
