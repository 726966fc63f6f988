// relay - a terminal client for OpenAI-compatible chat APIs.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/jeranaias/relay-tui/internal/chat"
	"github.com/jeranaias/relay-tui/internal/commands"
	"github.com/jeranaias/relay-tui/internal/config"
	"github.com/jeranaias/relay-tui/internal/diag"
	"github.com/jeranaias/relay-tui/internal/discovery"
	"github.com/jeranaias/relay-tui/internal/history"
	"github.com/jeranaias/relay-tui/internal/provider"
	chatui "github.com/jeranaias/relay-tui/internal/ui/chat"
	"github.com/jeranaias/relay-tui/internal/ui/styles"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		flagModel    = flag.String("model", "", "scoped model to use (provider/model-id)")
		flagAsk      = flag.String("ask", "", "one-shot prompt: print the response and exit")
		flagDiscover = flag.Bool("discover", false, "run model discovery and exit")
		flagRefresh  = flag.Bool("refresh", false, "bypass the listing cache during discovery")
		flagProvider = flag.String("provider", "", "limit discovery to one provider")
		flagVersion  = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *flagVersion {
		fmt.Printf("relay %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	app, err := bootstrap(*flagModel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "relay: %v\n", err)
		os.Exit(1)
	}
	defer app.close()

	switch {
	case *flagDiscover:
		if err := app.runDiscovery(*flagProvider, *flagRefresh); err != nil {
			fmt.Fprintf(os.Stderr, "relay: %v\n", err)
			os.Exit(1)
		}
	case *flagAsk != "":
		if err := app.runAsk(*flagAsk); err != nil {
			fmt.Fprintf(os.Stderr, "relay: %v\n", err)
			os.Exit(1)
		}
	default:
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "relay: stdout is not a terminal; use -ask for non-interactive use")
			os.Exit(1)
		}
		if err := app.runTUI(); err != nil {
			fmt.Fprintf(os.Stderr, "relay: %v\n", err)
			os.Exit(1)
		}
	}
}

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// app holds the wired application services shared by every run mode.
type app struct {
	cfg      *config.Config
	dataDir  string
	registry *provider.Registry
	history  *history.Store
	cmdCtx   *commands.Context
}

// bootstrap loads configuration and wires the service stack.
func bootstrap(modelOverride string) (*app, error) {
	dataDir, err := config.DataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("could not create data directory: %w", err)
	}

	if err := diag.Init(dataDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: diagnostics log unavailable: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	// Provider stack: store file first, config overrides, env keys on top.
	stored, err := provider.LoadStore(dataDir)
	if err != nil {
		diag.Logf("main: provider store unreadable, starting from defaults: %v", err)
	}
	registry := provider.FromConfigs(config.BuildProviderConfigs(cfg, stored))
	if ttl := time.Duration(cfg.Discovery.CacheSeconds) * time.Second; ttl > 0 {
		for _, rec := range registry.All() {
			rec.Cache.TTL = ttl
		}
	}

	discoveryClient := discovery.NewClient().
		WithPingRate(cfg.Discovery.PingRate)

	chatClient := chat.NewClient().
		WithTimeout(time.Duration(cfg.Chat.RequestTimeoutSecs) * time.Second).
		WithSampling(cfg.Chat.Temperature, cfg.Chat.MaxTokens)

	store, err := history.Open(dataDir)
	if err != nil {
		// Sessions will not persist, but chat still works.
		diag.Logf("main: history unavailable: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: conversation history unavailable: %v\n", err)
		store = nil
	}

	currentModel := cfg.DefaultModel
	if modelOverride != "" {
		currentModel = modelOverride
	}
	if currentModel == "" {
		// Fall back to the first validated model, if any.
		if merged := registry.MergedModels(); len(merged) > 0 {
			currentModel = merged[0].Provider + "/" + merged[0].Long
		}
	}

	return &app{
		cfg:      cfg,
		dataDir:  dataDir,
		registry: registry,
		history:  store,
		cmdCtx: &commands.Context{
			Config:       cfg,
			Providers:    registry,
			Discovery:    discoveryClient,
			Chat:         chatClient,
			History:      store,
			DataDir:      dataDir,
			CurrentModel: currentModel,
		},
	}, nil
}

func (a *app) close() {
	if a.history != nil {
		a.history.Close()
	}
}

// =============================================================================
// RUN MODES
// =============================================================================

// runTUI starts the interactive chat interface.
func (a *app) runTUI() error {
	theme := styles.NewTheme()
	theme.ApplyMode(strings.ToLower(a.cfg.UI.Theme))

	m := chatui.New(theme, a.cmdCtx)

	p := tea.NewProgram(m, tea.WithAltScreen())

	// Reload providers when the store file changes outside relay.
	watcher, err := provider.NewStoreWatcher(a.dataDir, func(configs []provider.PersistedProviderConfig) {
		p.Send(chatui.ProvidersReloadedMsg{Configs: configs})
	})
	if err != nil {
		diag.Logf("main: store watcher unavailable: %v", err)
	} else {
		if err := watcher.Watch(); err != nil {
			diag.Logf("main: store watcher failed to start: %v", err)
		}
		defer watcher.Close()
	}

	_, err = p.Run()
	return err
}

// runAsk sends a single prompt and streams the response to stdout.
func (a *app) runAsk(prompt string) error {
	rec, modelID, err := a.registry.Resolve(a.cmdCtx.CurrentModel)
	if err != nil {
		return fmt.Errorf("cannot resolve model %q: %w (run relay -discover first)", a.cmdCtx.CurrentModel, err)
	}

	timeout := time.Duration(a.cfg.Chat.RequestTimeoutSecs) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	messages := []chat.Message{{Role: "user", Content: prompt}}
	chunks, errs := a.cmdCtx.Chat.ChatStreamChan(ctx, rec, modelID, messages)

	for chunk := range chunks {
		fmt.Print(chunk.GetContent())
	}
	fmt.Println()

	return <-errs
}

// runDiscovery refreshes and validates models, printing a summary.
func (a *app) runDiscovery(providerKey string, refresh bool) error {
	if a.registry.Len() == 0 {
		return fmt.Errorf("no providers configured; add one to %s", provider.StorePath(a.dataDir))
	}

	fmt.Println("Discovering models...")
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	clean, err := a.registry.DiscoverAndValidate(ctx, a.cmdCtx.Discovery, provider.DiscoverOptions{
		ForceRefresh:     refresh,
		PersistOnSuccess: true,
		Provider:         providerKey,
		DataDir:          a.dataDir,
	})
	if err != nil {
		return err
	}

	for _, line := range a.registry.ScopedDisplayStrings() {
		fmt.Println("  " + line)
	}

	merged := a.registry.MergedModels()
	if clean {
		fmt.Printf("Discovery completed in %s: %d validated models.\n",
			time.Since(start).Round(time.Millisecond), len(merged))
	} else {
		fmt.Printf("Discovery completed with errors in %s: %d validated models (see %s/relay.log).\n",
			time.Since(start).Round(time.Millisecond), len(merged), a.dataDir)
	}
	return nil
}
