package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/comigor/mindfulmate/internal/agent"
	"github.com/comigor/mindfulmate/internal/config"
	"github.com/comigor/mindfulmate/internal/history"
	"github.com/comigor/mindfulmate/internal/llm"
	"github.com/comigor/mindfulmate/internal/logger"
	"github.com/comigor/mindfulmate/internal/router"
	"github.com/comigor/mindfulmate/internal/server"
	"github.com/comigor/mindfulmate/pkg/tools"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logFile, err := logger.Setup(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		slog.Error("failed to open log file", "file", cfg.Log.File, "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	if err := cfg.Validate(); err != nil {
		logger.L.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	store := openStore(cfg.History)
	defer store.Close()

	// Initialize LLM client
	llmClient := llm.NewClient(cfg.LLM)
	chat := llm.NewCompleter(llmClient, cfg.LLM)

	// Research tools
	toolManager := tools.NewToolManager()
	for _, t := range []tools.Tool{
		tools.NewSearchTool(cfg.Research.SearchURL),
		tools.NewWikipediaTool(cfg.Research.WikipediaURL),
		tools.NewSaveTool(cfg.Research.OutputFile),
		&tools.SleepTool{},
	} {
		if err := toolManager.RegisterTool(t); err != nil {
			logger.L.Error("failed to register tool", "tool", t.Name(), "error", err)
		}
	}

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 30*time.Second)
	mcpSet := tools.ConnectMCP(connectCtx, cfg.MCPServers)
	cancelConnect()
	defer mcpSet.Close()
	for _, t := range mcpSet.Tools {
		if err := toolManager.RegisterTool(t); err != nil {
			logger.L.Warn("skipping MCP tool", "tool", t.Name(), "error", err)
		}
	}

	researcher := agent.New(llmClient, *cfg, toolManager, mcpSet.Prompts...)
	r := router.New(store, chat, researcher, cfg.LLM.SystemPrompt)

	e := server.New(cfg.Server, server.NewHandler(r, chat))

	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		logger.L.Info("starting server", "address", addr, "model", chat.Model(), "tools", len(toolManager.List()))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.L.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.L.Error("failed to shutdown server gracefully", "error", err)
	}
}

// openStore returns the configured session store, falling back to memory when
// the SQLite database cannot be opened.
func openStore(cfg config.HistoryConfig) history.Store {
	if cfg.Backend != config.BackendSQLite {
		return history.NewMemoryStore()
	}
	store, err := history.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		logger.L.Error("failed to open history database, using in-memory store", "path", cfg.DBPath, "error", err)
		return history.NewMemoryStore()
	}
	return store
}
