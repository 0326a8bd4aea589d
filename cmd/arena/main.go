package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ojarena/internal/api"
	"ojarena/internal/cli/command"
	"ojarena/internal/cli/config"
	"ojarena/internal/cli/draft"
	httpclient "ojarena/internal/cli/http"
	"ojarena/internal/cli/repl"
	"ojarena/internal/cli/state"
	"ojarena/internal/contest"
	"ojarena/pkg/utils/logger"

	"github.com/chzyer/readline"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/arena.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	baseURL := flag.String("base", "", "Override base URL")
	timeout := flag.Duration("timeout", 0, "Override HTTP timeout (e.g. 10s)")
	token := flag.String("token", "", "Override access token")
	statePath := flag.String("state", "", "Override token state path")
	lang := flag.String("lang", "", "Override default language")
	solve := flag.String("solve", "", "Open this contest right away")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *statePath != "" {
		cfg.TokenStatePath = *statePath
	}
	if *lang != "" {
		cfg.Language = *lang
	}

	if err := logger.Init(cfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	tokenState, err := state.Load(cfg.TokenStatePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load token state failed: %v\n", err)
		os.Exit(1)
	}
	if *token != "" {
		tokenState.AccessToken = *token
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if tokenState.AccessToken != "" && tokenState.Expired(time.Now()) {
		fmt.Fprintln(os.Stderr, "stored token has expired, log in again with: user login")
		logger.Info(ctx, "stored token expired", zap.String("username", tokenState.Username))
	}

	drafts, err := draft.Open(cfg.Drafts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "draft store unavailable, drafts disabled: %v\n", err)
		logger.Warn(ctx, "open draft store failed", zap.String("backend", cfg.Drafts.Backend), zap.Error(err))
	} else {
		defer func() {
			_ = drafts.Close()
		}()
	}

	if cfg.HistoryFile != "" {
		_ = os.MkdirAll(filepath.Dir(cfg.HistoryFile), 0o700)
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "arena> ",
		HistoryFile:     cfg.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init terminal failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = rl.Close()
	}()

	client := httpclient.New(cfg.BaseURL, cfg.Timeout, func() string {
		return tokenState.AccessToken
	})
	deps := repl.Deps{
		Client:       client,
		Contests:     api.NewContestClient(client),
		Problems:     api.NewProblemClient(client, cfg.ProblemCacheTTL),
		Judge:        api.NewJudgeClient(client, cfg.Judge.MinInterval),
		Drafts:       drafts,
		Editor:       contest.ExternalEditor{Command: contest.ResolveEditorCommand(cfg.Editor)},
		Commands:     command.Registry(),
		Tokens:       &tokenState,
		StatePath:    cfg.TokenStatePath,
		PrettyJSON:   cfg.PrettyJSON != nil && *cfg.PrettyJSON,
		Language:     cfg.Language,
		TickInterval: cfg.TickInterval,
	}
	shell := repl.New(deps, rl, rl.Stdout())

	logger.Info(ctx, "arena started", zap.String("base_url", cfg.BaseURL), zap.String("language", cfg.Language))
	if *solve != "" {
		shell.Execute(ctx, "solve "+*solve)
	}
	if err := shell.Run(ctx); err != nil {
		logger.Error(ctx, "shell stopped", zap.Error(err))
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}
}
