// Command looper-agent runs the Iteration Engine's HTTP surface (§6),
// grounded on the teacher's example/cmd/assistant main: clue logging
// setup, flag parsing with environment overrides, and the
// errc-channel/signal.Notify/sync.WaitGroup graceful-shutdown pattern.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"goa.design/clue/log"

	"github.com/loopercore/looper/internal/looper/approval"
	"github.com/loopercore/looper/internal/looper/config"
	"github.com/loopercore/looper/internal/looper/engine"
	"github.com/loopercore/looper/internal/looper/executor"
	"github.com/loopercore/looper/internal/looper/httpapi"
	"github.com/loopercore/looper/internal/looper/journal"
	"github.com/loopercore/looper/internal/looper/reasoner"
	"github.com/loopercore/looper/internal/looper/reasoner/modelbridge"
	"github.com/loopercore/looper/internal/looper/scheduler"
	"github.com/loopercore/looper/runtime/agent/telemetry"
)

func main() {
	var (
		workspaceF = flag.String("workspace", "", "workspace root directory (overrides LOOPER_WORKSPACE_ROOT)")
		bindF      = flag.String("bind", "", "HTTP listen address (overrides LOOPER_AGENT_BIND)")
		dbgF       = flag.Bool("debug", false, "log request/response detail")
	)
	flag.Parse()

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if *dbgF {
		ctx = log.Context(ctx, log.WithDebug())
	}

	if err := run(ctx, *workspaceF, *bindF); err != nil {
		log.Fatal(ctx, err)
	}
}

func run(ctx context.Context, workspaceFlag, bindFlag string) error {
	logger := telemetry.NewClueLogger()

	workspace := workspaceFlag
	if workspace == "" {
		workspace = config.WorkspaceRoot()
	}
	bind := bindFlag
	if bind == "" {
		bind = config.Bind()
	}
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}

	journalStore, err := journal.Open(config.JournalPath())
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}

	keys, err := config.LoadKeys(config.KeysPath())
	if err != nil {
		return fmt.Errorf("load keys: %w", err)
	}

	approvals := approval.New()
	executors := executor.Table(workspace)
	eng := engine.New(executors, approvals,
		engine.WithJournal(journalStore),
		engine.WithLogger(logger),
		engine.WithLocalReasoner(reasoner.RuleBasedLocal{}),
		engine.WithFrontierReasoner(reasoner.RuleBasedFrontier{}),
	)

	settings, err := config.LoadSettings(config.SettingsPath(), func(localProvider, localModel, frontierProvider, frontierModel string) error {
		localKey, _ := keys.Get(localProvider)
		frontierKey, _ := keys.Get(frontierProvider)
		localClient, err := httpapi.DefaultReasonerBuilder(localProvider, localModel, localKey)
		if err != nil {
			return err
		}
		frontierClient, err := httpapi.DefaultReasonerBuilder(frontierProvider, frontierModel, frontierKey)
		if err != nil {
			return err
		}
		eng.Configure(modelbridge.Local{Client: localClient}, modelbridge.Frontier{Client: frontierClient})
		return nil
	})
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	sched := scheduler.New(eng, scheduler.WithLogger(logger))
	server := httpapi.NewServer(eng, sched, keys, settings, httpapi.DefaultReasonerBuilder, logger)

	mux := http.NewServeMux()
	server.Routes(mux)

	httpServer := &http.Server{Addr: bind, Handler: mux}

	errc := make(chan error, 1)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf(ctx, "listening on %s", bind)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	log.Printf(ctx, "exiting (%v)", <-errc)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	sched.Stop()

	wg.Wait()
	log.Printf(ctx, "exited")
	return nil
}
