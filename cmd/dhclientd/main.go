package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/veesix-networks/dhclient/internal/dhclient"
	_ "github.com/veesix-networks/dhclient/internal/history"
	"github.com/veesix-networks/dhclient/pkg/component"
	"github.com/veesix-networks/dhclient/pkg/config"
	"github.com/veesix-networks/dhclient/pkg/control"
	"github.com/veesix-networks/dhclient/pkg/ddns"
	"github.com/veesix-networks/dhclient/pkg/dispatch"
	"github.com/veesix-networks/dhclient/pkg/events/local"
	"github.com/veesix-networks/dhclient/pkg/hook"
	"github.com/veesix-networks/dhclient/pkg/leasedb"
	"github.com/veesix-networks/dhclient/pkg/logger"
	"github.com/veesix-networks/dhclient/pkg/opdb/sqlite"
	"github.com/veesix-networks/dhclient/pkg/transport"
	"github.com/veesix-networks/dhclient/pkg/version"
	_ "github.com/veesix-networks/dhclient/plugins/all"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("c", "", "Path to configuration file")
	leaseFile := flag.String("lf", "", "Lease database path")
	pidFile := flag.String("pf", "", "PID file path")
	oneTry := flag.Bool("1", false, "Try once to get a lease, exit with status 2 on failure")
	release := flag.Bool("r", false, "Release the current leases and exit")
	quiet := flag.Bool("q", false, "Only log warnings and errors")
	port := flag.Uint("p", 0, "Local UDP port; the server port is one less")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Full("dhclientd"))
		return 0
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *leaseFile != "" {
		cfg.LeaseFile = *leaseFile
	}
	if *pidFile != "" {
		cfg.PIDFile = *pidFile
	}
	if *port != 0 {
		if *port < 2 || *port > 65535 {
			log.Fatalf("Invalid port %d", *port)
		}
		cfg.LocalPort = uint16(*port)
	}
	if *quiet {
		cfg.Logging.Level = string(logger.LogLevelWarn)
	}

	if err := logger.Configure(loggerOptions(cfg)); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	mainLog := logger.Get(logger.Main)

	names := flag.Args()
	if len(names) == 0 {
		names = cfg.InterfaceNames()
	}

	nl, err := transport.NewHandle(cfg.Netns)
	if err != nil {
		log.Fatalf("Failed to open netlink handle: %v", err)
	}
	defer nl.Close()

	ifaces, err := transport.Discover(nl, names)
	if err != nil {
		log.Fatalf("Failed to discover interfaces: %v", err)
	}

	var engine *dhclient.Engine
	tr, err := transport.New(transport.Config{
		LocalPort: cfg.LocalPort,
		Netns:     cfg.Netns,
	}, ifaces, func(rx *transport.Received) { engine.HandlePacket(rx) })
	if err != nil {
		log.Fatalf("Failed to open sockets: %v", err)
	}
	defer tr.Close()

	db := leasedb.Open(cfg.LeaseFile)
	defer db.Close()

	eventBus := local.NewBus()
	defer eventBus.Close()

	opdbPath := cfg.OpDB.Path
	if opdbPath == "" {
		opdbPath = ":memory:"
	}
	store, err := sqlite.Open(opdbPath)
	if err != nil {
		log.Fatalf("Failed to open operational database: %v", err)
	}
	defer store.Close()

	deps := component.Dependencies{
		Config:    cfg,
		EventBus:  eventBus,
		OpDB:      store,
		Transport: tr,
	}

	orch := component.NewOrchestrator()
	comps, err := component.LoadAll(deps)
	if err != nil {
		log.Fatalf("Failed to load components: %v", err)
	}

	var (
		observer dhclient.Observer
		history  control.HistorySource
	)
	for _, comp := range comps {
		mainLog.Info("Loaded component", "name", comp.Name())
		orch.Register(comp)
		if o, ok := comp.(dhclient.Observer); ok {
			observer = o
		}
		if h, ok := comp.(control.HistorySource); ok {
			history = h
		}
	}

	d, err := dispatch.New(dispatch.SystemClock{})
	if err != nil {
		log.Fatalf("Failed to create dispatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine = dhclient.New(dhclient.Options{
		Sender:   tr,
		LeaseDB:  db,
		Bus:      eventBus,
		Observer: observer,
		OneTry:   *oneTry,
		Stop:     d.Stop,
		Context:  ctx,
	})

	for _, ifc := range ifaces {
		ccfg := cfg.Client(ifc.Name)
		spec := dhclient.ClientSpec{
			Interface: ifc,
			Config:    ccfg,
			Hook:      newHook(ccfg, nl),
		}
		if ccfg.DDNS != nil && ccfg.DDNS.ForwardUpdate {
			spec.DDNS = ddns.NewClient(ddns.Config{
				Server:     ccfg.DDNS.Server,
				Timeout:    ccfg.DDNS.Timeout,
				TSIGName:   ccfg.DDNS.TSIGName,
				TSIGSecret: ccfg.DDNS.TSIGSecret,
			})
		}
		if _, err := engine.AddClient(spec); err != nil {
			log.Fatalf("Failed to configure client: %v", err)
		}
	}

	if err := engine.LoadLeases(); err != nil {
		log.Fatalf("Failed to read lease database: %v", err)
	}

	if *release {
		engine.Start(true)
		mainLog.Info("Released leases")
		return 0
	}

	srv, err := control.Listen(cfg.ControlSocket, engine)
	if err != nil {
		log.Fatalf("Failed to open control socket: %v", err)
	}
	defer srv.Close()
	srv.SetHistory(history)

	tr.Register(d)
	srv.Register(d)
	d.AddTimers(engine.Timers())

	if err := writePIDFile(cfg.PIDFile); err != nil {
		mainLog.Warn("Failed to write pid file", "path", cfg.PIDFile, "error", err)
	}
	defer os.Remove(cfg.PIDFile)

	if err := orch.Start(ctx); err != nil {
		log.Fatalf("Failed to start components: %v", err)
	}

	engine.Start(false)
	mainLog.Info(version.Full("dhclientd")+" started", "interfaces", len(ifaces))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		mainLog.Info("Received signal, shutting down", "signal", sig)
		d.Stop(nil)
	}()

	code := exitCode(d.Run(ctx))
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := orch.Stop(stopCtx); err != nil {
		mainLog.Error("Error stopping components", "error", err)
	}

	mainLog.Info("dhclient stopped")
	return code
}

// exitCode maps the dispatcher's stop reason to a process status.
func exitCode(err error) int {
	var exitErr *dhclient.ExitError
	switch {
	case err == nil, errors.Is(err, dispatch.ErrStopped), errors.Is(err, context.Canceled):
		return 0
	case errors.As(err, &exitErr):
		logger.Get(logger.Main).Error("Exiting", "reason", exitErr.Reason, "status", exitErr.Code)
		return exitErr.Code
	default:
		logger.Get(logger.Main).Error("Fatal error", "error", err)
		return 1
	}
}

func newHook(cfg config.ClientConfig, nl hook.LinkOps) hook.Hook {
	if cfg.Script == config.BuiltinScript {
		return hook.NewNetlink(nl)
	}
	return hook.NewScript(cfg.Script)
}

func loggerOptions(cfg *config.Config) logger.Options {
	components := make(map[string]logger.LogLevel, len(cfg.Logging.Components))
	for name, lvl := range cfg.Logging.Components {
		components[name] = logger.LogLevel(lvl)
	}
	return logger.Options{
		Format:     cfg.Logging.Format,
		Level:      logger.LogLevel(cfg.Logging.Level),
		Output:     cfg.Logging.Output,
		Components: components,
	}
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
