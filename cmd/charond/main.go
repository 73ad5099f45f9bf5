// Command charond is Charon's resolver daemon: it loads configuration,
// opens the Store, binds the UDP listener and control socket, and runs the
// single-threaded event loop until a signal arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/jroosing/charon/internal/config"
	"github.com/jroosing/charon/internal/controlplane"
	"github.com/jroosing/charon/internal/dbsettings"
	"github.com/jroosing/charon/internal/engine"
	"github.com/jroosing/charon/internal/forwarder"
	"github.com/jroosing/charon/internal/logging"
	"github.com/jroosing/charon/internal/status"
	"github.com/jroosing/charon/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// cliFlags holds parsed command-line flag values.
type cliFlags struct {
	dbPath       string
	configPath   string
	socketPath   string
	statusAddr   string
	enableStatus bool
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.dbPath, "db", "charon_settings.db", "path to the persistent settings database")
	flag.StringVar(&f.configPath, "config", "", "path to a flat configuration file (overrides --db settings)")
	flag.StringVar(&f.socketPath, "socket", controlplane.DefaultSocketPath, "control socket bind path")
	flag.StringVar(&f.statusAddr, "status-addr", "127.0.0.1:8053", "status HTTP server bind address")
	flag.BoolVar(&f.enableStatus, "status", false, "enable the read-only status HTTP server")
	flag.Parse()
	if f.configPath == "" && flag.NArg() > 0 {
		f.configPath = flag.Arg(0)
	}
	return f
}

func run() error {
	flags := parseFlags()

	settings, err := dbsettings.Open(flags.dbPath)
	if err != nil {
		return fmt.Errorf("open settings db: %w", err)
	}
	defer settings.Close()

	dbValues, err := settings.All()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	cfg, err := config.Load(flags.configPath, dbValues)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Configure(logging.Config{
		Level:      levelFor(cfg.Verbose),
		Structured: false,
	})
	logger.Info("charon starting",
		"db", flags.dbPath,
		"listen_addr", cfg.ListenAddr,
		"listen_port", cfg.ListenPort,
		"upstream", cfg.Upstream,
		"zone_file", cfg.ZoneFile,
	)

	st, err := store.Open("charon_data.db")
	if err != nil {
		return fmt.Errorf("open data store: %w", err)
	}
	defer st.Close()

	if cfg.ZoneFile != "" {
		count, err := st.LoadZoneFile(cfg.ZoneFile)
		if err != nil {
			return fmt.Errorf("load zone file: %w", err)
		}
		logger.Info("zone file loaded", "path", cfg.ZoneFile, "records", count)
	}

	fwd, err := forwarder.FromPreset(cfg.Upstream, cfg.UpstreamTimeout())
	if err != nil {
		return fmt.Errorf("configure forwarder: %w", err)
	}

	cp, err := controlplane.Listen(flags.socketPath, st, statsExtra())
	if err != nil {
		return fmt.Errorf("bind control socket: %w", err)
	}
	defer cp.Close()

	listenAddr := fmt.Sprintf("%s:%d", cfg.ListenAddr, cfg.ListenPort)
	eng, err := engine.New(listenAddr, st, fwd, cp, logger, uint32(cfg.CacheTTL))
	if err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer eng.Close()
	logger.Info("listening", "addr", listenAddr, "control_socket", flags.socketPath)

	var statusSrv *status.Server
	if flags.enableStatus {
		statusSrv = status.New(flags.statusAddr, st, logger)
		go func() {
			if err := statusSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("status server error", "error", err)
			}
		}()
		logger.Info("status server listening", "addr", flags.statusAddr)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stop := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(stop)
	}()

	// Abrupt shutdown on signal, no graceful drain, per spec.md §5.
	runErr := eng.Run(stop)

	if statusSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = statusSrv.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	return runErr
}

// statsExtra builds the gopsutil CPU/mem snapshot line the control
// socket's `stats` command appends after the cache count (DESIGN.md open
// question decision 3), grounded on the same gopsutil calls the status
// HTTP surface uses.
func statsExtra() controlplane.StatsExtra {
	return func() string {
		memPercent := 0.0
		if vmStat, err := mem.VirtualMemory(); err == nil {
			memPercent = vmStat.UsedPercent
		}
		cpuPercent := 0.0
		if pcts, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(pcts) > 0 {
			cpuPercent = pcts[0]
		}
		return fmt.Sprintf("cpu_percent=%.1f mem_percent=%.1f", cpuPercent, memPercent)
	}
}

func levelFor(verbose bool) string {
	if verbose {
		return "DEBUG"
	}
	return "INFO"
}
