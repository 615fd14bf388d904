// Command fleetd is the long-running orchestration daemon: it wires the
// ConnectionManager, HostManager, MonitorManager and CommandHandler
// together and serves a chi HTTP/websocket surface for observers and
// control, grounded on the teacher's dashboard server bring-up
// (cmd/nixfleet-dashboard/main.go: load config, construct the zerolog
// logger, open the store, start the hub, listen for signals).
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleetcore/fleetcore/internal/audit"
	"github.com/fleetcore/fleetcore/internal/command"
	"github.com/fleetcore/fleetcore/internal/config"
	"github.com/fleetcore/fleetcore/internal/connector"
	"github.com/fleetcore/fleetcore/internal/dashboardobserver"
	"github.com/fleetcore/fleetcore/internal/filehandler"
	"github.com/fleetcore/fleetcore/internal/hoststate"
	"github.com/fleetcore/fleetcore/internal/modules/builtin"
	"github.com/fleetcore/fleetcore/internal/moduleid"
	"github.com/fleetcore/fleetcore/internal/monitor"
	"github.com/fleetcore/fleetcore/internal/registry"
	"github.com/fleetcore/fleetcore/internal/sshconn"
	"github.com/fleetcore/fleetcore/internal/termlaunch"
	"github.com/fleetcore/fleetcore/internal/totp"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	flags := pflag.NewFlagSet("fleetd", pflag.ExitOnError)
	flags.String("config-dir", "", "override the configuration directory")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("http-addr", "", "address the HTTP/websocket server listens on")
	flags.Parse(os.Args[1:])

	result, err := config.Load(config.LoadOptions{Flags: flags})
	if err != nil {
		zerolog.New(os.Stderr).With().Timestamp().Logger().Fatal().Err(err).Msg("failed to load configuration")
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	switch result.Preferences.LogLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	reg := registry.New()
	builtin.RegisterAll(reg)

	files, err := filehandler.New(result.Preferences.ConfigDir + "/staged")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize file handler")
	}

	connMgr := connector.NewManager(log, files)
	hostMgr := hoststate.NewManager(log)
	monMgr := monitor.NewManager(log, reg, connMgr.NewRequestSender(), hostMgr.NewStateUpdateSender())

	if probeMeta, ok := reg.ResolveMonitorMeta(moduleid.New("platform_info."+sshconn.Spec.ID, moduleid.Latest)); ok {
		probe, perr := reg.NewMonitor(probeMeta.Spec, nil)
		if perr != nil {
			log.Fatal().Err(perr).Msg("failed to construct platform-info probe")
		}
		monMgr.RegisterPlatformProbe(sshconn.Spec, probe)
	}

	var auditSink command.AuditSink
	db, err := audit.Open(result.Preferences.AuditDBPath)
	if err != nil {
		log.Warn().Err(err).Msg("audit database unavailable, command audit trail disabled")
	} else {
		auditSink = audit.NewStore(log, db)
		defer db.Close()
	}

	var totpVerifier command.TOTPVerifier
	if result.Preferences.TOTPSecret != "" {
		totpVerifier = totp.SecretVerifier(result.Preferences.TOTPSecret)
	}

	cmdHandler := command.NewHandler(log, reg, connMgr.NewRequestSender(), hostMgr.NewStateUpdateSender(), files,
		command.WithAuditSink(auditSink), command.WithTOTPVerifier(totpVerifier),
		command.WithTerminalLauncher(termlaunch.New(log)))

	hub := dashboardobserver.NewHub(log)
	hostMgr.AddObserver(hub.Updates())

	for _, rh := range result.Hosts {
		host := hoststate.Host{Name: rh.Name, FQDN: rh.FQDN, IPAddress: rh.IPAddress, Settings: hoststate.Settings(rh.Settings)}
		if err := hostMgr.AddHost(host); err != nil {
			log.Error().Err(err).Str("host", rh.Name).Msg("failed to register host")
			continue
		}
		wireConnector(log, connMgr, rh)
		for _, ref := range rh.Monitors {
			spec := moduleid.New(ref.ID, ref.Version)
			if err := monMgr.AddMonitor(host, spec, ref.Settings, hostMgr, rh.Settings["critical"]); err != nil {
				log.Error().Err(err).Str("host", rh.Name).Str("monitor", spec.String()).Msg("failed to attach monitor")
			}
		}
		for _, ref := range rh.Commands {
			spec := moduleid.New(ref.ID, ref.Version)
			if err := cmdHandler.AddCommand(host, spec, ref.Settings); err != nil {
				log.Error().Err(err).Str("host", rh.Name).Str("command", spec.String()).Msg("failed to attach command")
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	go connMgr.Run()
	go hostMgr.Run()
	go hub.Run(ctx)

	if len(result.Hosts) > 0 {
		hosts := make([]hoststate.Host, 0, len(result.Hosts))
		for _, rh := range result.Hosts {
			hosts = append(hosts, hostMgr.GetHost(rh.Name).Host)
		}
		monMgr.RefreshPlatformInfo(hosts)
	}

	r := chi.NewRouter()
	r.Get("/ws", hub.ServeWS)
	r.Get("/api/hosts", apiListHosts(hostMgr))
	r.Post("/api/commands", apiExecuteCommand(log, hostMgr, cmdHandler))
	r.Post("/api/commands/download", apiDownloadFile(log, hostMgr, cmdHandler))
	r.Post("/api/monitors/refresh", apiRefreshMonitor(log, hostMgr, monMgr))

	addr := result.Preferences.HTTPAddr
	if v := flags.Lookup("http-addr"); v != nil && v.Value.String() != "" {
		addr = v.Value.String()
	}
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		log.Info().Str("addr", addr).Msg("fleetd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	cancel()

	connMgr.NewRequestSender() <- connector.Request{Type: connector.Exit}
	connMgr.Join()

	hostMgr.NewStateUpdateSender() <- hoststate.ExitToken()
	hostMgr.Join()
}

func wireConnector(log zerolog.Logger, connMgr *connector.Manager, rh config.ResolvedHost) {
	ref := rh.Connector
	if ref == nil {
		ref = &config.ModuleRef{ID: "ssh", Version: "1"}
	}
	switch ref.ID {
	case "ssh":
		settings := sshconn.Settings{
			User:           ref.Settings["user"],
			KeyPath:        ref.Settings["key_path"],
			KnownHostsPath: ref.Settings["known_hosts_path"],
		}
		c, err := sshconn.New(settings)
		if err != nil {
			log.Error().Err(err).Str("host", rh.Name).Msg("failed to construct ssh connector")
			return
		}
		connMgr.AddConnector(rh.Name, c)
	default:
		log.Warn().Str("host", rh.Name).Str("connector", ref.ID).Msg("unknown connector type")
	}
}

// refreshMonitorRequest is the POST /api/monitors/refresh body. Either
// MonitorID (one monitor, by id) or Category (all monitors of a category on
// the host) is set, never both.
type refreshMonitorRequest struct {
	Host      string `json:"host"`
	MonitorID string `json:"monitor_id"`
	Category  string `json:"category"`
}

func apiRefreshMonitor(log zerolog.Logger, hostMgr *hoststate.Manager, monMgr *monitor.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshMonitorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Msg("unknown host in monitor refresh request")
				http.Error(w, "unknown host", http.StatusNotFound)
			}
		}()
		host := hostMgr.GetHost(req.Host).Host
		switch {
		case req.MonitorID != "":
			monMgr.RefreshMonitorsByID(host, req.MonitorID)
		case req.Category != "":
			monMgr.RefreshMonitorsOfCategory(host, req.Category)
		default:
			monMgr.RefreshHostMonitors([]hoststate.Host{host})
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func apiListHosts(hostMgr *hoststate.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		byName := make(map[string]hoststate.HostDisplayData)
		for _, h := range hostMgr.GetDisplayData() {
			byName[h.Name] = h
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(byName); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// executeCommandRequest is the POST /api/commands body: the caller's TOTP
// code (destructive commands only) travels inside Params under
// "totp_code", stripped before CommandHandler builds the connector message.
type executeCommandRequest struct {
	Host    string            `json:"host"`
	Command string            `json:"command"`
	Params  map[string]string `json:"params"`
}

func apiExecuteCommand(log zerolog.Logger, hostMgr *hoststate.Manager, cmdHandler *command.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req executeCommandRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Msg("unknown host in command request")
				http.Error(w, "unknown host", http.StatusNotFound)
			}
		}()
		host := hostMgr.GetHost(req.Host).Host
		inv := cmdHandler.Execute(host, req.Command, req.Params)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]uint64{"invocation_id": inv})
	}
}

// downloadFileRequest is the POST /api/commands/download body driving
// CommandHandler's integrated download/edit/upload flow (spec.md §4.E,
// Scenario S5). ActionHint is typically command.ActionEdit or
// command.ActionNone.
type downloadFileRequest struct {
	Host       string `json:"host"`
	Command    string `json:"command"`
	RemotePath string `json:"remote_path"`
	ActionHint string `json:"action_hint"`
}

func apiDownloadFile(log zerolog.Logger, hostMgr *hoststate.Manager, cmdHandler *command.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req downloadFileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Msg("unknown host in download request")
				http.Error(w, "unknown host", http.StatusNotFound)
			}
		}()
		host := hostMgr.GetHost(req.Host).Host
		inv := cmdHandler.DownloadFile(host, req.Command, req.RemotePath, req.ActionHint)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]uint64{"invocation_id": inv})
	}
}
