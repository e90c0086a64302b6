package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/OpenPrinting/go-mfp/util/uuid"
	"github.com/grandcat/zeroconf"
	"github.com/spf13/cobra"

	"github.com/mzyy94/niimprint/internal/config"
	"github.com/mzyy94/niimprint/internal/metrics"
	"github.com/mzyy94/niimprint/internal/printer"
	"github.com/mzyy94/niimprint/internal/serialport"
	"github.com/mzyy94/niimprint/internal/webui"
)

const mdnsService = "_niimprint._tcp"

func serveCmd(g *globalFlags) *cobra.Command {
	var (
		listenPort int
		noMDNS     bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Web UI, JSON API and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := g.settings
			if cmd.Flags().Changed("listen") {
				s.ListenPort = listenPort
			}
			return serve(s, !noMDNS)
		},
	}
	cmd.Flags().IntVarP(&listenPort, "listen", "l", config.DefaultSettings().ListenPort, "HTTP listen port")
	cmd.Flags().BoolVar(&noMDNS, "no-mdns", false, "do not advertise the server over mDNS")
	return cmd
}

func serve(s config.Settings, advertise bool) error {
	ctx, cancel := signalContext()
	defer cancel()

	store := config.NewStore(s)

	m := metrics.New()
	hub := webui.NewEventHub()

	p := printer.New(serialport.Transport{Name: s.Port},
		printer.WithLogger(slog.Default()),
		printer.WithConfig(printer.Config{CommandTimeout: s.CommandTimeout()}),
		printer.WithCommandHook(m.CommandHook()),
	)
	p.Subscribe(m.Observe)
	p.Subscribe(hub.Publish)

	if err := p.Connect(ctx, s.ConnectOptions()); err != nil {
		return fmt.Errorf("printer connection failed: %w", err)
	}
	defer p.Disconnect()

	if interval := s.HeartbeatInterval(); interval > 0 {
		mon := p.StartMonitor(ctx, interval)
		defer mon.Stop()
	}

	mux := http.NewServeMux()
	mux.Handle("/", webui.NewHandler(webui.Options{
		Device:     p,
		Settings:   store,
		Events:     hub,
		Metrics:    m.Handler(),
		JobContext: ctx,
	}))

	addr := fmt.Sprintf(":%d", s.ListenPort)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: logMiddleware(m, mux),
	}

	if advertise {
		id := deviceUUID(ctx, p, s.Port)
		mdnsServer, err := zeroconf.Register(
			s.DeviceName,
			mdnsService,
			"local.",
			s.ListenPort,
			[]string{
				"txtvers=1",
				"ty=" + s.DeviceName,
				"uuid=" + id.String(),
				"path=/",
			},
			nil,
		)
		if err != nil {
			return fmt.Errorf("mDNS registration failed: %w", err)
		}
		defer mdnsServer.Shutdown()
		slog.Info("mDNS registered", "name", s.DeviceName, "service", mdnsService, "uuid", id.String())
	}

	go func() {
		slog.Info("HTTP server starting", "addr", addr, "url", fmt.Sprintf("http://%s/", net.JoinHostPort(localIP(), strconv.Itoa(s.ListenPort))))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("HTTP server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "err", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// deviceUUID derives a stable identifier from the printer serial, or from
// the port name when the serial cannot be read.
func deviceUUID(ctx context.Context, p *printer.Printer, port string) uuid.UUID {
	name := port
	serial, err := p.GetDeviceSerial(ctx)
	if err != nil {
		slog.Debug("device serial unavailable", "err", err)
	} else if serial != nil {
		name = *serial
	}
	return uuid.SHA1(uuid.NameSpaceDNS, "niimprint."+name)
}

// localIP returns the address used for outbound traffic, for display only.
func localIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "localhost"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

// responseRecorder captures the status code for logging.
type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade pass through the recorder.
func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}

func logMiddleware(m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)
		m.RecordHTTPRequest(r.Method, r.URL.Path, rec.status, elapsed)
		slog.Info("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"remote", r.RemoteAddr,
			"duration", elapsed.Round(time.Millisecond),
		)
	})
}
