package webui

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mzyy94/niimprint/internal/config"
	"github.com/mzyy94/niimprint/internal/niim"
	"github.com/mzyy94/niimprint/internal/preview"
	"github.com/mzyy94/niimprint/internal/printer"
	"github.com/mzyy94/niimprint/internal/raster"
)

//go:embed static
var staticFS embed.FS

// maxUpload bounds image request bodies.
const maxUpload = 16 << 20

// Device is the printer surface used by the web UI.
type Device interface {
	State() printer.State
	GetDeviceStatus(ctx context.Context) (*printer.DeviceStatus, error)
	PrintImage(ctx context.Context, r *niim.Raster, opts printer.PrintOptions) error
}

// Options configures NewHandler.
type Options struct {
	Device   Device
	Settings *config.Store
	Job      *JobStatus   // nil allocates one
	Events   *EventHub    // nil disables /api/events
	Metrics  http.Handler // nil disables /metrics

	// JobContext is the parent context of print jobs; they outlive the
	// request that started them.
	JobContext context.Context
}

type handler struct {
	dev      Device
	settings *config.Store
	job      *JobStatus
	jobCtx   context.Context
}

// NewHandler creates an HTTP handler for the Web UI and its JSON API.
func NewHandler(opts Options) http.Handler {
	h := &handler{
		dev:      opts.Device,
		settings: opts.Settings,
		job:      opts.Job,
		jobCtx:   opts.JobContext,
	}
	if h.settings == nil {
		h.settings = config.NewStore(config.DefaultSettings())
	}
	if h.job == nil {
		h.job = &JobStatus{}
	}
	if h.jobCtx == nil {
		h.jobCtx = context.Background()
	}

	mux := http.NewServeMux()
	staticContent, _ := fs.Sub(staticFS, "static")
	mux.HandleFunc("GET /api/status", h.handleStatus)
	mux.HandleFunc("GET /api/settings", h.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", h.handlePutSettings)
	mux.HandleFunc("POST /api/print", h.handlePrint)
	mux.HandleFunc("POST /api/preview", h.handlePreview)
	mux.HandleFunc("GET /api/job", h.handleJob)
	if opts.Events != nil {
		mux.Handle("GET /api/events", opts.Events)
	}
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}
	mux.Handle("GET /", http.FileServer(http.FS(staticContent)))
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusCode maps driver errors to HTTP status codes.
func statusCode(err error) int {
	switch {
	case errors.Is(err, niim.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, printer.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, printer.ErrConnectionClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, niim.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// --- Status API ---

type statusResponse struct {
	Online    bool                  `json:"online"`
	State     string                `json:"state"`
	Device    *printer.DeviceStatus `json:"device,omitempty"`
	Error     string                `json:"error,omitempty"`
	Job       JobSnapshot           `json:"job"`
	UpdatedAt string                `json:"updatedAt"`
}

func (h *handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	state := h.dev.State()
	resp := statusResponse{
		Online:    state == printer.StateConnected,
		State:     state.String(),
		Job:       h.job.Snapshot(),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	// Status queries would interleave with print commands.
	if resp.Online && !resp.Job.Printing {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		st, err := h.dev.GetDeviceStatus(ctx)
		if err != nil {
			slog.Debug("device status failed", "err", err)
			resp.Error = err.Error()
		} else {
			resp.Device = st
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Settings API ---

func (h *handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settings.Get())
}

// settingsUpdate lists the settings that take effect without a restart.
// Connection and listener settings are read once at startup.
type settingsUpdate struct {
	Density    *int `json:"density"`
	PreviewDPI *int `json:"previewDpi"`
}

func (h *handler) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsUpdate
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", niim.ErrInvalidArgument, err))
		return
	}
	s := h.settings.Get()
	if req.Density != nil {
		s.Density = *req.Density
	}
	if req.PreviewDPI != nil {
		s.PreviewDPI = *req.PreviewDPI
	}
	if err := h.settings.Update(s); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// --- Print API ---

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Join(niim.ErrInvalidArgument, err)
	}
	return n, nil
}

// readRaster decodes the request body, scaled by the optional width query.
func readRaster(w http.ResponseWriter, r *http.Request) (*niim.Raster, error) {
	width, err := queryInt(r, "width", 0)
	if err != nil {
		return nil, err
	}
	return raster.Decode(http.MaxBytesReader(w, r.Body, maxUpload), width)
}

func (h *handler) handlePrint(w http.ResponseWriter, r *http.Request) {
	density, err := queryInt(r, "density", h.settings.Get().Density)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if density < niim.MinDensity || density > niim.MaxDensity {
		writeError(w, http.StatusBadRequest, niim.ErrInvalidArgument)
		return
	}
	img, err := readRaster(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := niim.NewLineEncoder(img); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if h.dev.State() != printer.StateConnected {
		writeError(w, http.StatusServiceUnavailable, printer.ErrConnectionClosed)
		return
	}
	if !h.job.TryStart(img.Width, img.Height) {
		writeError(w, http.StatusConflict, printer.ErrBusy)
		return
	}

	go func() {
		slog.Info("web print job started", "width", img.Width, "height", img.Height, "density", density)
		err := h.dev.PrintImage(h.jobCtx, img, printer.PrintOptions{
			Density:  density,
			Progress: h.job.SetProgress,
		})
		if err != nil {
			slog.Warn("web print job failed", "err", err)
		}
		h.job.SetResult(err)
	}()

	writeJSON(w, http.StatusAccepted, h.job.Snapshot())
}

func (h *handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	img, err := readRaster(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	data, err := preview.GeneratePDF(img, h.settings.Get().PreviewDPI)
	if err != nil {
		writeError(w, statusCode(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (h *handler) handleJob(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.job.Snapshot())
}
