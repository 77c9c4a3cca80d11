package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-drift/motion/pkg/frame"
	"github.com/go-drift/motion/pkg/mapper"
)

// renderQueryTimeout bounds how long a debug request waits for the render
// thread.
const renderQueryTimeout = 2 * time.Second

// debugServer manages the HTTP server for engine inspection.
type debugServer struct {
	server   *http.Server
	listener net.Listener
	mu       sync.Mutex
}

// StartDebugServer starts the HTTP debug server on port and returns the
// bound port (useful when port is 0).
func (e *Engine) StartDebugServer(port int) (int, error) {
	e.debug.mu.Lock()
	defer e.debug.mu.Unlock()

	if e.debug.server != nil {
		return e.debug.listener.Addr().(*net.TCPAddr).Port, nil
	}
	if e.trace == nil {
		e.trace = frame.NewTraceBuffer(0, 0)
		e.dispatch.ScheduleOnRender(func() { e.frames.Trace = e.trace })
	}

	// Bind listener first to fail fast on port conflicts
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return 0, fmt.Errorf("debug server listen: %w", err)
	}

	server := &http.Server{Handler: e.debugHandler()}
	e.debug.server = server
	e.debug.listener = listener

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			e.debug.mu.Lock()
			e.debug.server = nil
			e.debug.listener = nil
			e.debug.mu.Unlock()
			fmt.Printf("debug server error: %v\n", err)
		}
	}()

	return listener.Addr().(*net.TCPAddr).Port, nil
}

// StopDebugServer gracefully shuts down the debug server.
func (e *Engine) StopDebugServer() {
	e.debug.mu.Lock()
	server := e.debug.server
	e.debug.server = nil
	e.debug.listener = nil
	e.debug.mu.Unlock()

	if server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	server.Shutdown(ctx)
}

func (e *Engine) debugHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", e.handleHealth)
	mux.HandleFunc("/frames", e.handleFrames)
	mux.HandleFunc("/runtime", e.handleRuntime)
	mux.HandleFunc("/mappers", e.handleMappers)
	mux.HandleFunc("/handlers", e.handleHandlers)
	return mux
}

// onRender runs fn on the render thread and waits for it.
func (e *Engine) onRender(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if e.closed.Load() || !e.dispatch.ScheduleOnRender(func() {
		defer close(done)
		fn()
	}) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, fmt.Sprintf("json encode error: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func getOnly(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// handleHealth returns a simple health check response.
func (e *Engine) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !getOnly(w, r) {
		return
	}
	status := "ok"
	if e.closed.Load() {
		status = "closed"
	}
	writeJSON(w, map[string]string{"status": status})
}

// handleFrames returns recent frame timing samples.
func (e *Engine) handleFrames(w http.ResponseWriter, r *http.Request) {
	if !getOnly(w, r) {
		return
	}
	if e.trace == nil {
		http.Error(w, "frame tracing disabled", http.StatusServiceUnavailable)
		return
	}
	resp := e.trace.Snapshot()
	applyFrameFilters(r, &resp)
	writeJSON(w, resp)
}

// handleRuntime returns recent runtime samples.
func (e *Engine) handleRuntime(w http.ResponseWriter, r *http.Request) {
	if !getOnly(w, r) {
		return
	}
	if e.samples == nil {
		http.Error(w, "runtime sampling disabled", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, struct {
		Samples []RuntimeSample `json:"samples"`
	}{e.samples.Snapshot()})
}

// MapperReport is the /mappers response shape.
type MapperReport struct {
	Mappers         []mapper.Info `json:"mappers"`
	NeedRunOnRender bool          `json:"needRunOnRender"`
	Cells           int           `json:"cells"`
	Frames          uint64        `json:"frames"`
	FrameState      string        `json:"frameState"`
}

// handleMappers reports registered mappers, read on the render thread.
func (e *Engine) handleMappers(w http.ResponseWriter, r *http.Request) {
	if !getOnly(w, r) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), renderQueryTimeout)
	defer cancel()

	var report MapperReport
	err := e.onRender(ctx, func() {
		report = MapperReport{
			Mappers:         e.mappers.Stats(),
			NeedRunOnRender: e.mappers.NeedRunOnRender(),
			Cells:           e.store.Len(),
			Frames:          e.frames.Frames(),
			FrameState:      e.frames.State().String(),
		}
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("render thread unavailable: %v", err), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, report)
}

// handleHandlers reports the number of event handlers per key.
func (e *Engine) handleHandlers(w http.ResponseWriter, r *http.Request) {
	if !getOnly(w, r) {
		return
	}
	writeJSON(w, struct {
		Handlers    map[string]int `json:"handlers"`
		EventPasses uint64         `json:"eventPasses"`
	}{e.events.Counts(), e.eventPasses.Load()})
}

func applyFrameFilters(r *http.Request, resp *frame.Timeline) {
	limit := 0
	if value := r.URL.Query().Get("limit"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	var filters []func(frame.Sample) bool
	if v := parseFloatQuery(r, "min_ms"); v > 0 {
		filters = append(filters, func(s frame.Sample) bool { return s.FrameMs >= v })
	}
	if v := parseFloatQuery(r, "callbacks_ms"); v > 0 {
		filters = append(filters, func(s frame.Sample) bool { return s.Phases.CallbacksMs >= v })
	}
	if v := parseFloatQuery(r, "pass_ms"); v > 0 {
		filters = append(filters, func(s frame.Sample) bool { return s.Phases.PassMs >= v })
	}
	if value := r.URL.Query().Get("failed"); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil && parsed {
			filters = append(filters, func(s frame.Sample) bool { return s.Failed > 0 })
		}
	}

	if len(filters) > 0 {
		filtered := make([]frame.Sample, 0, len(resp.Samples))
	outer:
		for _, sample := range resp.Samples {
			for _, f := range filters {
				if !f(sample) {
					continue outer
				}
			}
			filtered = append(filtered, sample)
		}
		resp.Samples = filtered
	}

	if limit > 0 && len(resp.Samples) > limit {
		resp.Samples = resp.Samples[len(resp.Samples)-limit:]
	}
}

func parseFloatQuery(r *http.Request, key string) float64 {
	value := r.URL.Query().Get(key)
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return parsed
}
