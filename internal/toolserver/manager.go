package toolserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// callTimeout bounds a single tool invocation.
const callTimeout = 30 * time.Second

// request is one stdio frame sent to a tool server.
type request struct {
	Method string         `json:"method"`
	Tool   string         `json:"tool,omitempty"`
	Args   map[string]any `json:"args,omitempty"`
}

// response is one stdio frame received from a tool server.
type response struct {
	Success bool     `json:"success"`
	Data    any      `json:"data,omitempty"`
	Error   string   `json:"error,omitempty"`
	Tools   []string `json:"tools,omitempty"`
}

// CallResult is the outcome of a single tool call.
type CallResult struct {
	ServerID string        `json:"server_id"`
	Tool     string        `json:"tool_name"`
	Success  bool          `json:"success"`
	Data     any           `json:"data,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"-"`
}

// Status is the runtime state of one configured server.
type Status struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Enabled       bool       `json:"enabled"`
	State         string     `json:"status"` // connected, disconnected, error
	Tools         []string   `json:"tools"`
	ToolCount     int        `json:"tool_count"`
	Error         string     `json:"error,omitempty"`
	ConnectedAt   *time.Time `json:"connected_at,omitempty"`
	CallCount     int        `json:"call_count"`
	AvgResponseMS float64    `json:"avg_response_ms"`
	Capabilities  []string   `json:"capabilities"`
}

// process is a live tool-server subprocess. Calls are serialized per
// process; the protocol is strictly request/response over stdio lines.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	mu     sync.Mutex
}

// Manager launches and routes calls to the configured tool servers.
type Manager struct {
	cfg *Config
	log zerolog.Logger

	mu       sync.Mutex
	procs    map[string]*process
	statuses map[string]*Status
	totalMS  map[string]float64
}

// NewManager creates a manager over a loaded registry.
func NewManager(cfg *Config, log zerolog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		log:      log.With().Str("component", "toolserver").Logger(),
		procs:    make(map[string]*process),
		statuses: make(map[string]*Status),
		totalMS:  make(map[string]float64),
	}
}

// Startup launches all enabled servers concurrently. Individual connect
// failures are recorded in the server status, never fatal.
func (m *Manager) Startup(ctx context.Context) {
	m.log.Info().Int("servers", len(m.cfg.Servers)).Msg("Starting tool servers")

	g, ctx := errgroup.WithContext(ctx)
	for id, sc := range m.cfg.Servers {
		id, sc := id, sc
		m.mu.Lock()
		m.statuses[id] = &Status{
			ID:           id,
			Name:         sc.Name,
			Enabled:      sc.IsEnabled(),
			State:        "disconnected",
			Capabilities: sc.Capabilities,
		}
		m.mu.Unlock()

		if !sc.IsEnabled() {
			continue
		}
		g.Go(func() error {
			if err := m.connect(ctx, id, sc); err != nil {
				m.log.Error().Err(err).Str("server", id).Msg("Failed to start tool server")
				m.setError(id, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Shutdown terminates all subprocesses. Close on stdin signals the child to
// exit; Wait reaps it.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log.Info().Msg("Shutting down tool servers")
	for id, proc := range m.procs {
		_ = proc.stdin.Close()
		_ = proc.cmd.Process.Kill()
		_ = proc.cmd.Wait()
		delete(m.procs, id)
		if status, ok := m.statuses[id]; ok {
			status.State = "disconnected"
			status.Tools = nil
			status.ToolCount = 0
		}
	}
}

func (m *Manager) setError(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status, ok := m.statuses[id]; ok {
		status.State = "error"
		status.Error = err.Error()
	}
}

func (m *Manager) connect(ctx context.Context, id string, sc ServerConfig) error {
	cmd := exec.Command(sc.Command, sc.Args...)
	cmd.Env = os.Environ()
	for key, value := range sc.Env {
		cmd.Env = append(cmd.Env, key+"="+value)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", sc.Command, err)
	}

	proc := &process{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
	}

	// Handshake: discover the server's tools.
	resp, err := proc.roundTrip(ctx, request{Method: "list_tools"})
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("handshake: %w", err)
	}

	now := time.Now().UTC()
	m.mu.Lock()
	m.procs[id] = proc
	if status, ok := m.statuses[id]; ok {
		status.State = "connected"
		status.Tools = resp.Tools
		status.ToolCount = len(resp.Tools)
		status.ConnectedAt = &now
		status.Error = ""
	}
	m.mu.Unlock()

	m.log.Info().Str("server", id).Int("tools", len(resp.Tools)).Msg("Tool server connected")
	return nil
}

// roundTrip writes one request frame and reads one response frame.
func (p *process) roundTrip(ctx context.Context, req request) (*response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := p.stdin.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	type lineResult struct {
		line []byte
		err  error
	}
	ch := make(chan lineResult, 1)
	go func() {
		line, err := p.stdout.ReadBytes('\n')
		ch <- lineResult{line, err}
	}()

	timer := time.NewTimer(callTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("tool call timed out after %s", callTimeout)
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("read response: %w", res.err)
		}
		var resp response
		if err := json.Unmarshal(res.line, &resp); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return &resp, nil
	}
}

// CallTool invokes one tool on one server.
func (m *Manager) CallTool(ctx context.Context, serverID, tool string, args map[string]any) CallResult {
	m.mu.Lock()
	proc, ok := m.procs[serverID]
	m.mu.Unlock()
	if !ok {
		return CallResult{
			ServerID: serverID,
			Tool:     tool,
			Error:    fmt.Sprintf("server %q not connected", serverID),
		}
	}

	start := time.Now()
	resp, err := proc.roundTrip(ctx, request{Method: "call_tool", Tool: tool, Args: args})
	duration := time.Since(start)

	m.recordCall(serverID, duration)

	if err != nil {
		return CallResult{ServerID: serverID, Tool: tool, Error: err.Error(), Duration: duration}
	}
	if !resp.Success {
		return CallResult{ServerID: serverID, Tool: tool, Error: resp.Error, Duration: duration}
	}
	return CallResult{ServerID: serverID, Tool: tool, Success: true, Data: resp.Data, Duration: duration}
}

func (m *Manager) recordCall(serverID string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status, ok := m.statuses[serverID]; ok {
		status.CallCount++
		m.totalMS[serverID] += float64(duration.Milliseconds())
		status.AvgResponseMS = m.totalMS[serverID] / float64(status.CallCount)
	}
}

// CallWithFallback tries servers in the capability's priority order,
// translating canonical argument names per server. Returns the first
// successful raw payload.
func (m *Manager) CallWithFallback(ctx context.Context, capability, mappingKey string, args map[string]any) (any, string, bool) {
	for _, serverID := range m.cfg.FallbackPriority[capability] {
		sc, ok := m.cfg.Servers[serverID]
		if !ok {
			continue
		}
		tool, ok := sc.ToolMappings[mappingKey]
		if !ok {
			continue
		}

		result := m.CallTool(ctx, serverID, tool, translateArgs(args, sc.ParamMappings))
		if result.Success {
			return result.Data, serverID, true
		}
		if ctx.Err() != nil {
			return nil, "", false
		}
		m.log.Warn().
			Str("server", serverID).
			Str("tool", tool).
			Str("error", result.Error).
			Msg("Fallback tool call failed")
	}
	return nil, "", false
}

func translateArgs(args map[string]any, mapping map[string]string) map[string]any {
	if len(mapping) == 0 {
		return args
	}
	out := make(map[string]any, len(args))
	for key, value := range args {
		if mapped, ok := mapping[key]; ok {
			key = mapped
		}
		out[key] = value
	}
	return out
}

// Statuses returns the state of every configured server.
func (m *Manager) Statuses() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Status, 0, len(m.statuses))
	for _, status := range m.statuses {
		out = append(out, *status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
