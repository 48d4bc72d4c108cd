package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"sync"
	"time"
)

// ServerManager manages backend server processes.
type ServerManager struct {
	servers map[string]*ServerProcess
	mu      sync.RWMutex
}

// ServerProcess represents a running backend server process.
type ServerProcess struct {
	cmd     *exec.Cmd
	baseURL string
	cancel  context.CancelFunc
}

// ServerConfig defines how to start and check a backend server.
type ServerConfig struct {
	Name         string            // Unique identifier, e.g. "whisper-fast"
	BinPath      string            // Path to the binary
	Args         []string          // Arguments passed to the binary
	Port         int               // Port to bind the server
	HealthPath   string            // Health endpoint path (e.g. "/health")
	Env          map[string]string // Optional environment variables
	ReadyTimeout time.Duration     // How long to wait for readiness
}

// NewServerManager initializes a ServerManager.
func NewServerManager() *ServerManager {
	return &ServerManager{
		servers: make(map[string]*ServerProcess),
	}
}

// StartServer starts a backend server based on a generic configuration.
// Starting an already-running server is a no-op. Canceling ctx aborts the
// readiness wait; the process itself outlives ctx and is stopped via
// StopServer or StopAll.
func (sm *ServerManager) StartServer(ctx context.Context, cfg ServerConfig) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	key := serverKey(cfg.Name, cfg.Port)
	if _, exists := sm.servers[key]; exists {
		return nil
	}

	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, cfg.BinPath, cfg.Args...)

	if len(cfg.Env) > 0 {
		env := make([]string, 0, len(cfg.Env))
		for k, v := range cfg.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		cmd.Env = append(cmd.Env, env...)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start %s server: %w", cfg.Name, err)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", cfg.Port)

	healthPath := cfg.HealthPath
	if healthPath == "" {
		healthPath = "/health"
	}

	timeout := cfg.ReadyTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	if err := sm.waitForServer(ctx, baseURL+healthPath, timeout); err != nil {
		cancel()
		cmd.Process.Kill()
		return fmt.Errorf("%s server did not become ready: %w", cfg.Name, err)
	}

	sm.servers[key] = &ServerProcess{
		cmd:     cmd,
		baseURL: baseURL,
		cancel:  cancel,
	}

	slog.Info("Server started", "name", cfg.Name, "port", cfg.Port)
	return nil
}

// StopServer terminates a backend server.
func (sm *ServerManager) StopServer(name string, port int) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	key := serverKey(name, port)
	srv, exists := sm.servers[key]
	if !exists {
		return fmt.Errorf("server %s: %w", key, ErrServerNotFound)
	}

	srv.cancel()
	srv.cmd.Process.Kill()
	delete(sm.servers, key)
	slog.Info("Server stopped", "name", name, "port", port)
	return nil
}

// StopAll terminates all running servers.
func (sm *ServerManager) StopAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for _, srv := range sm.servers {
		srv.cancel()
		srv.cmd.Process.Kill()
	}
	sm.servers = make(map[string]*ServerProcess)

	slog.Info("All servers stopped")
}

// waitForServer waits for a server to be ready.
func (sm *ServerManager) waitForServer(ctx context.Context, url string, timeout time.Duration) error {
	client := &http.Client{Timeout: 1 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}

	return fmt.Errorf("server failed to respond at %s within %v", url, timeout)
}

func serverKey(name string, port int) string {
	return fmt.Sprintf("%s-%d", name, port)
}
