// Package mcp wraps the official MCP Go SDK so external tool servers (drug
// databases, hospital systems) can contribute calculators to the assessment
// registry alongside the built-in ones.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sweetpotato0/health-agent/pkg/logging"
)

// ErrClientClosed is returned when the MCP client has been closed.
var ErrClientClosed = errors.New("mcp client closed")

// Option configures optional MCP client behaviour.
type Option func(*clientConfig)

type clientConfig struct {
	implementation   sdkmcp.Implementation
	logger           *slog.Logger
	args             []string
	env              []string
	dir              string
	keepAlive        time.Duration
	terminateTimeout time.Duration
	httpClient       *http.Client
}

// WithClientInfo overrides the client metadata advertised to the server.
func WithClientInfo(name, version string) Option {
	return func(cfg *clientConfig) {
		if name != "" {
			cfg.implementation.Name = name
		}
		if version != "" {
			cfg.implementation.Version = version
		}
	}
}

// WithLogger sets the logger for server log messages and stderr.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithCommandArgs adds arguments when launching a stdio MCP server.
func WithCommandArgs(args ...string) Option {
	return func(cfg *clientConfig) { cfg.args = append(cfg.args, args...) }
}

// WithCommandEnv appends environment variables for the stdio server process.
func WithCommandEnv(env ...string) Option {
	return func(cfg *clientConfig) { cfg.env = append(cfg.env, env...) }
}

// WithCommandDir sets the working directory of the stdio server process.
func WithCommandDir(dir string) Option {
	return func(cfg *clientConfig) { cfg.dir = dir }
}

// WithKeepAlive enables periodic pings on the session.
func WithKeepAlive(interval time.Duration) Option {
	return func(cfg *clientConfig) { cfg.keepAlive = interval }
}

// WithTerminateTimeout bounds the wait for graceful server shutdown.
func WithTerminateTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) { cfg.terminateTimeout = d }
}

// WithHTTPClient supplies a custom HTTP client for the streamable transport.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *clientConfig) { cfg.httpClient = client }
}

// Client wraps an MCP SDK client and its live session.
type Client struct {
	sdkClient *sdkmcp.Client
	session   *sdkmcp.ClientSession
	logger    *slog.Logger

	toolsChanged chan struct{}
	done         chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewStdioClient launches an MCP server command over stdio and performs the
// initialization handshake.
func NewStdioClient(ctx context.Context, command string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(command) == "" {
		return nil, errors.New("mcp: command cannot be empty")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	cmd := exec.Command(command, cfg.args...)
	if cfg.dir != "" {
		cmd.Dir = cfg.dir
	}
	if len(cfg.env) > 0 {
		cmd.Env = append(os.Environ(), cfg.env...)
	}
	cmd.Stderr = stderrWriter{logger: cfg.logger}

	return connect(ctx, cfg, &sdkmcp.CommandTransport{
		Command:           cmd,
		TerminateDuration: cfg.terminateTimeout,
	})
}

// NewStreamableClient connects to an MCP server over the streamable HTTP
// transport.
func NewStreamableClient(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("mcp: endpoint cannot be empty")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	transport := &sdkmcp.StreamableClientTransport{Endpoint: endpoint}
	if cfg.httpClient != nil {
		transport.HTTPClient = cfg.httpClient
	}
	return connect(ctx, cfg, transport)
}

// connect builds the SDK client, dials the transport and starts the session
// monitor. Both transports share this path.
func connect(ctx context.Context, cfg clientConfig, transport sdkmcp.Transport) (*Client, error) {
	client := &Client{
		logger:       cfg.logger,
		toolsChanged: make(chan struct{}, 1),
		done:         make(chan struct{}),
	}

	client.sdkClient = sdkmcp.NewClient(&cfg.implementation, &sdkmcp.ClientOptions{
		ToolListChangedHandler: func(context.Context, *sdkmcp.ToolListChangedRequest) {
			select {
			case client.toolsChanged <- struct{}{}:
			default:
			}
		},
		LoggingMessageHandler: func(_ context.Context, req *sdkmcp.LoggingMessageRequest) {
			if req != nil && req.Params != nil {
				client.logger.Debug("mcp server log", "level", req.Params.Level, "data", req.Params.Data)
			}
		},
		KeepAlive: cfg.keepAlive,
	})

	session, err := client.sdkClient.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp: connect failed: %w", err)
	}
	client.session = session

	go client.monitorSession()
	return client, nil
}

// Close terminates the client and the underlying transport. Safe to call
// more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.session != nil {
			c.closeErr = c.session.Close()
		}
		close(c.done)
	})
	return c.closeErr
}

// Done is closed when the client shuts down.
func (c *Client) Done() <-chan struct{} { return c.done }

// ToolsChanged fires when the server announces a changed tool list.
func (c *Client) ToolsChanged() <-chan struct{} { return c.toolsChanged }

// ServerName returns the connected server's advertised name.
func (c *Client) ServerName() string {
	if c.session == nil {
		return ""
	}
	init := c.session.InitializeResult()
	if init == nil || init.ServerInfo == nil {
		return ""
	}
	return init.ServerInfo.Name
}

func (c *Client) monitorSession() {
	if c.session == nil {
		close(c.done)
		return
	}
	if err := c.session.Wait(); err != nil && !errors.Is(err, sdkmcp.ErrConnectionClosed) {
		c.logger.Warn("mcp session ended", "error", err)
	}
	_ = c.Close()
}

func defaultConfig() clientConfig {
	return clientConfig{
		implementation: sdkmcp.Implementation{
			Name:    "health-agent",
			Version: "0.1.0",
		},
		logger: logging.WithComponent("mcp"),
	}
}

type stderrWriter struct {
	logger *slog.Logger
}

func (w stderrWriter) Write(p []byte) (int, error) {
	if msg := strings.TrimSpace(string(p)); msg != "" {
		w.logger.Debug("mcp server stderr", "message", msg)
	}
	return len(p), nil
}
