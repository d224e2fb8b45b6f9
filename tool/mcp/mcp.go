// Package mcp bridges remote MCP tools into the local tool registry, so an
// external server's calculators sit next to the built-in health tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sweetpotato0/health-agent/mcp"
	"github.com/sweetpotato0/health-agent/tool"
)

// Transport enumerates the supported MCP transports.
type Transport string

const (
	TransportStreamable Transport = "streamable"
	TransportCommand    Transport = "command"
)

// Config describes how to reach an MCP server.
type Config struct {
	// Transport defaults to streamable when Endpoint is set, command when
	// Command is set.
	Transport Transport
	Endpoint  string
	Command   string
}

// Provider exposes a remote MCP server through tool.Provider.
type Provider struct {
	client *mcp.Client
}

// NewProvider connects to the configured server and verifies the tool list
// is reachable.
func NewProvider(ctx context.Context, cfg Config, opts ...mcp.Option) (*Provider, error) {
	transport := cfg.Transport
	if transport == "" {
		if cfg.Command != "" {
			transport = TransportCommand
		} else {
			transport = TransportStreamable
		}
	}

	var (
		client *mcp.Client
		err    error
	)
	switch transport {
	case TransportStreamable:
		client, err = mcp.NewStreamableClient(ctx, cfg.Endpoint, opts...)
	case TransportCommand:
		client, err = mcp.NewStdioClient(ctx, cfg.Command, opts...)
	default:
		return nil, fmt.Errorf("mcp: unsupported transport %q", transport)
	}
	if err != nil {
		return nil, err
	}

	p := &Provider{client: client}
	if _, err := p.Tools(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return p, nil
}

// Tools converts the server's tool definitions into local registrations.
func (p *Provider) Tools(ctx context.Context) ([]*tool.Tool, error) {
	if p == nil || p.client == nil {
		return nil, errors.New("mcp: provider is not initialized")
	}

	defs, err := p.client.ListAllTools(ctx)
	if err != nil {
		return nil, err
	}

	tools := make([]*tool.Tool, 0, len(defs))
	for _, def := range defs {
		if def == nil {
			continue
		}
		description := def.Description
		if description == "" && def.Annotations != nil {
			description = def.Annotations.Title
		}

		remote := def.Name
		client := p.client
		tools = append(tools, &tool.Tool{
			Name:        remote,
			Description: description,
			Parameters:  parametersFromSchema(mcp.DecodeSchema(def.InputSchema)),
			Handler: func(ctx context.Context, args tool.Args) (string, error) {
				if args == nil {
					args = tool.Args{}
				}
				return client.CallTool(ctx, remote, args)
			},
		})
	}
	return tools, nil
}

// Register fetches the remote tools and upserts them into a registry.
// Upsert keeps re-registration after a ToolsChanged signal idempotent.
func (p *Provider) Register(ctx context.Context, registry *tool.Registry) error {
	tools, err := p.Tools(ctx)
	if err != nil {
		return err
	}
	for _, t := range tools {
		if err := registry.Upsert(t); err != nil {
			return fmt.Errorf("register mcp tool %s: %w", t.Name, err)
		}
	}
	return nil
}

// Close releases the underlying client.
func (p *Provider) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}

// ToolsChanged fires when the server updates its tool list.
func (p *Provider) ToolsChanged() <-chan struct{} {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.ToolsChanged()
}

// Client returns the underlying MCP client.
func (p *Provider) Client() *mcp.Client { return p.client }

// parametersFromSchema flattens an object schema into tool parameters,
// sorted by name for stable prompt rendering.
func parametersFromSchema(schema map[string]any) []tool.Parameter {
	if schema == nil {
		return nil
	}
	if typeVal, _ := schema["type"].(string); !strings.EqualFold(typeVal, "object") {
		return nil
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok || len(props) == 0 {
		return nil
	}

	required := make(map[string]struct{})
	if list, ok := schema["required"].([]any); ok {
		for _, item := range list {
			if name, ok := item.(string); ok {
				required[name] = struct{}{}
			}
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]tool.Parameter, 0, len(names))
	for _, name := range names {
		propMap, ok := props[name].(map[string]any)
		if !ok {
			continue
		}
		param := tool.Parameter{
			Name:        name,
			Description: stringValue(propMap["description"]),
			Type:        stringValue(propMap["type"]),
			Default:     propMap["default"],
		}
		if _, ok := required[name]; ok {
			param.Required = true
		}
		if enums, ok := toStringSlice(propMap["enum"]); ok {
			param.Enum = enums
		}
		if param.Type == "" {
			param.Type = inferType(propMap)
		}
		params = append(params, param)
	}
	return params
}

func inferType(prop map[string]any) string {
	if _, ok := prop["items"]; ok {
		return "array"
	}
	if _, ok := prop["properties"]; ok {
		return "object"
	}
	return "string"
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func toStringSlice(v any) ([]string, bool) {
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	values := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			values = append(values, s)
		}
	}
	return values, true
}

var _ tool.Provider = (*Provider)(nil)
