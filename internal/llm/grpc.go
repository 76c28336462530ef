package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"
)

// GRPCCompleteMethod is the unary method a generation sidecar must serve.
// Request and response are google.protobuf.Struct values:
//
//	request:  {"messages": [{"role": "...", "content": "..."}], "temperature": 0.7, "max_tokens": 150}
//	response: {"text": "..."}
const GRPCCompleteMethod = "/wellness.v1.Generator/Complete"

var (
	errConnectionShutdown       = errors.New("connection shutdown")
	errConnectionStateUnchanged = errors.New("connection state did not change")
)

// GRPCConfig configures a GRPCProvider.
type GRPCConfig struct {
	Address          string
	ConnectTimeout   time.Duration
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
	Logger           *slog.Logger
}

// GRPCProvider implements Provider against a generation sidecar over gRPC.
type GRPCProvider struct {
	conn   *grpc.ClientConn
	addr   string
	logger *slog.Logger
}

// NewGRPCProvider dials addr and waits for the connection to become ready
// so a bad sidecar address fails at startup.
func NewGRPCProvider(ctx context.Context, cfg GRPCConfig) (*GRPCProvider, error) {
	if cfg.Address == "" {
		return nil, errors.New("grpc provider: address is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.KeepaliveTime <= 0 {
		cfg.KeepaliveTime = 2 * time.Minute
	}
	if cfg.KeepaliveTimeout <= 0 {
		cfg.KeepaliveTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	conn, err := grpc.NewClient(cfg.Address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    cfg.KeepaliveTime,
			Timeout: cfg.KeepaliveTimeout,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("grpc provider: connect to %s: %w", cfg.Address, err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := waitForReady(connectCtx, conn); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			cfg.Logger.Warn("Failed to close gRPC connection after readiness failure", "error", closeErr)
		}
		return nil, fmt.Errorf("grpc provider: %s not ready: %w", cfg.Address, err)
	}

	cfg.Logger.Info("Connected to generation sidecar", "address", cfg.Address)
	return &GRPCProvider{conn: conn, addr: cfg.Address, logger: cfg.Logger}, nil
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			conn.Connect()
		case connectivity.Shutdown:
			return errConnectionShutdown
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w from %s", errConnectionStateUnchanged, state)
		}
	}
}

// Name implements Provider.
func (p *GRPCProvider) Name() string { return "grpc" }

// Available reports whether the connection is usable. An idle connection is
// asked to reconnect and counts as available.
func (p *GRPCProvider) Available(context.Context) bool {
	switch p.conn.GetState() {
	case connectivity.Ready:
		return true
	case connectivity.Idle:
		p.conn.Connect()
		return true
	default:
		return false
	}
}

// Complete implements Provider.
func (p *GRPCProvider) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	msgs := make([]any, len(messages))
	for i, m := range messages {
		msgs[i] = map[string]any{"role": string(m.Role), "content": m.Content}
	}
	req, err := structpb.NewStruct(map[string]any{
		"messages":    msgs,
		"temperature": opts.Temperature,
		"max_tokens":  opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := p.conn.Invoke(ctx, GRPCCompleteMethod, req, resp); err != nil {
		return "", fmt.Errorf("invoke %s: %w", GRPCCompleteMethod, err)
	}

	text, ok := resp.GetFields()["text"]
	if !ok {
		return "", ErrEmptyResponse
	}
	return text.GetStringValue(), nil
}

// Close closes the connection.
func (p *GRPCProvider) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
