package domain

import (
	"context"
	"log/slog"
	"time"

	"github.com/pendergraft/netprofile/internal/chains"
	"github.com/pendergraft/netprofile/internal/profile"
)

// LoggingMiddleware returns a service middleware that logs all operations.
func LoggingMiddleware(logger *slog.Logger) func(Service) Service {
	return func(next Service) Service {
		return &loggingMiddleware{
			next:   next,
			logger: logger,
		}
	}
}

type loggingMiddleware struct {
	next   Service
	logger *slog.Logger
}

func (m *loggingMiddleware) Info(ctx context.Context) DocumentInfo {
	return m.next.Info(ctx)
}

func (m *loggingMiddleware) List(ctx context.Context) ([]Summary, error) {
	start := time.Now()
	result, err := m.next.List(ctx)
	m.logger.Debug("List",
		"count", len(result),
		"duration", time.Since(start),
		"error", err,
	)
	return result, err
}

func (m *loggingMiddleware) Get(ctx context.Context, name string) (*Detail, error) {
	start := time.Now()
	d, err := m.next.Get(ctx, name)
	m.logger.Debug("Get",
		"network", name,
		"duration", time.Since(start),
		"error", err,
	)
	return d, err
}

func (m *loggingMiddleware) Compilers(ctx context.Context) (profile.Compilers, error) {
	start := time.Now()
	c, err := m.next.Compilers(ctx)
	m.logger.Debug("Compilers",
		"solc", c.Solc.Version,
		"duration", time.Since(start),
		"error", err,
	)
	return c, err
}

func (m *loggingMiddleware) Environment(ctx context.Context) (*EnvReport, error) {
	start := time.Now()
	r, err := m.next.Environment(ctx)
	attrs := []any{"duration", time.Since(start), "error", err}
	if r != nil {
		attrs = append(attrs, "variables", len(r.Variables))
	}
	m.logger.Debug("Environment", attrs...)
	return r, err
}

func (m *loggingMiddleware) Report(ctx context.Context) (*profile.Report, error) {
	start := time.Now()
	r, err := m.next.Report(ctx)
	attrs := []any{"duration", time.Since(start), "error", err}
	if r != nil {
		attrs = append(attrs, "errors", len(r.Errors()), "warnings", len(r.Warnings()))
	}
	m.logger.Debug("Report", attrs...)
	return r, err
}

func (m *loggingMiddleware) Validate(ctx context.Context, data []byte, format profile.Format) (*profile.Report, error) {
	start := time.Now()
	r, err := m.next.Validate(ctx, data, format)
	attrs := []any{
		"format", format,
		"bytes", len(data),
		"duration", time.Since(start),
		"error", err,
	}
	if r != nil {
		attrs = append(attrs, "revision", r.Revision, "valid", r.Valid())
	}
	m.logger.Info("Validate", attrs...)
	return r, err
}

func (m *loggingMiddleware) Probe(ctx context.Context, name string) (*chains.ProbeResult, error) {
	start := time.Now()
	res, err := m.next.Probe(ctx, name)
	attrs := []any{
		"network", name,
		"duration", time.Since(start),
		"error", err,
	}
	if res != nil {
		attrs = append(attrs,
			"remote_network_id", res.RemoteNetworkID,
			"block", res.BlockNumber,
			"matches", res.Matches,
		)
	}
	m.logger.Info("Probe", attrs...)
	return res, err
}
