//go:build !linux
// +build !linux

package sched

import (
	"context"
	"errors"

	"github.com/srodi/spike-spy/pkg/collector"
)

var errUnsupported = errors.New("sched provider requires linux")

// Provider is a placeholder on non-Linux platforms.
type Provider struct {
	collector.Table
}

// Open returns an error because eBPF is only supported on Linux.
func Open(objectPath string) (*Provider, error) {
	return nil, errUnsupported
}

// Refresh always fails on unsupported platforms.
func (p *Provider) Refresh(ctx context.Context) error {
	return errUnsupported
}

// Close is a no-op stub.
func (p *Provider) Close() error {
	return nil
}
