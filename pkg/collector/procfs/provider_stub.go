//go:build !linux
// +build !linux

package procfs

import (
	"context"
	"errors"

	"github.com/srodi/spike-spy/pkg/collector"
)

var errUnsupported = errors.New("procfs provider requires linux")

// Provider is a placeholder on non-Linux platforms.
type Provider struct {
	collector.Table
}

// New returns an error because procfs only exists on Linux.
func New(mountPoint string) (*Provider, error) {
	return nil, errUnsupported
}

// Refresh always fails on unsupported platforms.
func (p *Provider) Refresh(ctx context.Context) error {
	return errUnsupported
}
