// Package platform defines the contract every coupon source implements and
// the registry that resolves a platform id to its adapter.
package platform

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/models"
)

var ErrUnknownPlatform = errors.New("unknown platform")

type VerifyResult struct {
	Valid   bool           `json:"valid"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Adapter timeouts are per upstream call and owned by the implementation.
type Adapter interface {
	Platform() string
	CaptureCoupons(ctx context.Context) ([]models.Candidate, error)
	VerifyCoupon(ctx context.Context, code string) (VerifyResult, error)
}

// Registry is built once at startup and read-only afterwards.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		if a == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(a.Platform()))
		if name == "" {
			return nil, errors.New("adapter with empty platform id")
		}
		if _, dup := r.adapters[name]; dup {
			return nil, fmt.Errorf("duplicate adapter for platform %q", name)
		}
		r.adapters[name] = a
	}
	return r, nil
}

func (r *Registry) Get(platform string) (Adapter, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}
	a, ok := r.adapters[strings.ToLower(strings.TrimSpace(platform))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}
	return a, nil
}

func (r *Registry) Has(platform string) bool {
	_, err := r.Get(platform)
	return err == nil
}

func (r *Registry) Platforms() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
