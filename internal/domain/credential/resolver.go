package credential

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"vision-relay-go/internal/platform/errors"
	"vision-relay-go/internal/utils"
)

// Default credential set names, tried in this order.
const (
	PrimarySet  = "visionApi"
	FallbackSet = "openAiApi"
)

// Resolver picks the first configured set from an ordered list of names.
type Resolver struct {
	store  Store
	order  []string
	logger *utils.Logger
}

// NewResolver tries order against store. An empty order uses PrimarySet then
// FallbackSet.
func NewResolver(store Store, logger *utils.Logger, order ...string) *Resolver {
	if len(order) == 0 {
		order = []string{PrimarySet, FallbackSet}
	}
	names := make([]string, 0, len(order))
	for _, n := range order {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return &Resolver{store: store, order: names, logger: logger}
}

// Order returns the names tried by Resolve.
func (r *Resolver) Order() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Resolve returns the first configured set. Unconfigured sets are skipped;
// when none is usable the result is a single KindAuth error naming every set
// tried. Store failures other than ErrNotConfigured stop the search.
func (r *Resolver) Resolve(ctx context.Context) (Credentials, error) {
	const op = "credential.resolve"

	if r.store == nil {
		return Credentials{}, errors.New(errors.KindAuth, op, "no credential store configured")
	}

	for _, name := range r.order {
		creds, err := r.store.Get(ctx, name)
		if err == nil {
			if creds.Name == "" {
				creds.Name = name
			}
			r.logger.DebugTag("CREDENTIALS", "using credential set %s (provider %s)", name, creds.ProviderID)
			return creds, nil
		}
		if !stderrors.Is(err, ErrNotConfigured) {
			return Credentials{}, errors.Wrap(errors.KindAuth, op,
				fmt.Sprintf("failed to load credential set %q", name), err)
		}
		r.logger.DebugTag("CREDENTIALS", "credential set %s not configured, trying next", name)
	}

	return Credentials{}, errors.Newf(errors.KindAuth, op,
		"no credentials configured: tried %s", strings.Join(quoteAll(r.order), ", "))
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = fmt.Sprintf("%q", n)
	}
	return out
}

// Seed writes sets into store, skipping entries without a name.
func Seed(ctx context.Context, store Store, sets []Credentials) error {
	for _, c := range sets {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		if err := store.Put(ctx, c); err != nil {
			return errors.Wrap(errors.KindStorage, "credential.seed", "store credential set "+c.Name, err)
		}
	}
	return nil
}
