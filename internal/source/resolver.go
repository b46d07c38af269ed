package source

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"candlesync/internal/logger"
)

// defaultAliases maps lowercase user-facing names to native-symbol candidates
// commonly used by brokers for index CFDs. Candidates are tried in order.
var defaultAliases = map[string][]string{
	"ustech": {"nas100", "ustec", "usnas100", "nsdq100", "tech100"},
	"us30":   {"dj30", "dow30", "us30cash", "wallstreet30"},
	"us500":  {"spx500", "sp500", "us500cash"},
	"ger40":  {"dax40", "de40", "germany40"},
	"uk100":  {"ftse100", "ukx100"},
	"xauusd": {"gold", "xau"},
	"xagusd": {"silver", "xag"},
}

type resolution struct {
	native string
	err    error
}

// Resolver maps user-facing symbols to the provider's native names. Both
// successful and not-found resolutions are cached for the process lifetime so
// the expensive directory scan runs at most once per symbol.
type Resolver struct {
	src     Source
	aliases map[string][]string

	mu    sync.Mutex
	cache map[string]resolution
	dir   []SymbolInfo
	dirOK bool
}

func NewResolver(src Source) *Resolver {
	return &Resolver{
		src:     src,
		aliases: defaultAliases,
		cache:   make(map[string]resolution),
	}
}

// Resolve returns the provider-native symbol for a user-facing one.
// Match order: exact, prefix, substring, alias table. Ties within a tier go
// to the shortest native name. ErrNotFound is cached; connectivity errors
// are not, so a later cycle can retry.
func (r *Resolver) Resolve(ctx context.Context, symbol string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(symbol))
	if key == "" {
		return "", fmt.Errorf("resolve: empty symbol: %w", ErrNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if res, ok := r.cache[key]; ok {
		return res.native, res.err
	}

	if !r.dirOK {
		dir, err := r.src.Symbols(ctx)
		if err != nil {
			return "", fmt.Errorf("resolve %s: load symbol directory: %w", symbol, err)
		}
		r.dir = dir
		r.dirOK = true
	}

	native, ok := r.match(key)
	if !ok {
		err := fmt.Errorf("resolve %s: %w", symbol, ErrNotFound)
		r.cache[key] = resolution{err: err}
		logger.Errorf("symbol %s not available on this account", symbol)
		return "", err
	}
	r.cache[key] = resolution{native: native}
	if !strings.EqualFold(native, symbol) {
		logger.Infof("symbol %s resolved to native %s", symbol, native)
	}
	return native, nil
}

func (r *Resolver) match(key string) (string, bool) {
	// Tier 1: exact.
	for _, info := range r.dir {
		if strings.ToLower(info.Name) == key {
			return info.Name, true
		}
	}
	// Tier 2: prefix, shortest native name wins.
	if name, ok := r.best(func(lower string) bool { return strings.HasPrefix(lower, key) }); ok {
		return name, true
	}
	// Tier 3: substring.
	if name, ok := r.best(func(lower string) bool { return strings.Contains(lower, key) }); ok {
		return name, true
	}
	// Tier 4: alias candidates, each run through the same exact/prefix cascade.
	for _, alias := range r.aliases[key] {
		for _, info := range r.dir {
			if strings.ToLower(info.Name) == alias {
				return info.Name, true
			}
		}
		if name, ok := r.best(func(lower string) bool { return strings.HasPrefix(lower, alias) }); ok {
			return name, true
		}
	}
	return "", false
}

func (r *Resolver) best(accept func(lower string) bool) (string, bool) {
	var found string
	for _, info := range r.dir {
		lower := strings.ToLower(info.Name)
		if !accept(lower) {
			continue
		}
		if found == "" || len(info.Name) < len(found) {
			found = info.Name
		}
	}
	return found, found != ""
}
