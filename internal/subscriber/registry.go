// Package subscriber tracks per-user watchlists and the add-symbol input state.
package subscriber

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"perpscanner/internal/apperr"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

type InputState int

const (
	Idle InputState = iota
	AwaitingSymbol
)

func (s InputState) String() string {
	switch s {
	case AwaitingSymbol:
		return "awaiting_symbol"
	default:
		return "idle"
	}
}

type AddResult int

const (
	Added AddResult = iota
	AlreadyPresent
)

type RemoveResult int

const (
	Removed RemoveResult = iota
	NotFound
)

// Store persists watchlist mutations. It is called after the registry lock
// is released.
type Store interface {
	AddSymbol(ctx context.Context, subscriberID int64, symbol string) error
	RemoveSymbol(ctx context.Context, subscriberID int64, symbol string) error
	LoadAll(ctx context.Context) (map[int64][]string, error)
}

type subscriber struct {
	watchlist map[string]struct{}
	state     InputState
}

// Registry is safe for concurrent use. Subscribers are created on first
// interaction and never deleted.
type Registry struct {
	mu          sync.RWMutex
	subscribers map[int64]*subscriber

	store  Store // optional
	logger *zap.Logger
}

func NewRegistry(store Store, logger *zap.Logger) *Registry {
	return &Registry{
		subscribers: make(map[int64]*subscriber),
		store:       store,
		logger:      logger.Named("subscriber"),
	}
}

// getOrCreate must be called with r.mu held for writing.
func (r *Registry) getOrCreate(id int64) *subscriber {
	sub, ok := r.subscribers[id]
	if !ok {
		sub = &subscriber{watchlist: make(map[string]struct{})}
		r.subscribers[id] = sub
	}
	return sub
}

// Touch registers the subscriber if it is new.
func (r *Registry) Touch(id int64) {
	r.mu.Lock()
	r.getOrCreate(id)
	r.mu.Unlock()
}

// BeginAdd moves the subscriber to AwaitingSymbol.
func (r *Registry) BeginAdd(id int64) {
	r.mu.Lock()
	r.getOrCreate(id).state = AwaitingSymbol
	r.mu.Unlock()
}

// Submission is the outcome of a free-text message.
type Submission struct {
	Handled bool // false when the subscriber was not awaiting a symbol
	Symbol  string
	Result  AddResult
}

// MaxSymbolLen keeps "remove_<SYMBOL>" within Telegram's 64-byte callback data.
const MaxSymbolLen = 30

// NormalizeSymbol upper-cases and trims candidate input. Symbols are 3 to
// MaxSymbolLen characters of A-Z and 0-9, plus inner hyphens of dated
// futures such as BTC-27DEC24.
func NormalizeSymbol(text string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(text))
	switch {
	case len(symbol) <= 2:
		return "", &apperr.ValidationError{Input: text, Reason: "symbol must be longer than 2 characters"}
	case len(symbol) > MaxSymbolLen:
		return "", &apperr.ValidationError{Input: text, Reason: fmt.Sprintf("symbol must be at most %d characters", MaxSymbolLen)}
	case !lo.EveryBy([]rune(symbol), isSymbolRune), strings.HasPrefix(symbol, "-"), strings.HasSuffix(symbol, "-"):
		return "", &apperr.ValidationError{Input: text, Reason: "symbol may only contain letters, digits and inner hyphens"}
	}
	return symbol, nil
}

func isSymbolRune(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-'
}

// SubmitText interprets text as a symbol when the subscriber is awaiting one.
// Both valid and invalid input return the subscriber to Idle.
func (r *Registry) SubmitText(ctx context.Context, id int64, text string) (Submission, error) {
	r.mu.Lock()
	sub := r.getOrCreate(id)
	if sub.state != AwaitingSymbol {
		r.mu.Unlock()
		return Submission{}, nil
	}
	sub.state = Idle

	symbol, err := NormalizeSymbol(text)
	if err != nil {
		r.mu.Unlock()
		return Submission{Handled: true}, err
	}

	res := Added
	if _, ok := sub.watchlist[symbol]; ok {
		res = AlreadyPresent
	} else {
		sub.watchlist[symbol] = struct{}{}
	}
	r.mu.Unlock()

	if res == Added && r.store != nil {
		if err := r.store.AddSymbol(ctx, id, symbol); err != nil {
			r.logger.Warn("persist watchlist add failed",
				zap.Int64("subscriber", id), zap.String("symbol", symbol), zap.Error(err))
		}
	}
	return Submission{Handled: true, Symbol: symbol, Result: res}, nil
}

// Remove deletes symbol from the watchlist. Removing an absent symbol reports
// NotFound.
func (r *Registry) Remove(ctx context.Context, id int64, symbol string) RemoveResult {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	r.mu.Lock()
	sub := r.getOrCreate(id)
	_, ok := sub.watchlist[symbol]
	delete(sub.watchlist, symbol)
	r.mu.Unlock()

	if !ok {
		return NotFound
	}
	if r.store != nil {
		if err := r.store.RemoveSymbol(ctx, id, symbol); err != nil {
			r.logger.Warn("persist watchlist remove failed",
				zap.Int64("subscriber", id), zap.String("symbol", symbol), zap.Error(err))
		}
	}
	return Removed
}

// Watchlist returns the subscriber's symbols sorted alphabetically.
func (r *Registry) Watchlist(id int64) []string {
	r.mu.RLock()
	sub, ok := r.subscribers[id]
	if !ok {
		r.mu.RUnlock()
		return nil
	}
	out := make([]string, 0, len(sub.watchlist))
	for sym := range sub.watchlist {
		out = append(out, sym)
	}
	r.mu.RUnlock()

	sort.Strings(out)
	return out
}

func (r *Registry) State(id int64) InputState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if sub, ok := r.subscribers[id]; ok {
		return sub.state
	}
	return Idle
}

// SubscribersOf returns, in ascending order, the subscribers watching symbol.
func (r *Registry) SubscribersOf(symbol string) []int64 {
	r.mu.RLock()
	var out []int64
	for id, sub := range r.subscribers {
		if _, ok := sub.watchlist[symbol]; ok {
			out = append(out, id)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}

// Hydrate loads persisted watchlists. It is a no-op without a store.
func (r *Registry) Hydrate(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	all, err := r.store.LoadAll(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	symbols, skipped := 0, 0
	for id, list := range all {
		sub := r.getOrCreate(id)
		for _, sym := range list {
			// Rows written before symbol validation tightened are ignored.
			if _, err := NormalizeSymbol(sym); err != nil {
				skipped++
				continue
			}
			sub.watchlist[sym] = struct{}{}
			symbols++
		}
	}
	r.mu.Unlock()

	r.logger.Info("watchlists restored",
		zap.Int("subscribers", len(all)), zap.Int("symbols", symbols), zap.Int("skipped", skipped))
	return nil
}
