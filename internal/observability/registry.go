package observability

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Registry manages a collection of observability hooks.
// It safely dispatches events to all registered hooks with error handling.
type Registry struct {
	authHooks     []AuthHook
	checkoutHooks []CheckoutHook
	cacheHooks    []CacheHook
	stockHooks    []StockHook
	logger        zerolog.Logger
	mu            sync.RWMutex
}

// NewRegistry creates a new hook registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		logger: logger,
	}
}

// RegisterAuthHook adds an auth hook to the registry.
func (r *Registry) RegisterAuthHook(hook AuthHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authHooks = append(r.authHooks, hook)
	r.logger.Info().Str("hook", hook.Name()).Msg("registered auth hook")
}

// RegisterCheckoutHook adds a checkout hook to the registry.
func (r *Registry) RegisterCheckoutHook(hook CheckoutHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkoutHooks = append(r.checkoutHooks, hook)
	r.logger.Info().Str("hook", hook.Name()).Msg("registered checkout hook")
}

// RegisterCacheHook adds a cache hook to the registry.
func (r *Registry) RegisterCacheHook(hook CacheHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cacheHooks = append(r.cacheHooks, hook)
	r.logger.Info().Str("hook", hook.Name()).Msg("registered cache hook")
}

// RegisterStockHook adds a stock hook to the registry.
func (r *Registry) RegisterStockHook(hook StockHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stockHooks = append(r.stockHooks, hook)
	r.logger.Info().Str("hook", hook.Name()).Msg("registered stock hook")
}

// EmitTokenIssued dispatches the event to all auth hooks.
func (r *Registry) EmitTokenIssued(ctx context.Context, event TokenIssuedEvent) {
	r.mu.RLock()
	hooks := r.authHooks
	r.mu.RUnlock()

	for _, hook := range hooks {
		func() {
			defer r.recoverPanic("OnTokenIssued", hook.Name())
			hook.OnTokenIssued(ctx, event)
		}()
	}
}

// EmitTokenRevoked dispatches the event to all auth hooks.
func (r *Registry) EmitTokenRevoked(ctx context.Context, event TokenRevokedEvent) {
	r.mu.RLock()
	hooks := r.authHooks
	r.mu.RUnlock()

	for _, hook := range hooks {
		func() {
			defer r.recoverPanic("OnTokenRevoked", hook.Name())
			hook.OnTokenRevoked(ctx, event)
		}()
	}
}

// EmitCheckoutCompleted dispatches the event to all checkout hooks.
func (r *Registry) EmitCheckoutCompleted(ctx context.Context, event CheckoutCompletedEvent) {
	r.mu.RLock()
	hooks := r.checkoutHooks
	r.mu.RUnlock()

	for _, hook := range hooks {
		func() {
			defer r.recoverPanic("OnCheckoutCompleted", hook.Name())
			hook.OnCheckoutCompleted(ctx, event)
		}()
	}
}

// EmitCheckoutFailed dispatches the event to all checkout hooks.
func (r *Registry) EmitCheckoutFailed(ctx context.Context, event CheckoutFailedEvent) {
	r.mu.RLock()
	hooks := r.checkoutHooks
	r.mu.RUnlock()

	for _, hook := range hooks {
		func() {
			defer r.recoverPanic("OnCheckoutFailed", hook.Name())
			hook.OnCheckoutFailed(ctx, event)
		}()
	}
}

// EmitCacheDegraded dispatches the event to all cache hooks.
func (r *Registry) EmitCacheDegraded(ctx context.Context, event CacheDegradedEvent) {
	r.mu.RLock()
	hooks := r.cacheHooks
	r.mu.RUnlock()

	for _, hook := range hooks {
		func() {
			defer r.recoverPanic("OnCacheDegraded", hook.Name())
			hook.OnCacheDegraded(ctx, event)
		}()
	}
}

// EmitLowStock dispatches the event to all stock hooks.
func (r *Registry) EmitLowStock(ctx context.Context, event LowStockEvent) {
	r.mu.RLock()
	hooks := r.stockHooks
	r.mu.RUnlock()

	for _, hook := range hooks {
		func() {
			defer r.recoverPanic("OnLowStock", hook.Name())
			hook.OnLowStock(ctx, event)
		}()
	}
}

// recoverPanic recovers from panics in hook implementations.
// This ensures one bad hook doesn't crash the entire system.
func (r *Registry) recoverPanic(method, hookName string) {
	if err := recover(); err != nil {
		r.logger.Error().
			Str("hook", hookName).
			Str("method", method).
			Interface("panic", err).
			Msg("observability hook panicked (recovered)")
	}
}
