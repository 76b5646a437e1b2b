// Package conversation drives the chat flow that records a transaction:
// pick a nature, an account, enter "<amount> <description>", pick a category,
// submit. HandleMessage is the entry point for chat input.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/ivanoskov/ledger_bot/internal/format"
	"github.com/ivanoskov/ledger_bot/internal/model"
	"github.com/ivanoskov/ledger_bot/internal/service"
	"github.com/ivanoskov/ledger_bot/internal/session"
)

const (
	DefaultRecentLimit = 5

	keyAccounts   = "accounts"
	keyCategories = "categories"
	dateLayout    = "2006-01-02"
)

// Finance is the finance-service collaborator. *service.ExpenseTracker
// satisfies it.
type Finance interface {
	Accounts(ctx context.Context) ([]model.Account, error)
	Categories(ctx context.Context) ([]model.Category, error)
	RecentTransactions(ctx context.Context, limit int) ([]model.Transaction, error)
	SubmitTransaction(ctx context.Context, in model.NewTransaction) (*model.Transaction, error)
}

type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock replaces time.Now when stamping submission dates.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the time zone that decides the submission date.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

type Engine struct {
	finance  Finance
	sessions session.Store
	logger   *zap.Logger
	now      func() time.Time
	location *time.Location

	// accounts and categories, loaded once and replaced only by Refresh
	reference *cache.Cache
	loadMu    chan struct{}

	locks *keyedMutex
}

func New(finance Finance, sessions session.Store, opts ...Option) (*Engine, error) {
	if finance == nil {
		return nil, errors.New("conversation: finance collaborator must not be nil")
	}
	if sessions == nil {
		return nil, errors.New("conversation: session store must not be nil")
	}

	e := &Engine{
		finance:   finance,
		sessions:  sessions,
		logger:    zap.NewNop(),
		now:       time.Now,
		location:  time.UTC,
		reference: cache.New(cache.NoExpiration, 0),
		loadMu:    make(chan struct{}, 1),
		locks:     newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Load fetches accounts and categories. A failure is returned as a
// CONFIGURATION *service.Error; the engine stays degraded only if nothing was
// loaded before, otherwise the previous copy is kept.
func (e *Engine) Load(ctx context.Context) error {
	select {
	case e.loadMu <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.loadMu }()

	accounts, err := e.finance.Accounts(ctx)
	if err != nil {
		return service.ConfigurationError(fmt.Errorf("load accounts: %w", err))
	}
	categories, err := e.finance.Categories(ctx)
	if err != nil {
		return service.ConfigurationError(fmt.Errorf("load categories: %w", err))
	}

	e.reference.Set(keyAccounts, accounts, cache.NoExpiration)
	e.reference.Set(keyCategories, categories, cache.NoExpiration)

	e.logger.Info("reference data loaded",
		zap.Int("accounts", len(accounts)),
		zap.Int("categories", len(categories)),
	)
	return nil
}

// Refresh reloads reference data. Flows in progress keep the lists they were shown.
func (e *Engine) Refresh(ctx context.Context) error {
	return e.Load(ctx)
}

// Ready reports whether reference data has been loaded.
func (e *Engine) Ready() bool {
	_, _, ok := e.cached()
	return ok
}

func (e *Engine) cached() ([]model.Account, []model.Category, bool) {
	a, okA := e.reference.Get(keyAccounts)
	c, okC := e.reference.Get(keyCategories)
	if !okA || !okC {
		return nil, nil, false
	}
	return a.([]model.Account), c.([]model.Category), true
}

// referenceData returns the cached lists, retrying the load once if the engine
// is degraded.
func (e *Engine) referenceData(ctx context.Context, log *zap.Logger) ([]model.Account, []model.Category, error) {
	if accounts, categories, ok := e.cached(); ok {
		return accounts, categories, nil
	}
	if err := e.Load(ctx); err != nil {
		log.Error("reference data unavailable", zap.Error(err))
		return nil, nil, err
	}
	accounts, categories, _ := e.cached()
	return accounts, categories, nil
}

// HandleMessage processes one inbound message and returns the reply.
// Messages from the same identity are handled one at a time.
func (e *Engine) HandleMessage(ctx context.Context, identity, text string) string {
	unlock := e.locks.Lock(identity)
	defer unlock()

	log := e.logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("identity", identity),
	)

	input := strings.TrimSpace(text)
	command := strings.ToLower(input)

	switch command {
	case "cancel", "/cancel":
		e.sessions.Reset(identity)
		log.Debug("flow cancelled")
		return msgCancelled
	case "back", "/back", "menu":
		e.sessions.Reset(identity)
		return msgMainMenu
	case "help", "/help":
		return msgHelp
	case "refresh", "/refresh":
		return e.handleRefresh(ctx, log)
	}

	current := e.sessions.Get(identity).State
	reply, next := e.dispatch(ctx, log, current, input, command)

	switch {
	case next.Kind() == session.KindIdle && current.Kind() != session.KindIdle:
		e.sessions.Reset(identity)
	case next.Kind() != session.KindIdle:
		e.sessions.Update(identity, next)
	}

	if next.Kind() != current.Kind() {
		log.Debug("state transition",
			zap.String("from", string(current.Kind())),
			zap.String("to", string(next.Kind())),
		)
	}
	return reply
}

// handleRefresh reloads reference data without touching the session. Lists
// already shown in a flow keep resolving against their snapshot.
func (e *Engine) handleRefresh(ctx context.Context, log *zap.Logger) string {
	if err := e.Refresh(ctx); err != nil {
		log.Error("reference data refresh failed", zap.Error(err))
		return fmt.Sprintf(msgRefreshFailed, userMessage(err))
	}
	accounts, categories, _ := e.cached()
	return fmt.Sprintf(msgRefreshed, len(accounts), len(format.OrderCategories(categories)))
}

func (e *Engine) dispatch(ctx context.Context, log *zap.Logger, current session.State, input, command string) (string, session.State) {
	switch st := current.(type) {
	case session.SelectType:
		return e.handleSelectType(st, command)
	case session.SelectAccount:
		return e.handleSelectAccount(st, input)
	case session.EnterDetails:
		return e.handleEnterDetails(ctx, log, st, input)
	case session.SelectCategory:
		return e.handleSelectCategory(ctx, log, st, input)
	default:
		return e.handleIdle(ctx, log, command)
	}
}
