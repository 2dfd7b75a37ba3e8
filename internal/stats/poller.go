// Package stats keeps a local copy of the dashboard summary numbers so the
// console can render something immediately and survive short backend
// outages.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/oredesk/oredesk/internal/api"
	"github.com/oredesk/oredesk/internal/audit"
	"github.com/oredesk/oredesk/internal/models"
	"github.com/oredesk/oredesk/internal/session"
)

const (
	cacheTTL       = 30 * time.Second
	refreshTimeout = 20 * time.Second
	auditRetention = 90 * 24 * time.Hour
)

type statEndpoint struct {
	Key  string
	Path string
}

// What gets polled per scope. Only scopes with a live session are touched.
var statEndpoints = map[session.Scope][]statEndpoint{
	session.ScopeUser: {
		{Key: "mining", Path: "/mining/status"},
		{Key: "wallet", Path: "/wallet/balance"},
	},
	session.ScopeAdmin: {
		{Key: "overview", Path: "/admin/stats"},
	},
}

// Poller refreshes cached dashboard stats on a cron schedule and prunes old
// audit entries daily.
type Poller struct {
	cron     *cron.Cron
	cache    *gocache.Cache
	db       *gorm.DB
	store    session.Store
	clients  map[session.Scope]*api.Client
	recorder *audit.Recorder
	logger   zerolog.Logger
}

// NewPoller creates a poller; schedule is a cron expression
func NewPoller(schedule string, db *gorm.DB, store session.Store, userClient, adminClient *api.Client, recorder *audit.Recorder, logger zerolog.Logger) (*Poller, error) {
	p := &Poller{
		cron:  cron.New(),
		cache: gocache.New(cacheTTL, 2*cacheTTL),
		db:    db,
		store: store,
		clients: map[session.Scope]*api.Client{
			session.ScopeUser:  userClient,
			session.ScopeAdmin: adminClient,
		},
		recorder: recorder,
		logger:   logger,
	}

	if _, err := p.cron.AddFunc(schedule, p.Refresh); err != nil {
		return nil, fmt.Errorf("invalid stats refresh schedule %q: %w", schedule, err)
	}
	if _, err := p.cron.AddFunc("@daily", p.pruneAudit); err != nil {
		return nil, fmt.Errorf("failed to schedule audit pruning: %w", err)
	}

	return p, nil
}

// Start begins the schedule
func (p *Poller) Start() {
	p.cron.Start()
	p.logger.Info().Msg("Stats poller started")
}

// Stop stops the schedule and waits for a running refresh to finish
func (p *Poller) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
}

// Refresh fetches every stat endpoint whose scope currently holds a session
func (p *Poller) Refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	for scope, endpoints := range statEndpoints {
		sess, err := p.store.Read(scope)
		if err != nil {
			p.logger.Error().Err(err).Str("scope", string(scope)).Msg("Failed to read session for stats refresh")
			continue
		}
		if sess == nil {
			p.logger.Debug().Str("scope", string(scope)).Msg("No session, skipping stats refresh")
			continue
		}

		for _, endpoint := range endpoints {
			p.refreshOne(ctx, scope, endpoint)
		}
	}
}

func (p *Poller) refreshOne(ctx context.Context, scope session.Scope, endpoint statEndpoint) {
	raw, err := p.clients[scope].Get(ctx, endpoint.Path, nil)
	if err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			// Slot already cleared by the client; next page load redirects to login
			p.logger.Info().Str("scope", string(scope)).Msg("Session expired during stats refresh")
			return
		}
		p.logger.Warn().Err(err).Str("key", endpoint.Key).Msg("Stats refresh failed, keeping previous snapshot")
		return
	}

	payload := string(api.UnwrapItem(raw))
	err = p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("scope = ? AND key = ?", string(scope), endpoint.Key).Delete(&models.CachedStat{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.CachedStat{
			Scope:     string(scope),
			Key:       endpoint.Key,
			Payload:   payload,
			FetchedAt: time.Now(),
		}).Error
	})
	if err != nil {
		p.logger.Error().Err(err).Str("key", endpoint.Key).Msg("Failed to persist cached stat")
		return
	}

	p.cache.Set(cacheKey(scope, endpoint.Key), json.RawMessage(payload), cacheTTL)
}

func cacheKey(scope session.Scope, key string) string {
	return string(scope) + ":" + key
}

// Summary returns the freshest known stats for a scope, preferring the
// in-process cache over the database snapshot
func (p *Poller) Summary(scope session.Scope) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage)

	for _, endpoint := range statEndpoints[scope] {
		if cached, ok := p.cache.Get(cacheKey(scope, endpoint.Key)); ok {
			out[endpoint.Key] = cached.(json.RawMessage)
			continue
		}
		var rec models.CachedStat
		err := p.db.Where("scope = ? AND key = ?", string(scope), endpoint.Key).First(&rec).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				p.logger.Warn().Err(err).Str("key", endpoint.Key).Msg("Failed to read cached stat")
			}
			continue
		}
		out[endpoint.Key] = json.RawMessage(rec.Payload)
	}

	return out
}

func (p *Poller) pruneAudit() {
	pruned, err := p.recorder.Prune(auditRetention)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to prune audit log")
		return
	}
	if pruned > 0 {
		p.logger.Info().Int64("pruned", pruned).Msg("Audit log pruned")
	}
}
