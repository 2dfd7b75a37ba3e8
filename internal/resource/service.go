package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/oredesk/oredesk/internal/api"
	"github.com/oredesk/oredesk/internal/audit"
	"github.com/oredesk/oredesk/internal/session"
)

// Service executes catalog operations through the scope-bound API clients
// and records every mutation in the local audit log.
type Service struct {
	catalog  *Catalog
	clients  map[session.Scope]*api.Client
	store    session.Store
	recorder *audit.Recorder
	logger   zerolog.Logger
}

// NewService creates the resource service
func NewService(catalog *Catalog, userClient, adminClient *api.Client, store session.Store, recorder *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		catalog: catalog,
		clients: map[session.Scope]*api.Client{
			session.ScopeUser:  userClient,
			session.ScopeAdmin: adminClient,
		},
		store:    store,
		recorder: recorder,
		logger:   logger,
	}
}

// Catalog returns the loaded screen catalog
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

func (s *Service) client(scope session.Scope) *api.Client {
	return s.clients[scope]
}

// actor is the best-effort identity stamped on audit entries
func (s *Service) actor(scope session.Scope) string {
	sess, err := s.store.Read(scope)
	if err != nil || sess == nil {
		return ""
	}
	if email := sess.ProfileField("email"); email != "" {
		return email
	}
	return sess.ProfileField("name")
}

// ListResult is one page of a resource collection
type ListResult struct {
	Items []map[string]any
	Page  api.Page
}

// List fetches one page, passing only declared filters through as query
// parameters. Undecodable rows are skipped, not fatal.
func (s *Service) List(ctx context.Context, def *Definition, filters url.Values, page int) (*ListResult, error) {
	if !def.Allows(OpList) {
		return nil, fmt.Errorf("resource %q does not allow listing", def.Name)
	}

	query := url.Values{}
	for key := range filters {
		if def.FilterAllowed(key) && filters.Get(key) != "" {
			query.Set(key, filters.Get(key))
		}
	}
	if page > 1 {
		query.Set("page", strconv.Itoa(page))
	}

	raw, err := s.client(def.Scope).Get(ctx, def.Path, query)
	if err != nil {
		return nil, err
	}

	rows, pagination := api.UnwrapList(raw)
	items := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		var item map[string]any
		if err := json.Unmarshal(row, &item); err != nil {
			s.logger.Warn().Err(err).Str("resource", def.Name).Msg("Skipping undecodable list row")
			continue
		}
		items = append(items, item)
	}

	return &ListResult{Items: items, Page: pagination}, nil
}

// Get fetches a single item for edit prefill
func (s *Service) Get(ctx context.Context, def *Definition, id string) (map[string]any, error) {
	raw, err := s.client(def.Scope).Get(ctx, def.Path+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var item map[string]any
	if err := json.Unmarshal(api.UnwrapItem(raw), &item); err != nil {
		return nil, fmt.Errorf("failed to decode %s item: %w", def.Name, err)
	}
	return item, nil
}

// Create submits a new item
func (s *Service) Create(ctx context.Context, def *Definition, form map[string]any) error {
	if !def.Allows(OpCreate) {
		return fmt.Errorf("resource %q does not allow create", def.Name)
	}

	_, err := s.client(def.Scope).Post(ctx, def.Path, form)
	s.recorder.Record(def.Scope, s.actor(def.Scope), OpCreate, def.Name, "", err)
	return err
}

// Update replaces fields on an existing item
func (s *Service) Update(ctx context.Context, def *Definition, id string, form map[string]any) error {
	if !def.Allows(OpUpdate) {
		return fmt.Errorf("resource %q does not allow update", def.Name)
	}

	_, err := s.client(def.Scope).Put(ctx, def.Path+"/"+url.PathEscape(id), form)
	s.recorder.Record(def.Scope, s.actor(def.Scope), OpUpdate, def.Name, id, err)
	return err
}

// Delete removes an item
func (s *Service) Delete(ctx context.Context, def *Definition, id string) error {
	if !def.Allows(OpDelete) {
		return fmt.Errorf("resource %q does not allow delete", def.Name)
	}

	_, err := s.client(def.Scope).Delete(ctx, def.Path+"/"+url.PathEscape(id))
	s.recorder.Record(def.Scope, s.actor(def.Scope), OpDelete, def.Name, id, err)
	return err
}

// Toggle flips one field through the declared dedicated endpoint
func (s *Service) Toggle(ctx context.Context, def *Definition, id, toggleName string) error {
	if !def.Allows(OpToggle) {
		return fmt.Errorf("resource %q does not allow toggle", def.Name)
	}
	toggle, ok := def.FindToggle(toggleName)
	if !ok {
		return fmt.Errorf("resource %q has no toggle %q", def.Name, toggleName)
	}

	_, err := s.client(def.Scope).Post(ctx, def.Path+"/"+url.PathEscape(id)+toggle.Path, nil)
	s.recorder.Record(def.Scope, s.actor(def.Scope), OpToggle+":"+toggleName, def.Name, id, err)
	return err
}
