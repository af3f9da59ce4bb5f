// File: internal/provider/service.go
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"quickfix_backend/internal/common"
	"quickfix_backend/internal/identity"
	platformES "quickfix_backend/internal/platform/elasticsearch"
	"quickfix_backend/internal/store"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Service is the provider registry: it resolves principals to provider
// profiles (one-shot and live), registers new providers, and serves the
// public directory.
type Service interface {
	// Register creates the provider profile for the authenticated principal.
	// A principal registers at most once.
	Register(ctx context.Context, principal *identity.Principal, req RegisterProviderRequest) (*Profile, error)
	// Resolve maps a principal to its provider profile. Returns (nil, nil)
	// when the principal is not a provider.
	Resolve(ctx context.Context, principalUID string) (*Profile, error)
	// Watch keeps the resolution live for the duration of a session scope:
	// registration mid-session flips the callback from nil to a profile.
	Watch(ctx context.Context, principalUID string, onChange func(*Profile)) (store.Subscription, error)
	GetByID(ctx context.Context, id string) (*Profile, error)
	// Search filters the directory by category and free-text keyword.
	Search(ctx context.Context, query SearchQuery) ([]Profile, *common.Pagination, error)
	// ReindexAll pushes every profile into the Elasticsearch directory index.
	ReindexAll(ctx context.Context) (int, error)
}

// ServiceImplementation implements the provider Service interface.
type ServiceImplementation struct {
	repo   Repository
	es     *platformES.ESClientWrapper
	logger *zap.Logger
}

// NewService creates a new provider service. es may be nil; the directory
// then falls back to scanning the document store.
func NewService(repo Repository, es *platformES.ESClientWrapper, logger *zap.Logger) Service {
	return &ServiceImplementation{repo: repo, es: es, logger: logger.Named("ProviderService")}
}

func (s *ServiceImplementation) Register(ctx context.Context, principal *identity.Principal, req RegisterProviderRequest) (*Profile, error) {
	profile := &Profile{
		UserID:          principal.UID,
		Name:            strings.TrimSpace(req.Name),
		Phone:           strings.TrimSpace(req.Phone),
		Category:        strings.TrimSpace(req.Category),
		Location:        strings.TrimSpace(req.Location),
		ExperienceYears: req.ExperienceYears,
		Description:     strings.TrimSpace(req.Description),
		CreatedAt:       time.Now(),
	}
	if details := common.RequireNonBlank(map[string]string{
		"name":        profile.Name,
		"phone":       profile.Phone,
		"category":    profile.Category,
		"location":    profile.Location,
		"description": profile.Description,
	}); details != nil {
		return nil, common.NewValidationAPIError(details)
	}

	existing, err := s.Resolve(ctx, principal.UID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, common.ErrConflict.WithDetails("A provider profile is already registered for this account.")
	}
	profile.Slug = slug.Make(profile.Name)

	id, err := s.repo.Create(ctx, profile)
	if err != nil {
		return nil, err
	}
	profile.ID = id

	s.indexProfile(ctx, profile)
	s.logger.Info("Registered provider profile",
		zap.String("providerID", profile.ID),
		zap.String("uid", principal.UID),
		zap.String("category", profile.Category),
	)
	return profile, nil
}

func (s *ServiceImplementation) Resolve(ctx context.Context, principalUID string) (*Profile, error) {
	profile, err := s.repo.FindByUserID(ctx, principalUID)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == common.ErrNotFound.StatusCode {
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}

func (s *ServiceImplementation) Watch(ctx context.Context, principalUID string, onChange func(*Profile)) (store.Subscription, error) {
	return s.repo.WatchByUserID(ctx, principalUID, onChange)
}

func (s *ServiceImplementation) GetByID(ctx context.Context, id string) (*Profile, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ServiceImplementation) Search(ctx context.Context, query SearchQuery) ([]Profile, *common.Pagination, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = 20
	}

	if s.es != nil {
		profiles, pagination, err := s.searchElasticsearch(ctx, query)
		if err == nil {
			return profiles, pagination, nil
		}
		s.logger.Warn("Elasticsearch directory search failed, falling back to store scan", zap.Error(err))
	}
	return s.searchStore(ctx, query)
}

// searchStore filters the directory in memory after a one-shot store query:
// category is an exact match (case-insensitive), the keyword matches name or
// location substrings.
func (s *ServiceImplementation) searchStore(ctx context.Context, query SearchQuery) ([]Profile, *common.Pagination, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, nil, err
	}

	filtered := make([]Profile, 0, len(all))
	keyword := strings.ToLower(strings.TrimSpace(query.Query))
	category := strings.ToLower(strings.TrimSpace(query.Category))
	for _, p := range all {
		if category != "" && strings.ToLower(p.Category) != category {
			continue
		}
		if keyword != "" &&
			!strings.Contains(strings.ToLower(p.Name), keyword) &&
			!strings.Contains(strings.ToLower(p.Location), keyword) {
			continue
		}
		filtered = append(filtered, p)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].ExperienceYears != filtered[j].ExperienceYears {
			return filtered[i].ExperienceYears > filtered[j].ExperienceYears
		}
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	pagination := common.NewPagination(int64(len(filtered)), query.Page, query.PageSize)
	start := (query.Page - 1) * query.PageSize
	if start >= len(filtered) {
		return []Profile{}, pagination, nil
	}
	end := start + query.PageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], pagination, nil
}

func (s *ServiceImplementation) searchElasticsearch(ctx context.Context, query SearchQuery) ([]Profile, *common.Pagination, error) {
	must := make([]map[string]interface{}, 0, 2)
	if q := strings.TrimSpace(query.Query); q != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q,
				"fields": []string{"name", "location", "description"},
			},
		})
	}
	if c := strings.TrimSpace(query.Category); c != "" {
		must = append(must, map[string]interface{}{
			"match": map[string]interface{}{"category": c},
		})
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
		"sort": []map[string]interface{}{
			{"experience_years": map[string]interface{}{"order": "desc"}},
			{"created_at": map[string]interface{}{"order": "desc"}},
		},
		"from": (query.Page - 1) * query.PageSize,
		"size": query.PageSize,
	}
	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return nil, nil, err
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(platformES.ProvidersIndexName),
		s.es.Search.WithBody(strings.NewReader(string(bodyJSON))),
	)
	if err != nil {
		return nil, nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, nil, fmt.Errorf("directory search returned status %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string          `json:"_id"`
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, nil, fmt.Errorf("failed to decode directory search response: %w", err)
	}

	profiles := make([]Profile, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		var doc esProfileDoc
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			s.logger.Warn("Skipping malformed directory hit", zap.String("id", hit.ID), zap.Error(err))
			continue
		}
		profiles = append(profiles, doc.toProfile(hit.ID))
	}
	return profiles, common.NewPagination(parsed.Hits.Total.Value, query.Page, query.PageSize), nil
}

// ReindexAll bulk-indexes every profile into the directory index.
func (s *ServiceImplementation) ReindexAll(ctx context.Context) (int, error) {
	if s.es == nil {
		return 0, fmt.Errorf("elasticsearch is not configured")
	}

	profiles, err := s.repo.All(ctx)
	if err != nil {
		return 0, err
	}
	if len(profiles) == 0 {
		return 0, nil
	}

	var bulkBody strings.Builder
	for i := range profiles {
		p := &profiles[i]
		docJSON, err := json.Marshal(newESProfileDoc(p))
		if err != nil {
			s.logger.Warn("Skipping profile that failed to marshal", zap.String("providerID", p.ID), zap.Error(err))
			continue
		}
		fmt.Fprintf(&bulkBody, `{ "index" : { "_index" : %q, "_id" : %q } }%s`, platformES.ProvidersIndexName, p.ID, "\n")
		bulkBody.Write(docJSON)
		bulkBody.WriteString("\n")
	}

	req := esapi.BulkRequest{Body: strings.NewReader(bulkBody.String())}
	res, err := req.Do(ctx, s.es.Client)
	if err != nil {
		return 0, fmt.Errorf("bulk reindex request failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("bulk reindex returned status %s", res.Status())
	}
	return len(profiles), nil
}

// indexProfile mirrors a single profile into the directory index.
// Best-effort: the store remains the source of truth and the cron reindex
// catches anything missed here.
func (s *ServiceImplementation) indexProfile(ctx context.Context, p *Profile) {
	if s.es == nil {
		return
	}
	docJSON, err := json.Marshal(newESProfileDoc(p))
	if err != nil {
		s.logger.Warn("Failed to marshal profile for indexing", zap.String("providerID", p.ID), zap.Error(err))
		return
	}
	req := esapi.IndexRequest{
		Index:      platformES.ProvidersIndexName,
		DocumentID: p.ID,
		Body:       strings.NewReader(string(docJSON)),
	}
	res, err := req.Do(ctx, s.es.Client)
	if err != nil {
		s.logger.Warn("Failed to index provider profile", zap.String("providerID", p.ID), zap.Error(err))
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		s.logger.Warn("Indexing provider profile returned an error",
			zap.String("providerID", p.ID),
			zap.String("status", res.Status()),
		)
	}
}

// esProfileDoc is the directory index document shape.
type esProfileDoc struct {
	UserID          string    `json:"user_id"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	Category        string    `json:"category"`
	Location        string    `json:"location"`
	ExperienceYears int       `json:"experience_years"`
	Description     string    `json:"description"`
	Slug            string    `json:"slug"`
	CreatedAt       time.Time `json:"created_at"`
}

func newESProfileDoc(p *Profile) esProfileDoc {
	return esProfileDoc{
		UserID:          p.UserID,
		Name:            p.Name,
		Phone:           p.Phone,
		Category:        p.Category,
		Location:        p.Location,
		ExperienceYears: p.ExperienceYears,
		Description:     p.Description,
		Slug:            p.Slug,
		CreatedAt:       p.CreatedAt,
	}
}

func (d esProfileDoc) toProfile(id string) Profile {
	return Profile{
		ID:              id,
		UserID:          d.UserID,
		Name:            d.Name,
		Phone:           d.Phone,
		Category:        d.Category,
		Location:        d.Location,
		ExperienceYears: d.ExperienceYears,
		Description:     d.Description,
		Slug:            d.Slug,
		CreatedAt:       d.CreatedAt,
	}
}
