// Package portfolio serves the latest showcase projects from the document store.
package portfolio

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/byteaxis/byteaxis-api/internal/lock"
	"github.com/byteaxis/byteaxis-api/internal/store"
)

// ProjectsQuery selects the nine most recent projects with their image urls.
const ProjectsQuery = `*[_type == "project"] | order(_createdAt desc)[0...9]{
  _id,
  title,
  category,
  coverImage{asset->{url}},
  gallery[]{asset->{url}}
}`

const (
	cacheKey   = "portfolio:projects:v1"
	refreshKey = "portfolio:projects:refresh"
	refreshTTL = 10 * time.Second
)

// Project is a showcase entry ready for the gallery.
type Project struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Category string   `json:"category"`
	Cover    string   `json:"cover"`
	Images   []string `json:"images"`
}

type assetRef struct {
	Asset *struct {
		URL string `json:"url"`
	} `json:"asset"`
}

func (a *assetRef) url() string {
	if a == nil || a.Asset == nil {
		return ""
	}
	return strings.TrimSpace(a.Asset.URL)
}

type projectDoc struct {
	ID         string     `json:"_id"`
	Title      string     `json:"title"`
	Category   string     `json:"category"`
	CoverImage *assetRef  `json:"coverImage"`
	Gallery    []assetRef `json:"gallery"`
}

// Service loads projects through an optional cache.
type Service struct {
	reader store.Reader
	cache  *Cache
	locker *lock.Locker
	logger zerolog.Logger
}

// NewService wires a Service. cache may be nil.
func NewService(reader store.Reader, cache *Cache, logger zerolog.Logger) *Service {
	return &Service{reader: reader, cache: cache, logger: logger}
}

// WithRefreshLock makes cache misses refill under l, so concurrent instances
// issue a single store query.
func (s *Service) WithRefreshLock(l *lock.Locker) *Service {
	s.locker = l
	return s
}

// Projects returns the showcase list. Store failures yield an empty list so
// the site can fall back to its static gallery.
func (s *Service) Projects(ctx context.Context) []Project {
	if projects, ok := s.cached(ctx); ok {
		return projects
	}
	if !s.locker.Enabled() || !s.cache.enabled() {
		return s.load(ctx)
	}

	var projects []Project
	err := s.locker.WithLock(ctx, refreshKey, refreshTTL, func(ctx context.Context) error {
		if hit, ok := s.cached(ctx); ok {
			projects = hit
			return nil
		}
		projects = s.load(ctx)
		return nil
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn().Ctx(ctx).Err(err).Msg("portfolio refresh lock failed")
		}
		return s.load(ctx)
	}
	return projects
}

func (s *Service) cached(ctx context.Context) ([]Project, bool) {
	var cached []Project
	ok, err := s.cache.GetJSON(ctx, cacheKey, &cached)
	if err != nil {
		s.logger.Warn().Ctx(ctx).Err(err).Msg("portfolio cache read failed")
		return nil, false
	}
	return cached, ok
}

func (s *Service) load(ctx context.Context) []Project {
	var docs []projectDoc
	if err := s.reader.Query(ctx, ProjectsQuery, nil, &docs); err != nil {
		s.logger.Warn().Ctx(ctx).Err(err).Msg("portfolio query failed")
		return []Project{}
	}
	projects := mapProjects(docs)
	if err := s.cache.SetJSON(ctx, cacheKey, projects); err != nil {
		s.logger.Warn().Ctx(ctx).Err(err).Msg("portfolio cache write failed")
	}
	return projects
}

func mapProjects(docs []projectDoc) []Project {
	out := make([]Project, 0, len(docs))
	for _, doc := range docs {
		cover := doc.CoverImage.url()
		images := make([]string, 0, len(doc.Gallery))
		for i := range doc.Gallery {
			if u := doc.Gallery[i].url(); u != "" {
				images = append(images, u)
			}
		}
		if len(images) == 0 && cover != "" {
			images = append(images, cover)
		}
		if cover == "" && len(images) > 0 {
			cover = images[0]
		}
		if cover == "" {
			continue
		}
		category := strings.TrimSpace(doc.Category)
		if category == "" {
			category = "Project"
		}
		out = append(out, Project{
			ID:       doc.ID,
			Title:    doc.Title,
			Category: category,
			Cover:    cover,
			Images:   images,
		})
	}
	return out
}
