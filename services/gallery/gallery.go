package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"sjsage522/soldlistings/logger"
	"sjsage522/soldlistings/services/cache"
	"sjsage522/soldlistings/services/cloudinary"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// MediaStore lists uploaded media resources
type MediaStore interface {
	ListResources(ctx context.Context, resourceType, prefix string, maxResults int) ([]cloudinary.Resource, error)
}

// Image is one gallery entry
type Image struct {
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
	PublicID  string    `json:"publicId"`
}

// Page is one page of gallery images
type Page struct {
	Images   []Image `json:"images"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
}

// Service serves paginated screenshot listings, newest first
type Service struct {
	media      MediaStore
	cache      cache.CacheService
	prefix     string
	maxResults int
	cacheTTL   time.Duration
}

// NewService creates a gallery service. A nil cache disables caching.
func NewService(media MediaStore, cacheSvc cache.CacheService, prefix string, maxResults int, cacheTTL time.Duration) *Service {
	return &Service{
		media:      media,
		cache:      cacheSvc,
		prefix:     prefix,
		maxResults: maxResults,
		cacheTTL:   cacheTTL,
	}
}

// List returns the requested page. Out-of-range pages are empty.
func (s *Service) List(ctx context.Context, page, pageSize int) (*Page, error) {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if s.maxResults > 0 && pageSize > s.maxResults {
		pageSize = s.maxResults
	}

	images, err := s.images(ctx)
	if err != nil {
		return nil, err
	}

	// bounds are checked before multiplying so huge page numbers cannot overflow
	start := len(images)
	if page-1 <= len(images)/pageSize {
		start = min((page-1)*pageSize, len(images))
	}
	end := len(images)
	if pageSize < end-start {
		end = start + pageSize
	}

	return &Page{
		Images:   images[start:end],
		Total:    len(images),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// images returns every image under the prefix, sorted by creation time descending
func (s *Service) images(ctx context.Context) ([]Image, error) {
	log := logger.ForGallery()
	cacheKey := "gallery:" + s.prefix

	if s.cache != nil {
		data, err := s.cache.Get(cacheKey)
		if err == nil {
			var images []Image
			if err := json.Unmarshal(data, &images); err == nil {
				return images, nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			log.Debug().Err(err).Msg("Gallery cache unavailable")
		}
	}

	resources, err := s.media.ListResources(ctx, "image", s.prefix, s.maxResults)
	if err != nil {
		return nil, err
	}

	images := make([]Image, 0, len(resources))
	for _, r := range resources {
		images = append(images, Image{
			URL:       r.SecureURL,
			Timestamp: r.CreatedAt,
			PublicID:  r.PublicID,
		})
	}
	sort.SliceStable(images, func(i, j int) bool {
		return images[i].Timestamp.After(images[j].Timestamp)
	})

	if s.cache != nil && s.cacheTTL > 0 {
		if data, err := json.Marshal(images); err == nil {
			if err := s.cache.Set(cacheKey, data, s.cacheTTL); err != nil {
				log.Debug().Err(err).Msg("Failed to cache gallery listing")
			}
		}
	}

	log.Debug().Int("images", len(images)).Msg("Listed gallery images")
	return images, nil
}
