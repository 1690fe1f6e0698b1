package ports

import (
	"context"

	"WhereAmI/internal/domain"
)

// PlaceResolver reverse-geocodes a coordinate. A nil place with a nil error means no match.
type PlaceResolver interface {
	ResolvePlace(ctx context.Context, latitude, longitude float64) (*domain.Place, error)
}

// KnowledgeBase maps a knowledge-base id to its encyclopedia article title.
// An empty title with a nil error means the id has no article.
type KnowledgeBase interface {
	ArticleTitle(ctx context.Context, id string) (string, error)
}

// ArticleSource fetches raw encyclopedia pages.
type ArticleSource interface {
	ArticleByTitle(ctx context.Context, title string) (domain.RawArticle, error)
	ArticleNear(ctx context.Context, coords string) (domain.RawArticle, error)
}

// ArticleTransformer rewrites a raw page into speakable segments.
type ArticleTransformer interface {
	Transform(titleHint string, raw domain.RawArticle) (domain.Article, error)
}

// ImageSelector lists images for a place, best first.
type ImageSelector interface {
	SelectImages(ctx context.Context, query domain.ImageQuery) ([]domain.Image, error)
}

// Synthesizer turns SSML into audio. Nil audio with a nil error means no stream was produced.
type Synthesizer interface {
	Synthesize(ctx context.Context, ssml, voiceID string) ([]byte, error)
}

// NarrationStore caches synthesized narrations by filename.
type NarrationStore interface {
	// Lookup returns the URL of an existing narration, or "" when absent.
	Lookup(ctx context.Context, filename string) (string, error)
	Store(ctx context.Context, filename string, audio []byte) (string, error)
}

// MetricsRecorder persists one usage record per request.
type MetricsRecorder interface {
	Record(ctx context.Context, record domain.MetricsRecord) error
}

// RateLimiter decides whether a client may issue another request.
type RateLimiter interface {
	Allow(ctx context.Context, clientID string) (bool, error)
}
