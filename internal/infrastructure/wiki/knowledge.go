package wiki

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"WhereAmI/internal/config"
	"WhereAmI/internal/domain"
	"WhereAmI/internal/ports"
)

var supportedImageTypes = []string{"jpg", "jpeg", "png"}

type entitiesResponse struct {
	Entities map[string]struct {
		Sitelinks map[string]struct {
			Title string `json:"title"`
		} `json:"sitelinks"`
	} `json:"entities"`
}

type imagesResponse struct {
	Query struct {
		Pages map[string]struct {
			Images []struct {
				Title string `json:"title"`
			} `json:"images"`
		} `json:"pages"`
	} `json:"query"`
}

type thumbnailResponse struct {
	Query struct {
		Pages []struct {
			Thumbnail *struct {
				Source string `json:"source"`
				Width  int    `json:"width"`
				Height int    `json:"height"`
			} `json:"thumbnail"`
		} `json:"pages"`
	} `json:"query"`
}

// KnowledgeBase resolves Wikidata sitelinks and collects images from both
// Wikidata and Wikipedia.
type KnowledgeBase struct {
	wikidata      apiClient
	wikipedia     apiClient
	pool          *ants.Pool
	thumbnailSize int
	logger        *slog.Logger
}

var (
	_ ports.KnowledgeBase = (*KnowledgeBase)(nil)
	_ ports.ImageSelector = (*KnowledgeBase)(nil)
)

// KnowledgeBaseConfig groups the endpoints and image settings.
type KnowledgeBaseConfig struct {
	Wikidata  config.WikiConfig
	Wikipedia config.WikiConfig
	Images    config.ImagesConfig
}

// NewKnowledgeBase resolves thumbnails on pool.
func NewKnowledgeBase(cfg KnowledgeBaseConfig, httpClient *http.Client, pool *ants.Pool, logger *slog.Logger) *KnowledgeBase {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	size := cfg.Images.ThumbnailSize
	if size <= 0 {
		size = 400
	}
	return &KnowledgeBase{
		wikidata:      newAPIClient(cfg.Wikidata.APIURL, httpClient, cfg.Wikidata.Timeout),
		wikipedia:     newAPIClient(cfg.Wikipedia.APIURL, httpClient, cfg.Wikipedia.Timeout),
		pool:          pool,
		thumbnailSize: size,
		logger:        logger,
	}
}

// ArticleTitle returns the English Wikipedia title linked from a Wikidata item.
func (k *KnowledgeBase) ArticleTitle(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", nil
	}

	query := url.Values{}
	query.Set("action", "wbgetentities")
	query.Set("format", "json")
	query.Set("props", "sitelinks")
	query.Set("ids", id)
	query.Set("sitefilter", "enwiki")

	var resp entitiesResponse
	if err := k.wikidata.get(ctx, query, &resp); err != nil {
		return "", fmt.Errorf("wikidata entity %s: %w", id, err)
	}

	entity, ok := resp.Entities[id]
	if !ok {
		k.logger.Info("no wikidata entity", "id", id)
		return "", nil
	}
	return entity.Sitelinks["enwiki"].Title, nil
}

// SelectImages lists Wikidata images first, then Wikipedia images. A source
// that fails is logged and contributes nothing.
func (k *KnowledgeBase) SelectImages(ctx context.Context, q domain.ImageQuery) ([]domain.Image, error) {
	var images []domain.Image
	if q.KnowledgeBaseID != "" {
		images = append(images, k.wikiImages(ctx, k.wikidata, q.KnowledgeBaseID)...)
	}
	if q.ArticleTitle != "" {
		images = append(images, k.wikiImages(ctx, k.wikipedia, q.ArticleTitle)...)
	}
	return images, nil
}

func (k *KnowledgeBase) wikiImages(ctx context.Context, api apiClient, title string) []domain.Image {
	query := url.Values{}
	query.Set("action", "query")
	query.Set("prop", "images")
	query.Set("format", "json")
	query.Set("titles", title)

	var resp imagesResponse
	if err := api.get(ctx, query, &resp); err != nil {
		k.logger.Warn("list images failed", "title", title, "error", err)
		return nil
	}

	keys := make([]string, 0, len(resp.Query.Pages))
	for key := range resp.Query.Pages {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var titles []string
	for _, key := range keys {
		for _, image := range resp.Query.Pages[key].Images {
			if isSupportedImage(image.Title) {
				titles = append(titles, image.Title)
			}
		}
	}

	return k.resolveThumbnails(ctx, api, titles)
}

// resolveThumbnails fetches every title concurrently; the output keeps the
// order of titles and skips those without a thumbnail.
func (k *KnowledgeBase) resolveThumbnails(ctx context.Context, api apiClient, titles []string) []domain.Image {
	results := make([]*domain.Image, len(titles))

	var wg sync.WaitGroup
	for i, title := range titles {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i] = k.thumbnail(ctx, api, title)
		}
		if k.pool == nil {
			task()
			continue
		}
		if err := k.pool.Submit(task); err != nil {
			k.logger.Warn("submit thumbnail task", "title", title, "error", err)
			wg.Done()
		}
	}
	wg.Wait()

	images := make([]domain.Image, 0, len(results))
	for _, image := range results {
		if image != nil {
			images = append(images, *image)
		}
	}
	return images
}

func (k *KnowledgeBase) thumbnail(ctx context.Context, api apiClient, title string) *domain.Image {
	query := url.Values{}
	query.Set("action", "query")
	query.Set("format", "json")
	query.Set("formatversion", "2")
	query.Set("prop", "pageimages|pageterms")
	query.Set("piprop", "thumbnail")
	query.Set("pithumbsize", strconv.Itoa(k.thumbnailSize))
	query.Set("titles", title)

	var resp thumbnailResponse
	if err := api.get(ctx, query, &resp); err != nil {
		k.logger.Warn("image url failed", "title", title, "error", err)
		return nil
	}

	for _, p := range resp.Query.Pages {
		if p.Thumbnail != nil {
			return &domain.Image{Source: p.Thumbnail.Source, Width: p.Thumbnail.Width, Height: p.Thumbnail.Height}
		}
	}
	return nil
}

func isSupportedImage(title string) bool {
	for _, fileType := range supportedImageTypes {
		if strings.HasSuffix(title, fileType) {
			return true
		}
	}
	return false
}
