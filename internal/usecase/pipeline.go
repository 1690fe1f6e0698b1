package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"WhereAmI/internal/domain"
	"WhereAmI/internal/ports"
)

const (
	defaultVoice   = "Brian"
	metricsTimeout = 5 * time.Second
)

var voiceExpr = regexp.MustCompile(`[^\w\s]`)

// SpeakRequest is what a caller asks for: a coordinate and a voice.
type SpeakRequest struct {
	InstanceID string
	Latitude   float64
	Longitude  float64
	VoiceID    string
}

// SpeakResult is the externally visible outcome of a successful request.
type SpeakResult struct {
	Locality  string           `json:"locality"`
	StateName string           `json:"stateName"`
	SpeechURL string           `json:"speechUrl"`
	Thumbnail string           `json:"thumbnail,omitempty"`
	PageURL   string           `json:"pageUrl"`
	Sections  []domain.Segment `json:"sections"`
	CacheHit  bool             `json:"cacheHit"`
	Filename  string           `json:"filename"`
}

// SpeakInput is the state handed to the first stage.
type SpeakInput struct {
	VoiceID   string
	Latitude  float64
	Longitude float64
}

// PlaceState adds the resolved place.
type PlaceState struct {
	SpeakInput
	Place domain.Place
}

// ArticleState adds the speakable article.
type ArticleState struct {
	PlaceState
	Article domain.Article
}

// ImageState adds the thumbnail, if one was found.
type ImageState struct {
	ArticleState
	Thumbnail *domain.Image
}

// NarrationState adds the narration location.
type NarrationState struct {
	ImageState
	SpeechURL string
	CacheHit  bool
	Filename  string
}

// PipelineDeps wires all driven adapters into the speak pipeline.
// Images and Metrics are optional.
type PipelineDeps struct {
	Places       ports.PlaceResolver
	Knowledge    ports.KnowledgeBase
	Articles     ports.ArticleSource
	Transformer  ports.ArticleTransformer
	Images       ports.ImageSelector
	Synthesizer  ports.Synthesizer
	Narrations   ports.NarrationStore
	Metrics      ports.MetricsRecorder
	Logger       *slog.Logger
	DefaultVoice string
	Now          func() time.Time
	NewID        func() string
}

// Pipeline resolves, describes, illustrates and narrates a coordinate.
type Pipeline struct {
	places       ports.PlaceResolver
	knowledge    ports.KnowledgeBase
	articles     ports.ArticleSource
	transformer  ports.ArticleTransformer
	images       ports.ImageSelector
	synthesizer  ports.Synthesizer
	narrations   ports.NarrationStore
	metrics      ports.MetricsRecorder
	logger       *slog.Logger
	defaultVoice string
	now          func() time.Time
	newID        func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		places:       deps.Places,
		knowledge:    deps.Knowledge,
		articles:     deps.Articles,
		transformer:  deps.Transformer,
		images:       deps.Images,
		synthesizer:  deps.Synthesizer,
		narrations:   deps.Narrations,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		defaultVoice: deps.DefaultVoice,
		now:          deps.Now,
		newID:        deps.NewID,
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	if p.defaultVoice == "" {
		p.defaultVoice = defaultVoice
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	return p
}

// Speak runs the four stages in order, stopping at the first failure, and
// writes exactly one metrics record. A returned error is a *PipelineError.
func (p *Pipeline) Speak(ctx context.Context, req SpeakRequest) (SpeakResult, error) {
	voiceID := p.sanitizeVoice(req.VoiceID)
	logger := p.logger.With("instance_id", req.InstanceID, "voice", voiceID)
	logger.Info("speak started", "latitude", req.Latitude, "longitude", req.Longitude)

	start := Ok(SpeakInput{VoiceID: voiceID, Latitude: req.Latitude, Longitude: req.Longitude})
	placed := Then(p.resolvePlace)(ctx, start)
	described := Then(p.gatherArticle)(ctx, placed)
	illustrated := Then(p.gatherImages)(ctx, described)
	narrated := Then(p.narrate)(ctx, illustrated)

	record := domain.MetricsRecord{
		ID:                  p.newID(),
		InstanceID:          req.InstanceID,
		LocationRequestTime: p.now().UnixMilli(),
		Latitude:            req.Latitude,
		Longitude:           req.Longitude,
		Voice:               voiceID,
	}

	if perr := narrated.Err; perr != nil {
		record.LocationMiss = perr.LocationMiss()
		p.recordMetrics(ctx, logger, record)
		logger.Warn("speak failed", "status", perr.Status, "kind", perr.Kind, "error", perr)
		return SpeakResult{}, perr
	}

	state := narrated.State
	record.Locality = &state.Place.Locality
	record.StateName = &state.Place.State
	record.Filename = &state.Filename
	record.CacheHit = &state.CacheHit
	p.recordMetrics(ctx, logger, record)

	result := SpeakResult{
		Locality:  state.Place.Locality,
		StateName: state.Place.State,
		SpeechURL: state.SpeechURL,
		PageURL:   state.Article.PageURL,
		Sections:  state.Article.Sections,
		CacheHit:  state.CacheHit,
		Filename:  state.Filename,
	}
	if state.Thumbnail != nil {
		result.Thumbnail = state.Thumbnail.Source
	}

	logger.Info("speak finished", "locality", result.Locality, "cache_hit", result.CacheHit)
	return result, nil
}

func (p *Pipeline) sanitizeVoice(voiceID string) string {
	voiceID = voiceExpr.ReplaceAllString(voiceID, "")
	if voiceID == "" {
		return p.defaultVoice
	}
	return voiceID
}

// recordMetrics never fails the request; the write outlives a cancelled caller.
func (p *Pipeline) recordMetrics(ctx context.Context, logger *slog.Logger, record domain.MetricsRecord) {
	if p.metrics == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsTimeout)
	defer cancel()

	if err := p.metrics.Record(ctx, record); err != nil {
		logger.Error("write metrics", "error", err)
	}
}

func (p *Pipeline) resolvePlace(ctx context.Context, in SpeakInput) Result[PlaceState] {
	place, err := p.places.ResolvePlace(ctx, in.Latitude, in.Longitude)
	if err != nil {
		return Fail[PlaceState](upstreamError("getting place", err))
	}
	if place == nil {
		return Fail[PlaceState](notFoundError(
			fmt.Sprintf("nothing found for latitude: %v, longitude: %v", in.Latitude, in.Longitude),
		))
	}
	return Ok(PlaceState{SpeakInput: in, Place: *place})
}

func (p *Pipeline) gatherArticle(ctx context.Context, in PlaceState) Result[ArticleState] {
	title := p.articleTitle(ctx, in.Place)

	raw, err := p.rawArticle(ctx, title, in)
	if err != nil {
		return Fail[ArticleState](serverError("getting place information", err))
	}
	if raw.Missing || raw.Extract == "" {
		return Fail[ArticleState](notFoundError(fmt.Sprintf("no article found for %s", title)))
	}

	article, err := p.transformer.Transform(title, raw)
	if err != nil {
		return Fail[ArticleState](transformError(err))
	}
	return Ok(ArticleState{PlaceState: in, Article: article})
}

// articleTitle prefers the knowledge-base sitelink over "{locality}, {state}".
func (p *Pipeline) articleTitle(ctx context.Context, place domain.Place) string {
	if place.Wikidata != "" && p.knowledge != nil {
		title, err := p.knowledge.ArticleTitle(ctx, place.Wikidata)
		if err != nil {
			p.logger.Warn("article title lookup failed", "wikidata", place.Wikidata, "error", err)
		}
		if title != "" {
			return title
		}
	}
	return place.Locality + ", " + place.State
}

// rawArticle fetches by title, then by state name when the title has no
// page. A transport failure switches to a geosearch around the coordinate.
func (p *Pipeline) rawArticle(ctx context.Context, title string, in PlaceState) (domain.RawArticle, error) {
	raw, err := p.articles.ArticleByTitle(ctx, title)
	if err == nil && raw.Missing && in.Place.State != "" {
		p.logger.Info("locality not found, trying state", "title", title, "state", in.Place.State)
		raw, err = p.articles.ArticleByTitle(ctx, in.Place.State)
	}
	if err == nil {
		return raw, nil
	}

	p.logger.Warn("article by title failed, searching near", "title", title, "error", err)
	return p.articles.ArticleNear(ctx, fmt.Sprintf("%v|%v", in.Latitude, in.Longitude))
}

func (p *Pipeline) gatherImages(ctx context.Context, in ArticleState) Result[ImageState] {
	out := ImageState{ArticleState: in}
	if p.images == nil {
		return Ok(out)
	}

	images, err := p.images.SelectImages(ctx, domain.ImageQuery{
		KnowledgeBaseID: in.Place.Wikidata,
		ArticleTitle:    in.Article.LocationText,
	})
	if err != nil {
		return Fail[ImageState](serverError("getting images", err))
	}

	// Only the first image is used.
	if len(images) > 0 {
		first := images[0]
		out.Thumbnail = &first
	}
	return Ok(out)
}

func (p *Pipeline) narrate(ctx context.Context, in ImageState) Result[NarrationState] {
	filename := narrationFilename(in.Article.LocationText, in.VoiceID)

	cached, err := p.narrations.Lookup(ctx, filename)
	if err != nil {
		p.logger.Warn("narration lookup failed, synthesizing", "filename", filename, "error", err)
	}
	if err == nil && cached != "" {
		p.logger.Info("using cached narration", "filename", filename)
		return Ok(NarrationState{ImageState: in, SpeechURL: cached, CacheHit: true, Filename: filename})
	}

	p.logger.Info("synthesizing narration", "filename", filename, "characters", len(in.Article.Text))
	audio, err := p.synthesizer.Synthesize(ctx, "<speak>"+in.Article.Text+"</speak>", in.VoiceID)
	if err != nil {
		return Fail[NarrationState](serverError("synthesizing speech", err))
	}

	var speechURL string
	if audio != nil {
		speechURL, err = p.narrations.Store(ctx, filename, audio)
		if err != nil {
			return Fail[NarrationState](serverError("storing speech", err))
		}
	}

	return Ok(NarrationState{ImageState: in, SpeechURL: speechURL, CacheHit: false, Filename: filename})
}

// narrationFilename drops the first ", " so "Perth, Western Australia" and
// voice "Amy" give "PerthWestern AustraliaAmy.mp3".
func narrationFilename(locationText, voiceID string) string {
	return strings.Replace(locationText, ", ", "", 1) + voiceID + ".mp3"
}
