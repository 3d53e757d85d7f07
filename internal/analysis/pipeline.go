package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"scenetrack/internal/annotation"
	"scenetrack/internal/config"
	"scenetrack/internal/lock"
	"scenetrack/internal/logging"
	"scenetrack/internal/queue"
	"scenetrack/internal/scene"
	"scenetrack/internal/services"
	"scenetrack/internal/services/emojidex"
	"scenetrack/internal/services/retry"
	"scenetrack/internal/stage"
	"scenetrack/internal/storage"
	"scenetrack/internal/track"
	"scenetrack/internal/trigger"
)

const (
	stageName      = "analysis"
	vttContentType = "text/vtt"
)

// Annotator runs the remote video annotation for a stored video.
type Annotator interface {
	Annotate(ctx context.Context, inputURI string) (annotation.AnnotateVideoResponse, error)
}

// Result reports the outcome of one run. Message carries the self link of
// the published label track, or a failure description.
type Result struct {
	VideoID       string       `json:"videoId"`
	Message       string       `json:"message"`
	TrackURL      string       `json:"-"`
	EmojiTrackURL string       `json:"-"`
	Scenes        int          `json:"-"`
	Skipped       int          `json:"-"`
	EmptyReason   string       `json:"-"`
	Stats         *scene.Stats `json:"-"`
}

// Pipeline turns a stored video into published caption tracks.
type Pipeline struct {
	cfg       *config.Config
	store     *storage.Store
	locker    *lock.Locker
	annotator Annotator
	emoji     track.EmojiResolver
	logger    *slog.Logger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithAnnotator replaces the annotation client.
func WithAnnotator(a Annotator) Option {
	return func(p *Pipeline) {
		if a != nil {
			p.annotator = a
		}
	}
}

// WithEmojiResolver replaces the emoji lookup.
func WithEmojiResolver(r track.EmojiResolver) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.emoji = r
		}
	}
}

// WithStore replaces the bucket store.
func WithStore(store *storage.Store) Option {
	return func(p *Pipeline) {
		if store != nil {
			p.store = store
		}
	}
}

// New builds a pipeline from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	policy := retry.DefaultPolicy()
	if cfg.Annotation.RetryAttempts > 0 {
		policy.Attempts = cfg.Annotation.RetryAttempts
	}
	p := &Pipeline{
		cfg:    cfg,
		store:  storage.New(cfg.Storage.RootDir),
		locker: lock.NewLocker(cfg.Paths.LockDir),
		annotator: annotation.NewClient(annotation.Config{
			BaseURL:      cfg.Annotation.BaseURL,
			APIKey:       cfg.Annotation.APIKey,
			Timeout:      cfg.AnnotationTimeout(),
			PollInterval: cfg.AnnotationPollInterval(),
			MaxWait:      cfg.AnnotationMaxWait(),
		}, annotation.WithRetryPolicy(policy)),
		emoji:  emojiResolver(cfg),
		logger: logging.NewComponentLogger(logger, stageName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func emojiResolver(cfg *config.Config) track.EmojiResolver {
	if !cfg.Tracks.EmojiEnabled {
		return emojidex.Disabled{}
	}
	return emojidex.NewClient(emojidex.Config{BaseURL: cfg.Tracks.EmojiBaseURL, Timeout: cfg.EmojiTimeout()})
}

// Store exposes the bucket store used for publishing.
func (p *Pipeline) Store() *storage.Store { return p.store }

// Run analyses video and publishes its tracks.
func (p *Pipeline) Run(ctx context.Context, video trigger.Video) (Result, error) {
	return p.run(ctx, video, nil)
}

// Execute runs the pipeline for a queued job and records the outcome on it.
func (p *Pipeline) Execute(ctx context.Context, job *queue.Job, progress stage.ProgressFunc) error {
	video := trigger.Video{
		ID:          job.VideoID,
		Name:        job.VideoName,
		ContentType: job.ContentType,
		Size:        fmt.Sprint(job.Size),
		Link:        job.SourceURL,
	}
	result, err := p.run(ctx, video, progress)
	job.SceneCount = result.Scenes
	job.SkippedCount = result.Skipped
	job.TrackURL = result.TrackURL
	job.EmojiTrackURL = result.EmojiTrackURL
	job.ResultMessage = result.Message
	return err
}

func (p *Pipeline) run(ctx context.Context, video trigger.Video, progress stage.ProgressFunc) (Result, error) {
	ctx = services.WithVideoID(ctx, video.ID)
	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, p.logger)
	started := time.Now()

	fail := func(marker error, op, message string, err error) (Result, error) {
		if message == "" && err != nil {
			message = err.Error()
		}
		return Result{VideoID: video.ID, Message: message}, services.Wrap(marker, stageName, op, message, err)
	}

	if strings.TrimSpace(video.ID) == "" {
		return fail(services.ErrValidation, "validate", "Video id is missing", nil)
	}
	source, err := storage.ParseURL(video.Link)
	if err != nil {
		return fail(services.ErrValidation, "resolve bucket", fmt.Sprintf("Could not deduct Bucket Name from '%s'", video.Link), err)
	}
	bucket := p.cfg.Storage.ProcessingBucket
	if bucket == "" {
		bucket = source.Bucket
	}
	if err := p.store.Bucket(ctx, bucket); err != nil {
		return fail(services.ErrConfiguration, "resolve bucket", fmt.Sprintf("Could not get Bucket '%s'", bucket), err)
	}

	handle, err := p.locker.Acquire(video.ID)
	if errors.Is(err, lock.ErrLocked) {
		return fail(services.ErrLocked, "lock", fmt.Sprintf("Video %s is already being processed", video.ID), err)
	}
	if err != nil {
		return fail(services.ErrConfiguration, "lock", "Could not create video lock", err)
	}
	defer func() {
		if err := handle.Release(); err != nil {
			logger.Warn("video lock release failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "lock_release_failed"),
				logging.String(logging.FieldErrorHint, "the lock frees when the holding process exits"),
			)
		}
	}()

	logger.Info("analysis started",
		logging.String(logging.FieldEventType, "analysis_start"),
		logging.String("source", source.String()),
		logging.String("processing_bucket", bucket),
	)

	progress.Report(ctx, queue.StatusAnnotating)
	resp, err := p.annotator.Annotate(ctx, source.String())
	if err != nil {
		switch {
		case errors.Is(err, annotation.ErrNoResults):
			return fail(services.ErrNotFound, "annotate", "Could not detect anything in "+video.ID, err)
		case errors.Is(err, context.Canceled):
			return fail(services.ErrTransient, "annotate", "Annotation interrupted", err)
		case errors.Is(err, context.DeadlineExceeded):
			return fail(services.ErrTimeout, "annotate", "Annotation timed out", err)
		default:
			return fail(services.ErrExternalService, "annotate", "", err)
		}
	}
	for _, status := range resp.Errors() {
		logging.WarnWithContext(logger, "annotation result reported an error", "annotation_partial_error",
			logging.Int("code", status.Code),
			logging.String("detail", status.Message),
			logging.String(logging.FieldImpact, "labels for part of the video may be missing"),
		)
	}

	progress.Report(ctx, queue.StatusConsolidating)
	consolidated, err := Consolidate(resp, Options{
		Threshold: p.cfg.Consolidation.ConfidenceThreshold,
		Strict:    p.cfg.Consolidation.Strict,
	})
	if err != nil {
		return Result{VideoID: video.ID, Message: err.Error()}, err
	}
	for _, skipped := range consolidated.Skipped {
		logging.WarnWithContext(logger, "annotation skipped", "annotation_skipped",
			logging.Int("index", skipped.Index),
			logging.String("label", skipped.Label),
			logging.Error(skipped.Err),
			logging.String(logging.FieldImpact, "label missing from the published track"),
		)
	}
	if consolidated.Empty() {
		logging.WarnWithContext(logger, "consolidation produced no scenes", "consolidation_empty",
			logging.String("reason", consolidated.Reason()),
			logging.String(logging.FieldErrorHint, "lower consolidation.confidence_threshold"),
			logging.String(logging.FieldImpact, "published tracks are empty"),
		)
	}

	result := Result{
		VideoID:     video.ID,
		Scenes:      len(consolidated.Scenes),
		Skipped:     len(consolidated.Skipped),
		EmptyReason: consolidated.Reason(),
		Stats:       &consolidated.Stats,
	}

	progress.Report(ctx, queue.StatusPublishing)
	labels := track.RenderVTT(consolidated.Scenes, p.cfg.Tracks.IncludeCategories)
	labelInfo, err := p.store.Write(ctx, storage.ObjectRef{Bucket: bucket, Name: trackName(video.ID, p.cfg.Tracks.LabelFile)}, []byte(labels), vttContentType)
	if err != nil {
		return fail(publishMarker(err), "publish", "Could not write label track", err)
	}
	result.TrackURL = labelInfo.SelfLink
	result.Message = labelInfo.SelfLink

	if p.cfg.Tracks.EmojiEnabled {
		cache := track.NewEmojiCache(p.emoji, p.cfg.Tracks.EmojiFallback, logger)
		emojis, err := track.EmojiTrack(ctx, consolidated.Scenes, cache)
		if err != nil {
			return fail(services.ErrTransient, "publish", "Emoji track interrupted", err)
		}
		emojiInfo, err := p.store.Write(ctx, storage.ObjectRef{Bucket: bucket, Name: trackName(video.ID, p.cfg.Tracks.EmojiFile)}, []byte(emojis), vttContentType)
		if err != nil {
			return fail(publishMarker(err), "publish", "Could not write emoji track", err)
		}
		result.EmojiTrackURL = emojiInfo.SelfLink
		logger.Debug("emoji track rendered",
			logging.Int("lookups", cache.Lookups()),
			logging.Int("lookup_failures", cache.Failures()),
		)
	}

	if p.cfg.Storage.ArchiveSource && p.cfg.Storage.ArchiveBucket != "" && p.cfg.Storage.ArchiveBucket != source.Bucket {
		p.archive(ctx, logger, source)
	}

	logger.Info("analysis completed",
		logging.String(logging.FieldEventType, "analysis_complete"),
		logging.Int("scenes", result.Scenes),
		logging.Int("skipped", result.Skipped),
		logging.Int("candidates", consolidated.Stats.Candidates),
		logging.Int("raised", consolidated.Stats.Raised),
		logging.String("track", result.TrackURL),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

// archive moves the source into the archive bucket. Tracks are already
// published, so a failure only warns.
func (p *Pipeline) archive(ctx context.Context, logger *slog.Logger, source storage.ObjectRef) {
	target := storage.ObjectRef{Bucket: p.cfg.Storage.ArchiveBucket, Name: source.Name}
	if _, err := p.store.Move(ctx, source, target); err != nil {
		logging.WarnWithContext(logger, "source archive failed", "archive_failed",
			logging.Error(err),
			logging.String("source", source.String()),
			logging.String("target", target.String()),
			logging.String(logging.FieldErrorHint, "check the archive bucket exists and is writable"),
			logging.String(logging.FieldImpact, "source video stays in the input bucket"),
		)
		return
	}
	logger.Info("source archived", logging.String("target", target.String()))
}

func publishMarker(err error) error {
	if errors.Is(err, storage.ErrInvalidURL) {
		return services.ErrValidation
	}
	return services.ErrTransient
}

func trackName(videoID, file string) string {
	return path.Join(videoID, file)
}
