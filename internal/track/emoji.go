package track

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"scenetrack/internal/logging"
	"scenetrack/internal/scene"
)

// DefaultFallbackEmoji stands in for labels without a known emoji.
const DefaultFallbackEmoji = "🤷"

// EmojiResolver looks up an emoji for a search term. It returns "" when the
// term has no emoji.
type EmojiResolver interface {
	Emoji(ctx context.Context, term string) (string, error)
}

// EmojiResolverFunc adapts a function to EmojiResolver.
type EmojiResolverFunc func(ctx context.Context, term string) (string, error)

func (f EmojiResolverFunc) Emoji(ctx context.Context, term string) (string, error) {
	return f(ctx, term)
}

// EmojiCache memoizes lookups for a single rendering. Each distinct label is
// resolved once: the label first, then its categories in order, then the
// fallback glyph. Not safe for concurrent use.
type EmojiCache struct {
	resolver EmojiResolver
	fallback string
	logger   *slog.Logger
	byLabel  map[string]string
	lookups  int
	failures int
}

// NewEmojiCache returns a cache over resolver. An empty fallback selects
// DefaultFallbackEmoji. A nil resolver always falls back.
func NewEmojiCache(resolver EmojiResolver, fallback string, logger *slog.Logger) *EmojiCache {
	if strings.TrimSpace(fallback) == "" {
		fallback = DefaultFallbackEmoji
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &EmojiCache{
		resolver: resolver,
		fallback: fallback,
		logger:   logger,
		byLabel:  make(map[string]string),
	}
}

// Lookups reports how many resolver calls were made.
func (c *EmojiCache) Lookups() int { return c.lookups }

// Failures reports how many resolver calls failed.
func (c *EmojiCache) Failures() int { return c.failures }

// Resolve returns the emoji for an entity. Only context cancellation is
// returned as an error; other lookup failures count as misses.
func (c *EmojiCache) Resolve(ctx context.Context, e scene.SceneEntity) (string, error) {
	if emoji, ok := c.byLabel[e.Label()]; ok {
		return emoji, nil
	}
	terms := []string{e.Label()}
	for _, cat := range e.Categories() {
		terms = append(terms, cat.Description)
	}
	emoji := c.fallback
	for _, term := range terms {
		found, err := c.lookup(ctx, term)
		if err != nil {
			return "", err
		}
		if found != "" {
			emoji = found
			break
		}
	}
	c.byLabel[e.Label()] = emoji
	return emoji, nil
}

func (c *EmojiCache) lookup(ctx context.Context, term string) (string, error) {
	if c.resolver == nil || strings.TrimSpace(term) == "" {
		return "", nil
	}
	c.lookups++
	emoji, err := c.resolver.Emoji(ctx, term)
	if err == nil {
		return emoji, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
	}
	c.failures++
	logging.WarnWithContext(logging.WithContext(ctx, c.logger), "emoji lookup failed; using fallback", "emoji_lookup_failed",
		logging.String("term", term),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check tracks.emoji_base_url and network access"),
		logging.String(logging.FieldImpact, "emoji track shows the fallback glyph for this label"),
	)
	return "", nil
}

// EmojiLine renders a scene cue with one emoji per entity.
func EmojiLine(ctx context.Context, s *scene.Scene, cache *EmojiCache) (string, error) {
	entities := s.Entities()
	parts := make([]string, len(entities))
	for i, e := range entities {
		emoji, err := cache.Resolve(ctx, e)
		if err != nil {
			return "", err
		}
		parts[i] = emoji
	}
	return cue(s, strings.Join(parts, entitySeparator)), nil
}

// EmojiTrack renders the emoji track of scenes as WebVTT.
func EmojiTrack(ctx context.Context, scenes []*scene.Scene, cache *EmojiCache) (string, error) {
	lines := make([]string, 0, len(scenes))
	for _, s := range scenes {
		line, err := EmojiLine(ctx, s, cache)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}
	return vttHeader + strings.Join(lines, "\n"), nil
}
