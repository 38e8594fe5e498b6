package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zenithlabs/zenith-api/internal/models"
	"go.uber.org/zap"
)

// DefaultBriefTTL is how long a cached brief is served before a
// non-forced request regenerates it.
const DefaultBriefTTL = time.Hour

const (
	briefRecommendationCount = 3
	briefQuestionCount       = 3
	// BriefQuestionMarker prefixes each example question line in a brief
	BriefQuestionMarker = "Try asking:"
)

// buildBriefPrompt renders the fixed structured prompt for a topic brief:
// greeting, numbered recommendations, marker-prefixed example questions,
// closing line.
func buildBriefPrompt(topic models.Topic, profile *models.SurveyProfile, user *models.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate my %s brief for today. ", AssistantName(topic))
	if contextMsg := BuildContextMessage(topic, profile, user); contextMsg != "" {
		fmt.Fprintf(&b, "My profile: %s. ", contextMsg)
	}
	fmt.Fprintf(&b, "Structure the reply exactly as follows: "+
		"one short greeting line; "+
		"exactly %d numbered recommendations tailored to my profile, one per line; "+
		"exactly %d example questions I could ask you next, each on its own line starting with %q; "+
		"and one short closing line. Plain text only, no markdown.",
		briefRecommendationCount, briefQuestionCount, BriefQuestionMarker)
	return b.String()
}

// GenerateBrief returns the proactive summary for a user and topic. While a
// cached brief is younger than the TTL and force is false it is served
// as-is without a remote call; force always regenerates and overwrites.
// Remote failures yield the fallback text and leave the cache untouched.
func (s *SessionCache) GenerateBrief(ctx context.Context, user *models.User, topic models.Topic, profile *models.SurveyProfile, force bool) (string, error) {
	if !force {
		cached, err := s.briefs.Get(ctx, user.ID, topic)
		if err != nil {
			s.logger.Warn("brief_cache_read_failed",
				zap.String("user_id", user.ID.String()),
				zap.String("topic", string(topic)),
				zap.Error(err),
			)
		} else if cached != nil && time.Since(cached.GeneratedAt) < s.briefTTL {
			return cached.Content, nil
		}
	}

	threadID, initialized, err := s.resolveThread(ctx, user.ID, topic)
	if err != nil {
		return FallbackUnavailable, fmt.Errorf("%w: %w", ErrNoThread, err)
	}
	if !initialized {
		s.primeThread(ctx, user, topic, threadID, profile)
	}

	reply, err := s.send(ctx, threadID, buildBriefPrompt(topic, profile, user))
	if err != nil {
		// Serve the fallback but do not cache it: a transient outage
		// must not pin failure text for a whole TTL window.
		return FallbackText(err), nil
	}

	brief := &models.Brief{
		UserID:      user.ID,
		Topic:       topic,
		Content:     StripMarkdown(reply),
		GeneratedAt: time.Now(),
	}
	if err := s.briefs.Upsert(ctx, brief); err != nil {
		s.logger.Warn("brief_cache_write_failed",
			zap.String("user_id", user.ID.String()),
			zap.String("topic", string(topic)),
			zap.Error(err),
		)
	}

	return brief.Content, nil
}

// RefreshBrief regenerates and caches the brief unconditionally, returning
// the underlying error instead of fallback text. It backs the queue worker,
// which needs the real error to drive retries.
func (s *SessionCache) RefreshBrief(ctx context.Context, user *models.User, topic models.Topic, profile *models.SurveyProfile) error {
	threadID, initialized, err := s.resolveThread(ctx, user.ID, topic)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoThread, err)
	}
	if !initialized {
		s.primeThread(ctx, user, topic, threadID, profile)
	}

	reply, err := s.send(ctx, threadID, buildBriefPrompt(topic, profile, user))
	if err != nil {
		return err
	}

	brief := &models.Brief{
		UserID:      user.ID,
		Topic:       topic,
		Content:     StripMarkdown(reply),
		GeneratedAt: time.Now(),
	}
	if err := s.briefs.Upsert(ctx, brief); err != nil {
		return fmt.Errorf("failed to cache brief: %w", err)
	}
	return nil
}
