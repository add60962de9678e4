package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"hubmirror/internal/domain"
	"hubmirror/internal/mapper"
	"hubmirror/internal/metrics"
)

const runLockTTL = 15 * time.Minute

// Syncer drives the fetch, resolve, map, upsert loop over all fetched posts
// and records one log entry per run. A per-record failure is collected and
// never aborts the run; only config, transport and API errors do.
type Syncer struct {
	source    Source
	posts     PostStore
	options   OptionStore
	runlog    RunLogStore
	resolver  Resolver
	media     MediaImporter
	publisher Publisher
	settings  SettingsLoader
	tx        TransactionManager
	lock      *runLock
	logger    *slog.Logger
	now       func() time.Time
}

func NewSyncer(
	source Source,
	posts PostStore,
	options OptionStore,
	runlog RunLogStore,
	resolver Resolver,
	media MediaImporter,
	publisher Publisher,
	settings SettingsLoader,
	tx TransactionManager,
	logger *slog.Logger,
) *Syncer {
	return &Syncer{
		source:    source,
		posts:     posts,
		options:   options,
		runlog:    runlog,
		resolver:  resolver,
		media:     media,
		publisher: publisher,
		settings:  settings,
		tx:        tx,
		lock:      newRunLock(runLockTTL),
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes one sync. The returned result is always non-nil; err is only
// set for terminal failures (lock, config, fetch) so callers can map them.
func (s *Syncer) Run(ctx context.Context, settings domain.Settings, trigger domain.Trigger) (*domain.SyncResult, error) {
	if err := s.lock.Acquire(); err != nil {
		s.appendLog(ctx, trigger, domain.RunError, "Sync already in progress", "another run holds the run lock", 0, 0)
		metrics.SyncRuns.WithLabelValues(string(trigger), string(domain.RunError)).Inc()
		return failure("A sync run is already in progress. Try again shortly."), err
	}
	defer s.lock.Release()

	if settings.APIToken == "" {
		s.appendLog(ctx, trigger, domain.RunError,
			"HubSpot API Key is required. Please configure it in the settings.",
			"API key not configured", 0, 0)
		metrics.SyncRuns.WithLabelValues(string(trigger), string(domain.RunError)).Inc()
		return failure("HubSpot API Key is required. Please configure it in the settings."), ErrMissingToken
	}

	if trigger == domain.TriggerScheduled && !settings.SyncEnabled {
		s.appendLog(ctx, trigger, domain.RunError,
			"Automatic sync is disabled",
			"sync setting is disabled but the scheduled run still fired", 0, 0)
		metrics.SyncRuns.WithLabelValues(string(trigger), string(domain.RunError)).Inc()
		return failure("Automatic sync is disabled."), ErrSyncDisabled
	}

	s.appendLog(ctx, trigger, domain.RunPending, "Sync started", "", 0, 0)
	s.logger.Info("starting sync",
		"trigger", trigger,
		"post_type", settings.PostType,
		"post_status", settings.PostStatus,
	)

	posts, err := s.source.ListPosts(ctx, settings.APIToken)
	if err != nil {
		s.appendLog(ctx, trigger, domain.RunError, err.Error(), err.Error(), 0, 0)
		metrics.SyncRuns.WithLabelValues(string(trigger), string(domain.RunError)).Inc()
		return failure(err.Error()), fmt.Errorf("fetch posts: %w", err)
	}

	if len(posts) == 0 {
		msg := "No blog posts found in HubSpot."
		s.appendLog(ctx, trigger, domain.RunError, msg, "remote returned an empty result set", 0, 0)
		metrics.SyncRuns.WithLabelValues(string(trigger), string(domain.RunError)).Inc()
		return failure(msg), nil
	}

	s.logger.Info("fetched posts from hubspot", "count", len(posts))

	result := &domain.SyncResult{Success: true}
	for i := range posts {
		created, err := s.processPost(ctx, &posts[i], settings)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("post %s: %v", posts[i].ExternalID, err))
			metrics.RecordFailures.Inc()
			s.logger.Warn("failed to process post",
				"external_id", posts[i].ExternalID,
				"error", err,
			)
			continue
		}
		if created {
			result.Imported++
		} else {
			result.Updated++
		}
	}

	s.finishRun(ctx, trigger, result, len(posts))
	return result, nil
}

// RunScheduled is the timer entry point. It never propagates an error to
// its invoker; all failures end in the activity log.
func (s *Syncer) RunScheduled(ctx context.Context) {
	settings, err := s.settings.Load(ctx)
	if err != nil {
		s.logger.Error("scheduled sync could not load settings", "error", err)
		return
	}
	if _, err := s.Run(ctx, settings, domain.TriggerScheduled); err != nil {
		s.logger.Error("scheduled sync failed", "error", err)
	}
}

func (s *Syncer) finishRun(ctx context.Context, trigger domain.Trigger, result *domain.SyncResult, total int) {
	detail := map[string]any{
		"imported":        result.Imported,
		"updated":         result.Updated,
		"total_processed": total,
	}

	if len(result.Errors) > 0 {
		detail["errors"] = result.Errors
		result.Message = fmt.Sprintf("Import completed with %d errors", len(result.Errors))
		s.appendLog(ctx, trigger, domain.RunError, result.Message, encodeDetail(detail), result.Imported, result.Updated)
	} else {
		result.Message = fmt.Sprintf("Successfully imported %d posts and updated %d posts", result.Imported, result.Updated)
		s.appendLog(ctx, trigger, domain.RunSuccess, result.Message, encodeDetail(detail), result.Imported, result.Updated)
	}

	lastRunKey := OptionLastManual
	if trigger == domain.TriggerScheduled {
		lastRunKey = OptionLastScheduled
	}
	if err := s.options.Set(ctx, lastRunKey, s.now().UTC().Format(time.RFC3339)); err != nil {
		s.logger.Warn("failed to record last run time", "error", err)
	}

	status := domain.RunSuccess
	if len(result.Errors) > 0 {
		status = domain.RunError
	}
	metrics.SyncRuns.WithLabelValues(string(trigger), string(status)).Inc()
	metrics.PostsImported.Add(float64(result.Imported))
	metrics.PostsUpdated.Add(float64(result.Updated))

	s.logger.Info("sync completed",
		"trigger", trigger,
		"imported", result.Imported,
		"updated", result.Updated,
		"errors", len(result.Errors),
	)
}

// processPost upserts one remote post. The upsert and the metadata
// replacement share a transaction so a half-written record never lingers.
func (s *Syncer) processPost(ctx context.Context, remote *domain.RemotePost, settings domain.Settings) (created bool, err error) {
	existing, err := s.resolver.Find(ctx, remote.ExternalID, settings.PostType)
	if err != nil {
		return false, fmt.Errorf("resolve: %w", err)
	}

	input := mapper.Map(*remote, settings.PostType, settings.PostStatus, existing)
	created = existing == nil

	var postID int64
	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if created {
			id, err := s.posts.Insert(txCtx, &input)
			if err != nil {
				return fmt.Errorf("insert post: %w", err)
			}
			postID = id
		} else {
			postID = input.ID
			if err := s.posts.Update(txCtx, &input); err != nil {
				return fmt.Errorf("update post: %w", err)
			}
		}

		meta := map[string]string{
			domain.MetaExternalID:    remote.ExternalID,
			domain.MetaRemoteURL:     remote.URL,
			domain.MetaRemoteCreated: remote.RemoteCreated,
			domain.MetaRemoteUpdated: remote.RemoteUpdated,
			domain.MetaImportedAt:    s.now().UTC().Format(time.RFC3339),
		}
		if remote.AuthorName != nil {
			meta[domain.MetaAuthorName] = *remote.AuthorName
		}
		if err := s.posts.ReplaceMeta(txCtx, postID, meta); err != nil {
			return fmt.Errorf("replace meta: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	s.resolver.Invalidate(remote.ExternalID, settings.PostType)

	s.attachFeaturedImage(ctx, postID, remote)

	if s.publisher != nil {
		input.ID = postID
		if err := s.publisher.PublishPost(ctx, &input, remote.ExternalID, created); err != nil {
			s.logger.Warn("failed to publish post event",
				"external_id", remote.ExternalID,
				"error", err,
			)
		}
	}

	return created, nil
}

// attachFeaturedImage is best-effort: any failure leaves the post without
// an image and the post still counts as synced.
func (s *Syncer) attachFeaturedImage(ctx context.Context, postID int64, remote *domain.RemotePost) {
	if remote.FeaturedImageURL == nil || *remote.FeaturedImageURL == "" {
		return
	}
	imageURL := *remote.FeaturedImageURL

	last, err := s.posts.GetMeta(ctx, postID, domain.MetaFeaturedImageURL)
	if err == nil && last == imageURL {
		return
	}

	path, err := s.media.Attach(ctx, postID, imageURL)
	if err != nil {
		s.logger.Debug("featured image import failed",
			"post_id", postID,
			"image_url", imageURL,
			"error", err,
		)
		return
	}

	if err := s.posts.SetFeaturedImage(ctx, postID, path); err != nil {
		s.logger.Debug("failed to set featured image", "post_id", postID, "error", err)
		return
	}
	if err := s.posts.SetMeta(ctx, postID, domain.MetaFeaturedImageURL, imageURL); err != nil {
		s.logger.Debug("failed to record featured image url", "post_id", postID, "error", err)
	}
}

func (s *Syncer) appendLog(ctx context.Context, trigger domain.Trigger, status domain.RunStatus, message, detail string, created, updated int) {
	entry := &domain.RunLog{
		Trigger:      trigger,
		Status:       status,
		Message:      message,
		CreatedCount: created,
		UpdatedCount: updated,
	}
	if detail != "" {
		entry.ErrorDetail = &detail
	}
	if err := s.runlog.Append(ctx, entry); err != nil {
		s.logger.Error("failed to append run log entry", "error", err)
	}
}

func encodeDetail(detail map[string]any) string {
	b, err := json.Marshal(detail)
	if err != nil {
		return ""
	}
	return string(b)
}

func failure(message string) *domain.SyncResult {
	return &domain.SyncResult{Success: false, Message: message}
}
