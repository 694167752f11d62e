package faces

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"face-auth-backend/internal/attempts"
	"face-auth-backend/internal/recognition"
	"face-auth-backend/internal/shared/metrics"
	"face-auth-backend/internal/shared/storage/object"
	"face-auth-backend/internal/shared/telemetry"
)

const recordTimeout = 2 * time.Second

// Service orchestrates enrollment and verification.
type Service struct {
	Store       *Store
	Recognizer  recognition.Recognizer
	Attempts    attempts.Repo
	Tolerance   float64
	Concurrency int
}

// Enroll validates and stores an enrollment set. All images are decoded before
// anything is written.
func (s *Service) Enroll(ctx context.Context, rawUser string, images map[string][]string) (EnrollResult, error) {
	user, err := NormalizeUserID(rawUser)
	if err != nil {
		return EnrollResult{}, err
	}
	log := telemetry.L().With(zap.String("operation", "faces.enroll"), zap.String("user_id", string(user)))

	total, err := ValidateCount(images)
	log.Info("enrollment received", zap.Int("images", total))
	if err != nil {
		s.finishEnroll(ctx, user, false, total, err)
		return EnrollResult{UserID: user}, opError("faces.enroll", user, err)
	}

	items, err := flatten(images)
	if err != nil {
		s.finishEnroll(ctx, user, false, total, err)
		return EnrollResult{UserID: user}, opError("faces.enroll", user, err)
	}

	decoded := make([]Image, len(items))
	for i, item := range items {
		img, err := DecodeImage(item.payload)
		if err != nil {
			err = fmt.Errorf("image %s: %w", item.name, err)
			s.finishEnroll(ctx, user, false, total, err)
			return EnrollResult{UserID: user}, opError("faces.enroll", user, err)
		}
		decoded[i] = img
	}

	urls := make([]string, 0, len(items))
	for i, item := range items {
		location, err := s.Store.Put(ctx, user, item.name, decoded[i])
		if err != nil {
			log.Error("image upload failed", zap.String("name", item.name), zap.Error(err))
			err = upstream(fmt.Errorf("upload %s: %w", item.name, err))
			s.finishEnroll(ctx, user, false, len(urls), err)
			return EnrollResult{UserID: user, ImageURLs: urls}, opError("faces.enroll", user, err)
		}
		urls = append(urls, location)
	}

	log.Info("enrollment stored", zap.Int("images", len(urls)))
	s.finishEnroll(ctx, user, true, len(urls), nil)
	return EnrollResult{UserID: user, ImageURLs: urls}, nil
}

// IsRegistered reports whether rawUser has a complete enrollment.
func (s *Service) IsRegistered(ctx context.Context, rawUser string) (bool, error) {
	user, err := NormalizeUserID(rawUser)
	if err != nil {
		return false, err
	}
	ok, err := s.Store.IsRegistered(ctx, user)
	if err != nil {
		return false, opError("faces.is_registered", user, upstream(err))
	}
	return ok, nil
}

// Verify compares a probe image against every stored image of rawUser and
// succeeds iff at least MinMatches of them match. Stored images that cannot be
// fetched or encoded are skipped. Panics are converted into ErrUpstream.
func (s *Service) Verify(ctx context.Context, rawUser string, payload string) (res VerifyResult, err error) {
	start := time.Now()
	user, err := NormalizeUserID(rawUser)
	if err != nil {
		return VerifyResult{}, err
	}
	res.UserID = user

	defer func() {
		if rec := recover(); rec != nil {
			telemetry.Error("faces.verify.panic", map[string]any{
				"user_id": string(user),
				"error":   fmt.Sprint(rec),
				"stack":   string(debug.Stack()),
			})
			res = VerifyResult{UserID: user}
			err = opError("faces.verify", user, upstream(fmt.Errorf("panic: %v", rec)))
		}
		s.finishVerify(ctx, res, err, start)
	}()

	probe, err := DecodeImage(payload)
	if err != nil {
		return res, opError("faces.verify", user, err)
	}

	probeDesc, err := recognition.First(ctx, s.Recognizer, probe.Data)
	if err != nil {
		if errors.Is(err, recognition.ErrNoFace) {
			return res, opError("faces.verify", user, ErrNoFace)
		}
		return res, opError("faces.verify", user, upstream(fmt.Errorf("encode probe: %w", err)))
	}

	refs, err := s.Store.List(ctx, user)
	if err != nil {
		return res, opError("faces.verify", user, upstream(fmt.Errorf("list stored images: %w", err)))
	}
	if !registered(refs) {
		return res, opError("faces.verify", user, ErrNotRegistered)
	}

	matches, processed, err := s.vote(ctx, user, refs, probeDesc)
	res.Matches = matches
	res.Processed = processed
	res.Skipped = len(refs) - processed
	if err != nil {
		return res, opError("faces.verify", user, upstream(err))
	}

	if matches < MinMatches {
		return res, opError("faces.verify", user, fmt.Errorf("%w: %d of %d", ErrInsufficientMatches, matches, MinMatches))
	}
	res.Success = true
	return res, nil
}

// History lists recent audited attempts for rawUser, newest first.
func (s *Service) History(ctx context.Context, rawUser string, limit int) ([]attempts.Attempt, error) {
	user, err := NormalizeUserID(rawUser)
	if err != nil {
		return nil, err
	}
	if s.Attempts == nil {
		return []attempts.Attempt{}, nil
	}
	list, err := s.Attempts.ListByUser(ctx, string(user), limit)
	if err != nil {
		return nil, opError("faces.history", user, upstream(err))
	}
	return list, nil
}

// vote fetches, encodes and compares every ref against probe in parallel.
// Per-image failures are logged and excluded from both counts.
func (s *Service) vote(ctx context.Context, user UserID, refs []object.Ref, probe recognition.Descriptor) (int, int, error) {
	var matches, processed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	limit := s.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, ref := range refs {
		ref := ref
		g.Go(func() error {
			matched, err := s.compare(gctx, ref, probe)
			if err != nil {
				telemetry.Warn("faces.verify.skip_image", map[string]any{
					"user_id": string(user),
					"key":     ref.Key,
					"error":   err,
				})
				return nil
			}
			processed.Add(1)
			if matched {
				matches.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return int(matches.Load()), int(processed.Load()), err
	}
	return int(matches.Load()), int(processed.Load()), nil
}

func (s *Service) compare(ctx context.Context, ref object.Ref, probe recognition.Descriptor) (matched bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic comparing %s: %v", ref.Key, rec)
		}
	}()

	data, err := s.Store.Fetch(ctx, ref)
	if err != nil {
		return false, fmt.Errorf("fetch: %w", err)
	}
	known, err := recognition.First(ctx, s.Recognizer, data)
	if err != nil {
		return false, fmt.Errorf("encode: %w", err)
	}
	return recognition.Match(known, probe, s.Tolerance), nil
}

func (s *Service) finishEnroll(ctx context.Context, user UserID, success bool, processed int, err error) {
	metrics.IncEnroll(success)
	s.record(ctx, attempts.Attempt{
		UserID:    string(user),
		Kind:      attempts.KindEnroll,
		Success:   success,
		Processed: processed,
		Message:   attemptMessage(err),
	})
}

func (s *Service) finishVerify(ctx context.Context, res VerifyResult, err error, start time.Time) {
	metrics.ObserveVerifyDurationMs(metrics.SinceMillis(start))
	metrics.IncImagesSkipped(res.Skipped)
	switch {
	case err == nil:
		metrics.IncVerifySucceeded()
	case errors.Is(err, ErrUpstream):
		metrics.IncVerifyErrored()
	default:
		metrics.IncVerifyFailed()
	}

	message := ""
	if err != nil {
		message = err.Error()
	}
	telemetry.Info("faces.verify", map[string]any{
		"user_id":   string(res.UserID),
		"success":   res.Success,
		"matches":   res.Matches,
		"processed": res.Processed,
		"skipped":   res.Skipped,
		"error":     message,
	})
	s.record(ctx, attempts.Attempt{
		UserID:    string(res.UserID),
		Kind:      attempts.KindVerify,
		Success:   res.Success,
		Matches:   res.Matches,
		Processed: res.Processed,
		Message:   attemptMessage(err),
	})
}

// attemptMessages are the outcomes an attempt record may carry, checked in
// order. Wrapped causes are never recorded.
var attemptMessages = []error{
	ErrUpstream,
	ErrValidation,
	ErrCountMismatch,
	ErrDecode,
	ErrNoFace,
	ErrNotRegistered,
	ErrInsufficientMatches,
}

func attemptMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, sentinel := range attemptMessages {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return ErrUpstream.Error()
}

// record is best-effort; audit failures never change the outcome.
func (s *Service) record(ctx context.Context, attempt attempts.Attempt) {
	if s.Attempts == nil || attempt.UserID == "" {
		return
	}
	attempt.ID = uuid.NewString()
	attempt.CreatedAt = time.Now().UTC()

	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := s.Attempts.Record(recCtx, attempt); err != nil {
		telemetry.Warn("attempts.record_failed", map[string]any{
			"user_id": attempt.UserID,
			"kind":    string(attempt.Kind),
			"error":   err,
		})
	}
}
