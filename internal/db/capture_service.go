package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/apperr"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/models"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/notify"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/timeutil"
)

// DefaultRetention is the horizon after which evidence rows become eligible
// for permanent deletion by the sweeper.
const DefaultRetention = 60 * 24 * time.Hour

// Actor identifies the caller of an evidence operation. Role is supplied by
// the surrounding product's auth layer and trusted here.
type Actor struct {
	UserID uint
	Role   string // "member" or "admin"
}

func (a Actor) admin() bool { return a.Role == "admin" }

// CaptureService is the screenshot accountability ledger: it records capture
// attempts, maintains the interval timeline, and performs the
// delete-with-clawback that keeps duration and points consistent.
type CaptureService struct {
	db        *gorm.DB
	ledger    Ledger
	notifier  notify.Notifier
	retention time.Duration
	now       func() time.Time
}

func NewCaptureService(gdb *gorm.DB, notifier notify.Notifier) *CaptureService {
	return &CaptureService{
		db:        gdb,
		notifier:  notifier,
		retention: DefaultRetention,
		now:       time.Now,
	}
}

// SetNow overrides the clock. Test hook.
func (s *CaptureService) SetNow(now func() time.Time) { s.now = now }

// SetRetention overrides the retention horizon.
func (s *CaptureService) SetRetention(d time.Duration) { s.retention = d }

// CaptureInput carries what the agent reports for a successful sample.
type CaptureInput struct {
	UID         string         `json:"uid"`
	CapturedAt  time.Time      `json:"captured_at"`
	StoragePath string         `json:"storage_path"`
	StorageURL  string         `json:"storage_url"`
	SizeBytes   int64          `json:"size_bytes"`
	Metadata    map[string]any `json:"metadata"`
}

// Record appends a successful capture to the session's interval timeline.
// The interval it covers runs from the previous non-deleted capture (or the
// session start) to its own timestamp, so consecutive records tile the
// timeline without gaps.
func (s *CaptureService) Record(ctx context.Context, actor Actor, sessionID uint, in CaptureInput) (*models.Capture, error) {
	return s.record(ctx, actor, sessionID, in, models.CaptureSuccess)
}

// RecordFailure appends a failed capture attempt. Failures carry no storage
// reference but still occupy the timeline so gaps stay explainable.
func (s *CaptureService) RecordFailure(ctx context.Context, actor Actor, sessionID uint, attemptedAt time.Time, reason models.CaptureStatus) (*models.Capture, error) {
	if reason == models.CaptureSuccess || !reason.Valid() {
		return nil, apperr.BadRequest("invalid capture failure reason %q", reason)
	}
	return s.record(ctx, actor, sessionID, CaptureInput{CapturedAt: attemptedAt}, reason)
}

func (s *CaptureService) record(ctx context.Context, actor Actor, sessionID uint, in CaptureInput, status models.CaptureStatus) (*models.Capture, error) {
	var capture models.Capture

	err := InTx(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var session models.Session
		if err := tx.First(&session, sessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("session #%d not found", sessionID)
			}
			return apperr.Internal(err, "loading session #%d", sessionID)
		}
		if session.UserID != actor.UserID {
			return apperr.Forbidden("session #%d belongs to another user", sessionID)
		}
		if !session.IsActive {
			return apperr.BadRequest("session #%d is not active", sessionID)
		}
		if !session.ScreenCaptureRequired {
			return apperr.BadRequest("screen capture is not enabled for session #%d", sessionID)
		}

		capturedAt := in.CapturedAt
		if capturedAt.IsZero() {
			capturedAt = s.now()
		}

		intervalStart, err := s.intervalStart(tx, &session)
		if err != nil {
			return err
		}

		uid := in.UID
		if uid == "" {
			uid = uuid.NewString()
		}

		capture = models.Capture{
			UID:             uid,
			SessionID:       session.ID,
			UserID:          session.UserID,
			CapturedAt:      capturedAt,
			IntervalStart:   intervalStart,
			IntervalEnd:     capturedAt,
			IntervalMinutes: timeutil.WholeMinutes(intervalStart, capturedAt),
			Status:          status,
			ExpiresAt:       capturedAt.Add(s.retention),
			StoragePath:     in.StoragePath,
			StorageURL:      in.StorageURL,
			SizeBytes:       in.SizeBytes,
			Metadata:        datatypes.JSONMap(in.Metadata),
		}
		if err := tx.Create(&capture).Error; err != nil {
			if IsUniqueViolation(err) {
				return apperr.BadRequest("capture %s was already reported", uid)
			}
			return apperr.Internal(err, "recording capture")
		}

		// Close the prior interval at this record's start. A no-op when
		// nothing was deleted in between, a re-stitch otherwise.
		return tx.Model(&models.Capture{}).
			Where("session_id = ? AND is_deleted = ? AND id <> ? AND captured_at <= ?",
				session.ID, false, capture.ID, intervalStart).
			Where("interval_end > ?", intervalStart).
			UpdateColumn("interval_end", intervalStart).Error
	})
	if err != nil {
		return nil, err
	}
	return &capture, nil
}

// intervalStart finds where the new record's covered window begins: the most
// recent non-deleted capture's timestamp, or the session start.
func (s *CaptureService) intervalStart(tx *gorm.DB, session *models.Session) (time.Time, error) {
	var prev models.Capture
	err := tx.Where("session_id = ? AND is_deleted = ?", session.ID, false).
		Order("captured_at DESC").
		First(&prev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return session.StartedAt, nil
	}
	if err != nil {
		return time.Time{}, apperr.Internal(err, "loading previous capture")
	}
	return prev.CapturedAt, nil
}

// DeleteResult reports what one evidence deletion clawed back.
type DeleteResult struct {
	CaptureID       uint `json:"capture_id"`
	MinutesDeducted int  `json:"minutes_deducted"`
	PointsDebited   int  `json:"points_debited"`
}

// Delete soft-deletes one capture and claws back the time window it was
// covering: the owning session's timeDeducted grows, a closed session's
// duration shrinks (floored at zero), and points already credited are
// debited at one point per 30 minutes, capped at what the session earned.
func (s *CaptureService) Delete(ctx context.Context, actor Actor, captureID uint, reason string) (*DeleteResult, error) {
	var result DeleteResult
	var notifyOwner uint

	err := InTx(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var capture models.Capture
		if err := tx.First(&capture, captureID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("capture #%d not found", captureID)
			}
			return apperr.Internal(err, "loading capture #%d", captureID)
		}
		if capture.IsDeleted {
			return apperr.BadRequest("capture #%d is already deleted", captureID)
		}
		if capture.UserID != actor.UserID && !actor.admin() {
			return apperr.Forbidden("capture #%d belongs to another user", captureID)
		}

		var session models.Session
		if err := tx.Preload("WorkItem").First(&session, capture.SessionID).Error; err != nil {
			return apperr.Internal(err, "loading session #%d", capture.SessionID)
		}

		now := s.now()
		minutes := capture.IntervalMinutes

		err := tx.Model(&models.Capture{}).Where("id = ?", capture.ID).
			Updates(map[string]any{
				"is_deleted":      true,
				"deleted_at":      now,
				"deleted_by_id":   actor.UserID,
				"deletion_reason": reason,
			}).Error
		if err != nil {
			return apperr.Internal(err, "marking capture #%d deleted", captureID)
		}

		// Single atomic column updates: concurrent deletions for the same
		// session interleave safely without serializing the whole batch.
		if err := tx.Model(&models.Session{}).Where("id = ?", session.ID).
			UpdateColumn("time_deducted", gorm.Expr("time_deducted + ?", minutes)).Error; err != nil {
			return apperr.Internal(err, "deducting time from session #%d", session.ID)
		}

		points := 0
		if !session.IsActive {
			// Session already closed: realize the reduction now. Active
			// sessions accrue timeDeducted and settle at stop.
			if err := tx.Model(&models.Session{}).Where("id = ?", session.ID).
				UpdateColumn("duration_minutes", gorm.Expr("MAX(duration_minutes - ?, 0)", minutes)).Error; err != nil {
				return apperr.Internal(err, "shortening session #%d", session.ID)
			}

			points = minutes / MinutesPerPoint
			if remaining := session.PointsEarned - session.PointsClawed; points > remaining {
				points = remaining
			}
			if points > 0 {
				if err := s.ledger.Debit(tx, session.UserID, session.WorkItem.ProjectID, points); err != nil {
					return apperr.Internal(err, "debiting session #%d", session.ID)
				}
				if err := tx.Model(&models.Session{}).Where("id = ?", session.ID).
					UpdateColumn("points_clawed", gorm.Expr("points_clawed + ?", points)).Error; err != nil {
					return apperr.Internal(err, "recording clawback on session #%d", session.ID)
				}
			}
		}

		if capture.UserID != actor.UserID {
			notifyOwner = capture.UserID
		}
		result = DeleteResult{CaptureID: captureID, MinutesDeducted: minutes, PointsDebited: points}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if notifyOwner != 0 {
		s.notifier.Notify(notifyOwner, notify.KindEvidenceDeleted,
			"Screenshot removed",
			fmt.Sprintf("A screenshot was removed from one of your sessions: %s. %d minute(s) were deducted.",
				reason, result.MinutesDeducted),
			map[string]any{
				"capture_id":       result.CaptureID,
				"minutes_deducted": result.MinutesDeducted,
				"points_debited":   result.PointsDebited,
			})
	}

	return &result, nil
}

// BulkItem is the outcome for one id in a bulk deletion.
type BulkItem struct {
	CaptureID       uint   `json:"capture_id"`
	OK              bool   `json:"ok"`
	Error           string `json:"error,omitempty"`
	MinutesDeducted int    `json:"minutes_deducted"`
	PointsDebited   int    `json:"points_debited"`
}

// BulkResult summarizes a best-effort batch deletion.
type BulkResult struct {
	Items        []BulkItem `json:"items"`
	Deleted      int        `json:"deleted"`
	Failed       int        `json:"failed"`
	TotalMinutes int        `json:"total_minutes_deducted"`
	TotalPoints  int        `json:"total_points_debited"`
}

// BulkDelete applies Delete to each id independently. A failure on one id
// does not roll back the others.
func (s *CaptureService) BulkDelete(ctx context.Context, actor Actor, captureIDs []uint, reason string) *BulkResult {
	result := &BulkResult{Items: make([]BulkItem, 0, len(captureIDs))}
	for _, id := range captureIDs {
		one, err := s.Delete(ctx, actor, id, reason)
		if err != nil {
			result.Items = append(result.Items, BulkItem{CaptureID: id, Error: err.Error()})
			result.Failed++
			continue
		}
		result.Items = append(result.Items, BulkItem{
			CaptureID:       id,
			OK:              true,
			MinutesDeducted: one.MinutesDeducted,
			PointsDebited:   one.PointsDebited,
		})
		result.Deleted++
		result.TotalMinutes += one.MinutesDeducted
		result.TotalPoints += one.PointsDebited
	}
	return result
}

// expectedCadenceMinutes is the assumed average sampling period used for the
// approximate capture rate in Stats.
const expectedCadenceMinutes = 10

// Stats aggregates a session's evidence counters.
type Stats struct {
	SessionID       uint    `json:"session_id"`
	TotalCaptures   int64   `json:"total_captures"`
	Successful      int64   `json:"successful"`
	Failed          int64   `json:"failed"`
	Deleted         int64   `json:"deleted"`
	IntervalMinutes int64   `json:"interval_minutes"`
	TimeDeducted    int     `json:"time_deducted"`
	DurationMinutes int     `json:"duration_minutes"`
	CaptureRate     float64 `json:"capture_rate"`
}

// SessionStats aggregates capture counts for one session. The capture rate
// is an approximation against an assumed sampling cadence, not a guarantee.
func (s *CaptureService) SessionStats(ctx context.Context, actor Actor, sessionID uint) (*Stats, error) {
	gdb := s.db.WithContext(ctx)

	var session models.Session
	if err := gdb.First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("session #%d not found", sessionID)
		}
		return nil, apperr.Internal(err, "loading session #%d", sessionID)
	}
	if session.UserID != actor.UserID && !actor.admin() {
		return nil, apperr.Forbidden("session #%d belongs to another user", sessionID)
	}

	stats := &Stats{
		SessionID:       sessionID,
		TimeDeducted:    session.TimeDeducted,
		DurationMinutes: session.DurationMinutes,
	}

	base := gdb.Model(&models.Capture{}).Where("session_id = ?", sessionID)
	if err := base.Count(&stats.TotalCaptures).Error; err != nil {
		return nil, apperr.Internal(err, "counting captures")
	}
	gdb.Model(&models.Capture{}).
		Where("session_id = ? AND status = ? AND is_deleted = ?", sessionID, models.CaptureSuccess, false).
		Count(&stats.Successful)
	gdb.Model(&models.Capture{}).
		Where("session_id = ? AND status <> ?", sessionID, models.CaptureSuccess).
		Count(&stats.Failed)
	gdb.Model(&models.Capture{}).
		Where("session_id = ? AND is_deleted = ?", sessionID, true).
		Count(&stats.Deleted)
	gdb.Model(&models.Capture{}).
		Where("session_id = ? AND is_deleted = ?", sessionID, false).
		Select("COALESCE(SUM(interval_minutes), 0)").
		Scan(&stats.IntervalMinutes)

	duration := session.DurationMinutes
	if session.IsActive {
		duration = timeutil.ClampMin(
			timeutil.WholeMinutes(session.StartedAt, s.now())-session.TimeDeducted, 0)
	}
	if expected := duration / expectedCadenceMinutes; expected > 0 {
		stats.CaptureRate = float64(stats.Successful) / float64(expected)
	}

	return stats, nil
}
