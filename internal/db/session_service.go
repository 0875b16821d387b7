package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/apperr"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/models"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/notify"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/timeutil"
)

// SessionService owns the session start/stop state machine and the
// single-active-session invariant.
type SessionService struct {
	db       *gorm.DB
	ledger   Ledger
	notifier notify.Notifier
	now      func() time.Time
}

func NewSessionService(gdb *gorm.DB, notifier notify.Notifier) *SessionService {
	return &SessionService{db: gdb, notifier: notifier, now: time.Now}
}

// SetNow overrides the clock. Test hook.
func (s *SessionService) SetNow(now func() time.Time) { s.now = now }

// StopResult is what a successful stop reports back to the caller.
type StopResult struct {
	Session      *models.Session `json:"session"`
	PointsEarned int             `json:"points_earned"`
	Balance      int             `json:"balance"`
	Milestones   []int           `json:"milestones,omitempty"`
}

// ActiveResult is the read-only projection of a live session. Session is nil
// when the user has nothing running; that is the "no active session"
// sentinel, not an error.
type ActiveResult struct {
	Session         *models.Session  `json:"session"`
	ElapsedMinutes  int              `json:"elapsed_minutes"`
	PotentialPoints int              `json:"potential_points"`
	Thumbnails      []models.Capture `json:"thumbnails,omitempty"`
}

// Start begins a session for the user on the given work item. Fails with
// Conflict when another session is already active, carrying that session's
// identity so the caller can offer to stop it first.
func (s *SessionService) Start(ctx context.Context, userID, workItemID uint, notes string) (*models.Session, error) {
	gdb := s.db.WithContext(ctx)

	var user models.User
	if err := gdb.Preload("Company").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user #%d not found", userID)
		}
		return nil, apperr.Internal(err, "loading user #%d", userID)
	}

	var item models.WorkItem
	if err := gdb.First(&item, workItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("work item #%d not found", workItemID)
		}
		return nil, apperr.Internal(err, "loading work item #%d", workItemID)
	}

	if active, err := s.activeSession(gdb, userID); err != nil {
		return nil, err
	} else if active != nil {
		return nil, s.startConflict(active)
	}

	// Frozen into the session so later policy changes don't reinterpret
	// evidence requirements for time already tracked.
	captureRequired := user.Company.ScreenCaptureEnabled && item.ScreenCaptureEnabled
	if captureRequired && !user.AgentOnline {
		return nil, apperr.BadRequest(
			"screen capture is required for work item #%d but the capture agent is offline", workItemID)
	}

	session := models.Session{
		UserID:                userID,
		WorkItemID:            workItemID,
		StartedAt:             s.now(),
		IsActive:              true,
		ScreenCaptureRequired: captureRequired,
		Notes:                 notes,
	}

	if err := gdb.Create(&session).Error; err != nil {
		// The partial unique index caught a concurrent start that the
		// read above missed.
		if IsUniqueViolation(err) {
			if active, aerr := s.activeSession(gdb, userID); aerr == nil && active != nil {
				return nil, s.startConflict(active)
			}
			return nil, apperr.Conflict(apperr.ActiveSessionRef{},
				"another session is already active for user #%d", userID)
		}
		return nil, apperr.Internal(err, "creating session")
	}

	gdb.Preload("WorkItem").First(&session, session.ID)
	return &session, nil
}

// Stop closes a session. sessionID 0 resolves the user's active session.
// Closing, crediting, and milestone marking happen in one transaction; a
// second stop finds no active session and fails NotFound.
func (s *SessionService) Stop(ctx context.Context, userID, sessionID uint, notes string) (*StopResult, error) {
	var result StopResult
	var milestones []int

	err := InTx(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var session models.Session
		query := tx.Preload("WorkItem").Where("user_id = ? AND is_active = ?", userID, true)
		if sessionID != 0 {
			query = query.Where("id = ?", sessionID)
		}
		if err := query.First(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if sessionID != 0 {
					return apperr.NotFound("no active session #%d for user #%d", sessionID, userID)
				}
				return apperr.NotFound("no active session for user #%d", userID)
			}
			return apperr.Internal(err, "loading active session")
		}

		now := s.now()
		rawElapsed := timeutil.WholeMinutes(session.StartedAt, now)
		duration := timeutil.ClampMin(rawElapsed-session.TimeDeducted, 0)
		points := PointsForDuration(duration)

		session.EndedAt = &now
		session.DurationMinutes = duration
		session.PointsEarned = points
		session.IsActive = false
		if notes != "" {
			session.Notes = notes
		}
		err := tx.Model(&models.Session{}).Where("id = ?", session.ID).
			Updates(map[string]any{
				"ended_at":         now,
				"duration_minutes": duration,
				"points_earned":    points,
				"is_active":        false,
				"notes":            session.Notes,
			}).Error
		if err != nil {
			return apperr.Internal(err, "closing session #%d", session.ID)
		}

		if points > 0 {
			if err := s.ledger.Credit(tx, userID, session.WorkItem.ProjectID, points); err != nil {
				return apperr.Internal(err, "crediting session #%d", session.ID)
			}
		}

		crossed, err := checkMilestones(tx, userID)
		if err != nil {
			return apperr.Internal(err, "checking milestones")
		}
		milestones = crossed

		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return apperr.Internal(err, "reading balance")
		}

		result = StopResult{
			Session:      &session,
			PointsEarned: points,
			Balance:      user.Points,
			Milestones:   crossed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Notifications go out only after the transaction committed.
	for _, threshold := range milestones {
		s.notifier.Notify(userID, notify.KindMilestone,
			fmt.Sprintf("%d hours tracked", threshold),
			fmt.Sprintf("You crossed %d hours of tracked work. Keep it up!", threshold),
			map[string]any{"threshold_hours": threshold})
	}

	return &result, nil
}

// Active returns the live-session projection for the user, or a result with
// a nil Session when nothing is running.
func (s *SessionService) Active(ctx context.Context, userID uint) (*ActiveResult, error) {
	gdb := s.db.WithContext(ctx)

	session, err := s.activeSession(gdb, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return &ActiveResult{}, nil
	}

	elapsed := timeutil.ClampMin(timeutil.WholeMinutes(session.StartedAt, s.now())-session.TimeDeducted, 0)

	var thumbs []models.Capture
	gdb.Where("session_id = ? AND is_deleted = ? AND status = ?",
		session.ID, false, models.CaptureSuccess).
		Order("captured_at DESC").
		Limit(5).
		Find(&thumbs)

	return &ActiveResult{
		Session:         session,
		ElapsedMinutes:  elapsed,
		PotentialPoints: PointsForDuration(elapsed),
		Thumbnails:      thumbs,
	}, nil
}

func (s *SessionService) activeSession(gdb *gorm.DB, userID uint) (*models.Session, error) {
	var session models.Session
	err := gdb.Preload("WorkItem").
		Where("user_id = ? AND is_active = ?", userID, true).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal(err, "looking up active session")
	}
	return &session, nil
}

func (s *SessionService) startConflict(active *models.Session) error {
	return apperr.Conflict(apperr.ActiveSessionRef{
		SessionID:  active.ID,
		WorkItemID: active.WorkItemID,
		StartedAt:  active.StartedAt,
	}, "a session is already active on work item #%d", active.WorkItemID)
}
