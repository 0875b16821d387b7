package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/apperr"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/db"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/models"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/notify"
)

var testBase = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func TestStartCreatesActiveSession(t *testing.T) {
	gdb := openTestDB(t)
	f := seed(t, gdb)
	svc := db.NewSessionService(gdb, notify.NewMemNotifier())
	clk := newClock(testBase)
	svc.SetNow(clk.Now)

	session, err := svc.Start(context.Background(), f.User.ID, f.WorkItem.ID, "first pass")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !session.IsActive {
		t.Error("session should be active")
	}
	if !session.ScreenCaptureRequired {
		t.Error("capture should be required: company and work item both enable it")
	}
	if session.EndedAt != nil {
		t.Error("EndedAt should be nil while active")
	}
}

func TestStartConflictCarriesExistingSession(t *testing.T) {
	gdb := openTestDB(t)
	f := seed(t, gdb)
	svc := db.NewSessionService(gdb, notify.NewMemNotifier())
	clk := newClock(testBase)
	svc.SetNow(clk.Now)
	ctx := context.Background()

	first, err := svc.Start(ctx, f.User.ID, f.WorkItem.ID, "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	_, err = svc.Start(ctx, f.User.ID, f.WorkItem.ID, "")
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("second start = %v, want Conflict", err)
	}
	ref := apperr.ActiveSessionOf(err)
	if ref == nil || ref.SessionID != first.ID || ref.WorkItemID != f.WorkItem.ID {
		t.Errorf("conflict payload = %+v, want session %d", ref, first.ID)
	}

	var count int64
	gdb.Model(&models.Session{}).Where("user_id = ? AND is_active = ?", f.User.ID, true).Count(&count)
	if count != 1 {
		t.Errorf("active sessions = %d, want exactly 1", count)
	}
}

func TestStartFailsWhenCaptureRequiredAndAgentOffline(t *testing.T) {
	gdb := openTestDB(t)
	f := seed(t, gdb)
	gdb.Model(&models.User{}).Where("id = ?", f.User.ID).UpdateColumn("agent_online", false)

	svc := db.NewSessionService(gdb, notify.NewMemNotifier())
	_, err := svc.Start(context.Background(), f.User.ID, f.WorkItem.ID, "")
	if !apperr.IsKind(err, apperr.KindBadRequest) {
		t.Fatalf("start = %v, want BadRequest", err)
	}
}

func TestStartWithoutCaptureRequirementIgnoresAgent(t *testing.T) {
	gdb := openTestDB(t)
	f := seed(t, gdb)
	gdb.Model(&models.User{}).Where("id = ?", f.User.ID).UpdateColumn("agent_online", false)
	gdb.Model(&models.WorkItem{}).Where("id = ?", f.WorkItem.ID).UpdateColumn("screen_capture_enabled", false)

	svc := db.NewSessionService(gdb, notify.NewMemNotifier())
	session, err := svc.Start(context.Background(), f.User.ID, f.WorkItem.ID, "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if session.ScreenCaptureRequired {
		t.Error("capture should not be required when the work item disables it")
	}
}

func TestStartUnknownWorkItem(t *testing.T) {
	gdb := openTestDB(t)
	f := seed(t, gdb)
	svc := db.NewSessionService(gdb, notify.NewMemNotifier())

	_, err := svc.Start(context.Background(), f.User.ID, 404, "")
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("start = %v, want NotFound", err)
	}
}

func TestStopComputesDurationAndCreditsPoints(t *testing.T) {
	gdb := openTestDB(t)
	f := seed(t, gdb)
	clk := newClock(testBase)
	svc := db.NewSessionService(gdb, notify.NewMemNotifier())
	svc.SetNow(clk.Now)
	ctx := context.Background()

	session, err := svc.Start(ctx, f.User.ID, f.WorkItem.ID, "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	clk.Advance(65 * time.Minute)
	result, err := svc.Stop(ctx, f.User.ID, 0, "done for now")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}

	if result.Session.DurationMinutes != 65 {
		t.Errorf("duration = %d, want 65", result.Session.DurationMinutes)
	}
	if result.PointsEarned != 2 {
		t.Errorf("points = %d, want 2", result.PointsEarned)
	}
	if result.Balance != 2 {
		t.Errorf("balance = %d, want 2", result.Balance)
	}

	stored := reloadSession(t, gdb, session.ID)
	if stored.IsActive || stored.EndedAt == nil {
		t.Error("session should be closed")
	}
	if stored.PointsEarned != 2 {
		t.Errorf("stored points earned = %d, want 2", stored.PointsEarned)
	}
}

func TestStopSubtractsAccruedDeductions(t *testing.T) {
	gdb := openTestDB(t)
	f := seed(t, gdb)
	clk := newClock(testBase)
	svc := db.NewSessionService(gdb, notify.NewMemNotifier())
	svc.SetNow(clk.Now)
	ctx := context.Background()

	session, err := svc.Start(ctx, f.User.ID, f.WorkItem.ID, "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	// Evidence deletions while active accrue timeDeducted; the reduction is
	// realized at stop.
	gdb.Model(&models.Session{}).Where("id = ?", session.ID).UpdateColumn("time_deducted", 40)

	clk.Advance(60 * time.Minute)
	result, err := svc.Stop(ctx, f.User.ID, session.ID, "")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if result.Session.DurationMinutes != 20 {
		t.Errorf("duration = %d, want 20 (60 raw - 40 deducted)", result.Session.DurationMinutes)
	}
	if result.PointsEarned != 0 {
		t.Errorf("points = %d, want 0 for 20 minutes", result.PointsEarned)
	}
}

func TestStopClampsDurationAtZero(t *testing.T) {
	gdb := openTestDB(t)
	f := seed(t, gdb)
	clk := newClock(testBase)
	svc := db.NewSessionService(gdb, notify.NewMemNotifier())
	svc.SetNow(clk.Now)
	ctx := context.Background()

	session, _ := svc.Start(ctx, f.User.ID, f.WorkItem.ID, "")
	gdb.Model(&models.Session{}).Where("id = ?", session.ID).UpdateColumn("time_deducted", 500)

	clk.Advance(30 * time.Minute)
	result, err := svc.Stop(ctx, f.User.ID, 0, "")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if result.Session.DurationMinutes != 0 {
		t.Errorf("duration = %d, want 0", result.Session.DurationMinutes)
	}
}

func TestSecondStopFailsNotFound(t *testing.T) {
	gdb := openTestDB(t)
	f := seed(t, gdb)
	clk := newClock(testBase)
	svc := db.NewSessionService(gdb, notify.NewMemNotifier())
	svc.SetNow(clk.Now)
	ctx := context.Background()

	session, _ := svc.Start(ctx, f.User.ID, f.WorkItem.ID, "")
	clk.Advance(20 * time.Minute)

	if _, err := svc.Stop(ctx, f.User.ID, session.ID, ""); err != nil {
		t.Fatalf("first stop: %v", err)
	}
	_, err := svc.Stop(ctx, f.User.ID, session.ID, "")
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("second stop = %v, want NotFound", err)
	}
}

func TestActiveReturnsSentinelWhenIdle(t *testing.T) {
	gdb := openTestDB(t)
	f := seed(t, gdb)
	svc := db.NewSessionService(gdb, notify.NewMemNotifier())

	result, err := svc.Active(context.Background(), f.User.ID)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if result.Session != nil {
		t.Error("expected nil session sentinel")
	}
}

func TestActiveProjectsElapsedAndPotentialPoints(t *testing.T) {
	gdb := openTestDB(t)
	f := seed(t, gdb)
	clk := newClock(testBase)
	svc := db.NewSessionService(gdb, notify.NewMemNotifier())
	svc.SetNow(clk.Now)
	ctx := context.Background()

	if _, err := svc.Start(ctx, f.User.ID, f.WorkItem.ID, ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	clk.Advance(95 * time.Minute)

	result, err := svc.Active(ctx, f.User.ID)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if result.Session == nil {
		t.Fatal("expected a live session")
	}
	if result.ElapsedMinutes != 95 {
		t.Errorf("elapsed = %d, want 95", result.ElapsedMinutes)
	}
	if result.PotentialPoints != 3 {
		t.Errorf("potential points = %d, want 3", result.PotentialPoints)
	}
}

func TestMilestoneFiresOncePerThreshold(t *testing.T) {
	gdb := openTestDB(t)
	f := seed(t, gdb)
	clk := newClock(testBase)
	notifier := notify.NewMemNotifier()
	svc := db.NewSessionService(gdb, notifier)
	svc.SetNow(clk.Now)
	ctx := context.Background()

	// One 11-hour session crosses the 10-hour threshold.
	if _, err := svc.Start(ctx, f.User.ID, f.WorkItem.ID, ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	clk.Advance(11 * time.Hour)
	result, err := svc.Stop(ctx, f.User.ID, 0, "")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if len(result.Milestones) != 1 || result.Milestones[0] != 10 {
		t.Fatalf("milestones = %v, want [10]", result.Milestones)
	}

	// Another session keeps the total above 10 but below 25: no new awards.
	clk.Advance(time.Minute)
	if _, err := svc.Start(ctx, f.User.ID, f.WorkItem.ID, ""); err != nil {
		t.Fatalf("restart: %v", err)
	}
	clk.Advance(2 * time.Hour)
	result, err = svc.Stop(ctx, f.User.ID, 0, "")
	if err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if len(result.Milestones) != 0 {
		t.Errorf("milestones = %v, want none on repeat", result.Milestones)
	}

	if got := len(notifier.ByKind(notify.KindMilestone)); got != 1 {
		t.Errorf("milestone notifications = %d, want 1", got)
	}
}

func TestLongSessionCrossesSeveralMilestonesAtOnce(t *testing.T) {
	gdb := openTestDB(t)
	f := seed(t, gdb)
	clk := newClock(testBase)
	svc := db.NewSessionService(gdb, notify.NewMemNotifier())
	svc.SetNow(clk.Now)
	ctx := context.Background()

	if _, err := svc.Start(ctx, f.User.ID, f.WorkItem.ID, ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	clk.Advance(26 * time.Hour)
	result, err := svc.Stop(ctx, f.User.ID, 0, "")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if len(result.Milestones) != 2 || result.Milestones[0] != 10 || result.Milestones[1] != 25 {
		t.Errorf("milestones = %v, want [10 25]", result.Milestones)
	}

	var markers int64
	gdb.Model(&models.MilestoneAward{}).Where("user_id = ?", f.User.ID).Count(&markers)
	if markers != 2 {
		t.Errorf("markers = %d, want 2", markers)
	}
}
