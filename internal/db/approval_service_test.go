package db_test

import (
	"context"
	"testing"

	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/apperr"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/db"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/models"
)

func TestApproveSplitsPointsAcrossAssignees(t *testing.T) {
	gdb := openTestDB(t)
	f := seed(t, gdb)

	second := models.User{CompanyID: f.Company.ID, Name: "Riley"}
	mustCreate(t, gdb, &second)

	item := models.WorkItem{
		ProjectID:            f.Project.ID,
		Title:                "Quarterly report",
		ReviewPoints:         7,
		ScreenCaptureEnabled: true,
	}
	mustCreate(t, gdb, &item)
	if err := gdb.Model(&item).Association("Assignees").Append(&f.User, &second); err != nil {
		t.Fatalf("assigning: %v", err)
	}

	svc := db.NewApprovalService(gdb)
	admin := db.Actor{UserID: f.Admin.ID, Role: "admin"}

	result, err := svc.Approve(context.Background(), admin, item.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	// 7 points over 2 assignees: 3 each, remainder unawarded.
	if result.PointsEach != 3 || result.AssigneesPaid != 2 {
		t.Errorf("award = %+v, want 3 points to 2 assignees", result)
	}
	if got := reloadUser(t, gdb, f.User.ID).Points; got != 3 {
		t.Errorf("first assignee balance = %d, want 3", got)
	}
	if got := reloadUser(t, gdb, second.ID).Points; got != 3 {
		t.Errorf("second assignee balance = %d, want 3", got)
	}

	// Approving twice must not double-pay.
	if _, err := svc.Approve(context.Background(), admin, item.ID); !apperr.IsKind(err, apperr.KindBadRequest) {
		t.Fatalf("second approve = %v, want BadRequest", err)
	}
}

func TestApproveRequiresAdmin(t *testing.T) {
	gdb := openTestDB(t)
	f := seed(t, gdb)
	svc := db.NewApprovalService(gdb)

	_, err := svc.Approve(context.Background(), db.Actor{UserID: f.User.ID, Role: "member"}, f.WorkItem.ID)
	if !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("approve = %v, want Forbidden", err)
	}
}

func TestRejectTouchesNoBalances(t *testing.T) {
	gdb := openTestDB(t)
	f := seed(t, gdb)
	svc := db.NewApprovalService(gdb)
	admin := db.Actor{UserID: f.Admin.ID, Role: "admin"}

	if err := svc.Reject(context.Background(), admin, f.WorkItem.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}

	var item models.WorkItem
	gdb.First(&item, f.WorkItem.ID)
	if item.Status != "rejected" {
		t.Errorf("status = %s, want rejected", item.Status)
	}
	if got := reloadUser(t, gdb, f.User.ID).Points; got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}

	if err := svc.Reject(context.Background(), admin, 9999); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("reject missing = %v, want NotFound", err)
	}
}
