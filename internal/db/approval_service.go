package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/apperr"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/models"
)

// ApprovalService is the review workflow's entry into the points ledger.
// It lives outside the session/evidence flow but must award points through
// the same ledger so balances stay traceable.
type ApprovalService struct {
	db     *gorm.DB
	ledger Ledger
}

func NewApprovalService(gdb *gorm.DB) *ApprovalService {
	return &ApprovalService{db: gdb}
}

// AwardResult reports how an approval's point pool was distributed.
type AwardResult struct {
	WorkItemID    uint `json:"work_item_id"`
	PointsEach    int  `json:"points_each"`
	AssigneesPaid int  `json:"assignees_paid"`
}

// Approve marks the work item approved and splits its review points evenly
// across assignees (floor division; any remainder stays unawarded). One
// transaction covers the status change and every credit.
func (s *ApprovalService) Approve(ctx context.Context, actor Actor, workItemID uint) (*AwardResult, error) {
	if !actor.admin() {
		return nil, apperr.Forbidden("only admins can approve work items")
	}

	var result AwardResult
	err := InTx(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var item models.WorkItem
		if err := tx.Preload("Assignees").First(&item, workItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("work item #%d not found", workItemID)
			}
			return apperr.Internal(err, "loading work item #%d", workItemID)
		}
		if item.Status == "approved" {
			return apperr.BadRequest("work item #%d is already approved", workItemID)
		}

		if err := tx.Model(&item).UpdateColumn("status", "approved").Error; err != nil {
			return apperr.Internal(err, "approving work item #%d", workItemID)
		}

		result = AwardResult{WorkItemID: workItemID}
		if item.ReviewPoints <= 0 || len(item.Assignees) == 0 {
			return nil
		}

		each := item.ReviewPoints / len(item.Assignees)
		if each == 0 {
			return nil
		}
		for _, assignee := range item.Assignees {
			if err := s.ledger.Credit(tx, assignee.ID, item.ProjectID, each); err != nil {
				return apperr.Internal(err, "crediting assignee #%d", assignee.ID)
			}
			result.AssigneesPaid++
		}
		result.PointsEach = each
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Reject marks the work item rejected. No ledger movement.
func (s *ApprovalService) Reject(ctx context.Context, actor Actor, workItemID uint) error {
	if !actor.admin() {
		return apperr.Forbidden("only admins can reject work items")
	}

	res := s.db.WithContext(ctx).Model(&models.WorkItem{}).
		Where("id = ?", workItemID).
		UpdateColumn("status", "rejected")
	if res.Error != nil {
		return apperr.Internal(res.Error, "rejecting work item #%d", workItemID)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("work item #%d not found", workItemID)
	}
	return nil
}
