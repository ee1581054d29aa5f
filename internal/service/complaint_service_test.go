package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/panchayat-portal/internal/domain"
	"github.com/spec-kit/panchayat-portal/internal/repository"
	apperrors "github.com/spec-kit/panchayat-portal/pkg/util/errorutil"
)

func fileComplaint(t *testing.T, env *testEnv, by *domain.User) *domain.Complaint {
	t.Helper()
	c, err := env.complaints.File(context.Background(), by, ComplaintInput{
		Category:    domain.CategoryStreetLight,
		Subject:     "Street light broken",
		Description: "The light near the temple has been off for a week.",
		Location:    "Temple road",
	})
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	return c
}

func actionsOf(entries []domain.ComplaintHistory) []domain.ComplaintAction {
	out := make([]domain.ComplaintAction, len(entries))
	for i, e := range entries {
		out[i] = e.Action
	}
	return out
}

func TestFileComplaint(t *testing.T) {
	env := newTestEnv(t)
	citizen := env.seedUser(t, "jaya", domain.RoleCitizen, true)
	c := fileComplaint(t, env, citizen)

	if c.ComplaintNumber != "CMP20250314092653" || c.Status != domain.ComplaintOpen || c.Priority != domain.PriorityMedium {
		t.Fatalf("unexpected complaint %+v", c)
	}
	history, err := env.complaints.History(context.Background(), citizen, c.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Action != domain.ActionCreated || *history[0].NewValue != "Open" ||
		*history[0].Notes != "Complaint filed: Street light broken" {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestFileComplaintValidation(t *testing.T) {
	env := newTestEnv(t)
	citizen := env.seedUser(t, "kamal", domain.RoleCitizen, true)
	_, err := env.complaints.File(context.Background(), citizen, ComplaintInput{Category: "noise", Priority: "critical"})
	de := apperrors.ToDomainError(err)
	if de == nil || de.Code != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"category", "priority", "subject", "description", "location"} {
		if _, ok := de.Details[field]; !ok {
			t.Fatalf("missing detail for %s: %v", field, de.Details)
		}
	}
}

func TestUpdateResolveWritesHistoryOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	citizen := env.seedUser(t, "leela", domain.RoleCitizen, true)
	staff := env.seedUser(t, "mohan", domain.RoleStaff, true)
	c := fileComplaint(t, env, citizen)
	env.clock.Advance(time.Hour)

	resolved := domain.ComplaintResolved
	remarks := "Bulb replaced"
	updated, err := env.complaints.Update(ctx, staff, c.ID, ComplaintUpdate{Status: &resolved, ResolutionRemarks: &remarks})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ResolvedAt == nil || !updated.ResolvedAt.Equal(env.clock.Now()) {
		t.Fatalf("resolved date not set: %v", updated.ResolvedAt)
	}
	firstResolved := *updated.ResolvedAt

	history, _ := env.complaints.History(ctx, staff, c.ID)
	got := actionsOf(history)
	want := []domain.ComplaintAction{domain.ActionCreated, domain.ActionStatusChanged, domain.ActionResolved}
	if len(got) != len(want) {
		t.Fatalf("unexpected actions %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected actions %v", got)
		}
	}
	if *history[1].OldValue != "open" || *history[1].NewValue != "resolved" || *history[2].Notes != "Bulb replaced" {
		t.Fatalf("unexpected entries %+v %+v", history[1], history[2])
	}
	if *history[1].Notes != "Status changed from Open to Resolved" {
		t.Fatalf("status notes = %q", *history[1].Notes)
	}
	if history[2].OldValue != nil || history[2].NewValue != nil {
		t.Fatalf("resolved entry should carry no values: %+v", history[2])
	}

	env.clock.Advance(time.Hour)
	again, err := env.complaints.Update(ctx, staff, c.ID, ComplaintUpdate{Status: &resolved})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if !again.ResolvedAt.Equal(firstResolved) {
		t.Fatalf("resolved date moved")
	}
	history, _ = env.complaints.History(ctx, staff, c.ID)
	if len(history) != 3 {
		t.Fatalf("unchanged status wrote history: %v", actionsOf(history))
	}
}

func TestUpdatePriorityAndAssignment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	citizen := env.seedUser(t, "nisha", domain.RoleCitizen, true)
	staff := env.seedUser(t, "omkar", domain.RoleStaff, true)
	c := fileComplaint(t, env, citizen)

	urgent := domain.PriorityUrgent
	assignee := staff.ID
	if _, err := env.complaints.Update(ctx, staff, c.ID, ComplaintUpdate{Priority: &urgent, AssigneeID: &assignee}); err != nil {
		t.Fatalf("update: %v", err)
	}
	citizenID := citizen.ID
	if _, err := env.complaints.Update(ctx, staff, c.ID, ComplaintUpdate{AssigneeID: &citizenID}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("assigning to a citizen should fail, got %v", err)
	}
	none := ""
	updated, err := env.complaints.Update(ctx, staff, c.ID, ComplaintUpdate{AssigneeID: &none})
	if err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if updated.AssignedToID != nil {
		t.Fatalf("expected unassigned")
	}

	history, _ := env.complaints.History(ctx, staff, c.ID)
	if len(history) != 4 {
		t.Fatalf("unexpected actions %v", actionsOf(history))
	}
	if history[1].Action != domain.ActionPriorityChanged || *history[1].OldValue != "medium" || *history[1].NewValue != "urgent" {
		t.Fatalf("unexpected priority entry %+v", history[1])
	}
	if history[2].Action != domain.ActionAssigned || *history[2].OldValue != "Unassigned" || *history[2].NewValue != "omkar" {
		t.Fatalf("unexpected assignment entry %+v", history[2])
	}
	if *history[3].OldValue != "omkar" || *history[3].NewValue != "Unassigned" || *history[3].Notes != "Assignment removed" {
		t.Fatalf("unexpected unassignment entry %+v", history[3])
	}
}

func TestUpdateRequiresStaff(t *testing.T) {
	env := newTestEnv(t)
	citizen := env.seedUser(t, "pooja", domain.RoleCitizen, true)
	c := fileComplaint(t, env, citizen)
	closed := domain.ComplaintClosed
	if _, err := env.complaints.Update(context.Background(), citizen, c.ID, ComplaintUpdate{Status: &closed}); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestComplaintListsAndStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.seedUser(t, "qadir", domain.RoleCitizen, true)
	b := env.seedUser(t, "rekha", domain.RoleCitizen, true)
	staff := env.seedUser(t, "sanjay", domain.RoleStaff, true)
	fileComplaint(t, env, a)
	env.clock.Advance(time.Second)
	c := fileComplaint(t, env, b)

	inProgress := domain.ComplaintInProgress
	assignee := staff.ID
	if _, err := env.complaints.Update(ctx, staff, c.ID, ComplaintUpdate{Status: &inProgress, AssigneeID: &assignee}); err != nil {
		t.Fatalf("update: %v", err)
	}

	mine, err := env.complaints.ListForComplainant(ctx, a, repository.ComplaintFilter{})
	if err != nil || len(mine) != 1 {
		t.Fatalf("expected one complaint for a, got %d (%v)", len(mine), err)
	}
	assigned, err := env.complaints.List(ctx, repository.ComplaintFilter{AssigneeID: &staff.ID})
	if err != nil || len(assigned) != 1 || assigned[0].ID != c.ID {
		t.Fatalf("unexpected assigned list %v (%v)", assigned, err)
	}
	stats, err := env.complaints.Statistics(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 2 || stats.Open != 1 || stats.InProgress != 1 || stats.Unassigned != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if _, err := env.complaints.Get(ctx, a, c.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("citizen should not see another's complaint, got %v", err)
	}
}
