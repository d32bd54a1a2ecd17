// Package resolver decides what a new match means for a teacher's existing
// assignment to the matched module.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/mentorbridge-backend/internal/data/repos"
	types "github.com/yungbote/mentorbridge-backend/internal/domain"
	"github.com/yungbote/mentorbridge-backend/internal/pkg/dbctx"
	nberrors "github.com/yungbote/mentorbridge-backend/internal/pkg/errors"
	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
)

// ErrUnknownStatus is returned when a live assignment carries a status
// outside the known lifecycle.
var ErrUnknownStatus = errors.New("unknown assignment status")

var tracer = otel.Tracer("github.com/yungbote/mentorbridge-backend/internal/modules/training/resolver")

type Kind string

const (
	Created Kind = "created"
	Updated Kind = "updated"
	Skipped Kind = "skipped"
)

type Request struct {
	TeacherID uuid.UUID
	ModuleID  string
	IssueID   *uuid.UUID
	Reason    string
}

// Outcome is the result of one resolution. For Skipped, Reason and Status
// carry the blocking assignment state and the caller is expected to drop
// the triggering issue without generating content.
type Outcome struct {
	Kind         Kind                   `json:"kind"`
	AssignmentID uuid.UUID              `json:"assignment_id"`
	Status       types.AssignmentStatus `json:"status"`
	Reason       string                 `json:"reason,omitempty"`
}

// NeedsContent reports whether personalized content should be (re)generated.
func (o Outcome) NeedsContent() bool { return o.Kind == Created || o.Kind == Updated }

type Resolver struct {
	log         *logger.Logger
	assignments repos.AssignmentRepo
}

func New(log *logger.Logger, assignments repos.AssignmentRepo) *Resolver {
	return &Resolver{log: log.With("service", "AssignmentResolver"), assignments: assignments}
}

// maxAttempts bounds the create/re-read loop when another request keeps
// winning the unique-index race and then soft-deleting its row.
const maxAttempts = 3

// Resolve applies the decision table for (TeacherID, ModuleID):
//
//	no live assignment -> Created (not_started)
//	not_started        -> Updated (source issue and reason refreshed)
//	in_progress        -> Skipped
//	completed          -> Skipped
//
// The live-pair unique index is the arbiter under concurrency: an insert
// that loses the race re-reads the winner and resolves against it.
func (r *Resolver) Resolve(dbc dbctx.Context, req Request) (Outcome, error) {
	if dbc.Ctx == nil {
		dbc.Ctx = context.Background()
	}
	ctx, span := tracer.Start(dbc.Ctx, "resolver.Resolve")
	defer span.End()
	dbc.Ctx = ctx

	req.ModuleID = strings.TrimSpace(req.ModuleID)
	if req.TeacherID == uuid.Nil || req.ModuleID == "" {
		return Outcome{}, fmt.Errorf("teacher and module required: %w", nberrors.ErrInvalidArgument)
	}
	span.SetAttributes(attribute.String("module_id", req.ModuleID))

	for attempt := 0; attempt < maxAttempts; attempt++ {
		existing, err := r.assignments.GetLive(dbc, req.TeacherID, req.ModuleID)
		if err != nil {
			return Outcome{}, fmt.Errorf("load assignment: %w", err)
		}
		if existing != nil {
			out, err := r.resolveExisting(dbc, existing, req)
			if errors.Is(err, nberrors.ErrConflict) {
				// Progressed between read and update; decide again.
				continue
			}
			if err == nil {
				span.SetAttributes(attribute.String("outcome", string(out.Kind)))
			}
			return out, err
		}

		out, err := r.create(dbc, req)
		if err == nil {
			span.SetAttributes(attribute.String("outcome", string(out.Kind)))
			return out, nil
		}
		if !repos.IsUniqueViolation(err) {
			return Outcome{}, fmt.Errorf("create assignment: %w", err)
		}
		r.log.Info("assignment insert lost race; re-reading", "teacher_id", req.TeacherID, "module_id", req.ModuleID)
	}
	return Outcome{}, fmt.Errorf("resolve teacher/module pair after %d attempts: %w", maxAttempts, nberrors.ErrConflict)
}

func (r *Resolver) resolveExisting(dbc dbctx.Context, a *types.TeacherTrainingAssignment, req Request) (Outcome, error) {
	switch a.Status {
	case types.AssignmentCompleted, types.AssignmentInProgress:
		r.log.Info("assignment skipped", "teacher_id", req.TeacherID, "module_id", req.ModuleID, "status", a.Status)
		return Outcome{Kind: Skipped, AssignmentID: a.ID, Status: a.Status, Reason: string(a.Status)}, nil
	case types.AssignmentNotStarted:
		if err := r.assignments.RefreshSource(dbc, a.ID, req.IssueID, req.Reason); err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: Updated, AssignmentID: a.ID, Status: types.AssignmentNotStarted}, nil
	default:
		return Outcome{}, fmt.Errorf("assignment %s status %q: %w", a.ID, a.Status, ErrUnknownStatus)
	}
}

// create inserts inside a savepoint when running in a caller transaction so
// a unique violation does not abort the caller's transaction on Postgres.
func (r *Resolver) create(dbc dbctx.Context, req Request) (Outcome, error) {
	row := &types.TeacherTrainingAssignment{
		ID:               uuid.New(),
		TeacherID:        req.TeacherID,
		ModuleID:         req.ModuleID,
		Status:           types.AssignmentNotStarted,
		SourceIssueID:    req.IssueID,
		AssignmentReason: req.Reason,
	}
	if dbc.Tx == nil {
		if err := r.assignments.Create(dbc, row); err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: Created, AssignmentID: row.ID, Status: row.Status}, nil
	}

	sp := "resolver_create_" + strings.ReplaceAll(row.ID.String(), "-", "")
	if err := dbc.Tx.SavePoint(sp).Error; err != nil {
		return Outcome{}, fmt.Errorf("savepoint: %w", err)
	}
	if err := r.assignments.Create(dbc, row); err != nil {
		if rbErr := dbc.Tx.RollbackTo(sp).Error; rbErr != nil {
			return Outcome{}, fmt.Errorf("rollback to savepoint: %v (after %w)", rbErr, err)
		}
		return Outcome{}, err
	}
	return Outcome{Kind: Created, AssignmentID: row.ID, Status: row.Status}, nil
}
