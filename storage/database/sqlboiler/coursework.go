package boiledrepos

import (
	"context"
	"fmt"

	"github.com/friendsofgo/errors"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/coursework"
)

const (
	assignmentTable = "assignment"
	submissionTable = "submission"
)

var (
	assignmentColumns = []string{"id", "title", "description", "due_date", "points", "status", "classroom_id", "created_at"}
	submissionColumns = []string{"id", "assignment_id", "student_id", "content", "attachment", "grade", "feedback", "submitted_at"}
)

// upsertSubmissionQuery keeps grade and feedback of an existing submission,
// and its attachment unless a new one is given.
var upsertSubmissionQuery = fmt.Sprintf(
	`%s ON CONFLICT ("assignment_id", "student_id") DO UPDATE SET `+
		`"content" = EXCLUDED."content", `+
			`"attachment" = COALESCE(NULLIF(EXCLUDED."attachment", ''), "submission"."attachment"), `+
			`"submitted_at" = EXCLUDED."submitted_at" `+
		`RETURNING %s`,
	insertQuery(submissionTable, submissionColumns), quoteAll(submissionColumns),
)

type courseworkRepository struct {
	exec core.DBExecutor
}

var _ coursework.Repository = (*courseworkRepository)(nil) // interface compliance check

func NewCourseworkRepository(exec core.DBExecutor) *courseworkRepository {
	return &courseworkRepository{exec: exec}
}

// Assignments

func (repo courseworkRepository) CreateAssignment(ctx context.Context, asgmt coursework.Assignment) (coursework.Assignment, error) {
	asgmt.ID = newID()
	err := insert(ctx, repo.exec, assignmentTable, assignmentColumns,
		asgmt.ID, asgmt.Title, asgmt.Description, asgmt.DueDate, asgmt.Points, asgmt.Status, asgmt.ClassroomID, asgmt.CreatedAt)
	if err != nil {
		return coursework.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return asgmt, nil
}

func (repo courseworkRepository) QueryAssignments(ctx context.Context, scope access.Scope, filter *coursework.ListFilter) ([]coursework.Assignment, error) {
	mods, err := scoped(access.Assignments, scope, assignmentTable, assignmentColumns)
	if err != nil {
		return nil, err
	}
	if filter != nil && filter.ClassroomID != "" {
		if !validID(filter.ClassroomID) {
			return []coursework.Assignment{}, nil
		}
		mods = append(mods, qm.Where(`"assignment"."classroom_id" = ?`, filter.ClassroomID))
	}
	mods = append(mods, qm.OrderBy(`"assignment"."created_at" DESC`))

	list := make([]coursework.Assignment, 0)
	if err = newQuery(mods...).Bind(ctx, repo.exec, &list); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	return list, nil
}

func (repo courseworkRepository) GetAssignment(ctx context.Context, scope access.Scope, id string) (coursework.Assignment, error) {
	if !validID(id) {
		return coursework.Assignment{}, coursework.ErrAssignmentNotFound
	}
	mods, err := scoped(access.Assignments, scope, assignmentTable, assignmentColumns)
	if err != nil {
		return coursework.Assignment{}, err
	}
	mods = append(mods, qm.Where(`"assignment"."id" = ?`, id))

	var asgmt coursework.Assignment
	if err = newQuery(mods...).Bind(ctx, repo.exec, &asgmt); err != nil {
		if isNoRows(err) {
			return coursework.Assignment{}, coursework.ErrAssignmentNotFound
		}
		return coursework.Assignment{}, errors.Wrap(err, "finding assignment")
	}
	return asgmt, nil
}

func (repo courseworkRepository) UpdateAssignment(ctx context.Context, asgmt coursework.Assignment) (coursework.Assignment, error) {
	cols := []string{"title", "description", "due_date", "points", "status"}
	res, err := queries.Raw(updateQuery(assignmentTable, cols, []string{"id"}),
		asgmt.Title, asgmt.Description, asgmt.DueDate, asgmt.Points, asgmt.Status, asgmt.ID,
	).ExecContext(ctx, repo.exec)
	if err != nil {
		return coursework.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return coursework.Assignment{}, coursework.ErrAssignmentNotFound
	}
	return asgmt, nil
}

// DeleteAssignment relies on ON DELETE CASCADE for the submissions.
func (repo courseworkRepository) DeleteAssignment(ctx context.Context, id string) error {
	return deleteByID(ctx, repo.exec, assignmentTable, id)
}

// Submissions

func (repo courseworkRepository) UpsertSubmission(ctx context.Context, sub coursework.Submission) (coursework.Submission, error) {
	var saved coursework.Submission
	err := queries.Raw(upsertSubmissionQuery,
		newID(), sub.AssignmentID, sub.StudentID, sub.Content, sub.Attachment, nil, "", sub.SubmittedAt,
	).Bind(ctx, repo.exec, &saved)
	if err != nil {
		return coursework.Submission{}, errors.Wrap(err, "upserting submission")
	}
	return saved, nil
}

func (repo courseworkRepository) QuerySubmissions(ctx context.Context, scope access.Scope, filter *coursework.ListFilter) ([]coursework.Submission, error) {
	mods, err := scoped(access.Submissions, scope, submissionTable, submissionColumns)
	if err != nil {
		return nil, err
	}
	if filter != nil {
		if filter.AssignmentID != "" {
			if !validID(filter.AssignmentID) {
				return []coursework.Submission{}, nil
			}
			mods = append(mods, qm.Where(`"submission"."assignment_id" = ?`, filter.AssignmentID))
		}
		if filter.ClassroomID != "" {
			if !validID(filter.ClassroomID) {
				return []coursework.Submission{}, nil
			}
			mods = append(mods, qm.Where(`"submission"."assignment_id" IN (SELECT "id" FROM "assignment" WHERE "classroom_id" = ?)`, filter.ClassroomID))
		}
		if filter.Pending {
			mods = append(mods, qm.Where(`"submission"."grade" IS NULL`))
		}
	}
	mods = append(mods, qm.OrderBy(`"submission"."submitted_at" DESC`))

	list := make([]coursework.Submission, 0)
	if err = newQuery(mods...).Bind(ctx, repo.exec, &list); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	return list, nil
}

func (repo courseworkRepository) GetSubmission(ctx context.Context, scope access.Scope, id string) (coursework.Submission, error) {
	if !validID(id) {
		return coursework.Submission{}, coursework.ErrSubmissionNotFound
	}
	mods, err := scoped(access.Submissions, scope, submissionTable, submissionColumns)
	if err != nil {
		return coursework.Submission{}, err
	}
	mods = append(mods, qm.Where(`"submission"."id" = ?`, id))

	var sub coursework.Submission
	if err = newQuery(mods...).Bind(ctx, repo.exec, &sub); err != nil {
		if isNoRows(err) {
			return coursework.Submission{}, coursework.ErrSubmissionNotFound
		}
		return coursework.Submission{}, errors.Wrap(err, "finding submission")
	}
	return sub, nil
}

func (repo courseworkRepository) GradeSubmission(ctx context.Context, id string, grade float64, feedback string) (coursework.Submission, error) {
	if !validID(id) {
		return coursework.Submission{}, coursework.ErrSubmissionNotFound
	}
	query := updateQuery(submissionTable, []string{"grade", "feedback"}, []string{"id"}) + " RETURNING " + quoteAll(submissionColumns)

	var sub coursework.Submission
	if err := queries.Raw(query, grade, feedback, id).Bind(ctx, repo.exec, &sub); err != nil {
		if isNoRows(err) {
			return coursework.Submission{}, coursework.ErrSubmissionNotFound
		}
		return coursework.Submission{}, errors.Wrap(err, "grading submission")
	}
	return sub, nil
}
