package coursework

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/classroom"
)

var (
	// errors
	ErrAssignmentNotFound = core.NewNotFoundError("assignment not found")
	ErrSubmissionNotFound = core.NewNotFoundError("submission not found")
	ErrOnlyStudentsSubmit = core.NewPermissionError("only students can submit assignments")
	ErrNotSubmissionOwner = core.NewPermissionError("only the classroom teacher can grade this submission")
	ErrOnlyTeachers       = core.NewPermissionError("only teachers can list pending submissions")

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, asgmt Assignment) (Assignment, error)
		QueryAssignments(ctx context.Context, scope access.Scope, filter *ListFilter) ([]Assignment, error)
		GetAssignment(ctx context.Context, scope access.Scope, id string) (Assignment, error)
		UpdateAssignment(ctx context.Context, asgmt Assignment) (Assignment, error)
		// DeleteAssignment also deletes its submissions.
		DeleteAssignment(ctx context.Context, id string) error

		// UpsertSubmission creates the (assignment, student) submission or replaces its content
		// and submitted_at, and its attachment when a new one is given. Grade and feedback are left untouched.
		UpsertSubmission(ctx context.Context, sub Submission) (Submission, error)
		QuerySubmissions(ctx context.Context, scope access.Scope, filter *ListFilter) ([]Submission, error)
		GetSubmission(ctx context.Context, scope access.Scope, id string) (Submission, error)
		GradeSubmission(ctx context.Context, id string, grade float64, feedback string) (Submission, error)
	}

	// ClassroomAccess resolves the classroom a teacher acts on.
	ClassroomAccess interface {
		TeacherClassroom(ctx context.Context, ident access.Identity, id string) (classroom.Classroom, error)
	}

	Service struct {
		repo       Repository
		classrooms ClassroomAccess
		storage    core.FileStorage
		notifier   core.ChangeNotifier
	}
)

func NewService(repo Repository, classrooms ClassroomAccess, storage core.FileStorage, notifier core.ChangeNotifier) *Service {
	if notifier == nil {
		notifier = core.NoopNotifier
	}
	return &Service{
		repo:       repo,
		classrooms: classrooms,
		storage:    storage,
		notifier:   notifier,
	}
}

// Assignments

// CreateAssignment posts an assignment to a classroom taught by the caller.
func (svc *Service) CreateAssignment(ctx context.Context, ident access.Identity, na NewAssignment) (Assignment, error) {
	room, err := svc.classrooms.TeacherClassroom(ctx, ident, na.ClassroomID)
	if err != nil {
		if core.IsNotFound(err) {
			return Assignment{}, core.NewValidationError(nil, core.FieldError{Field: "classroom_id", Error: err.Error()})
		}
		return Assignment{}, err
	}

	asgmt := Assignment{
		Title:       na.Title,
		Description: na.Description,
		Points:      *na.Points,
		Status:      na.Status,
		ClassroomID: room.ID,
		CreatedAt:   nowFunc(),
	}
	if na.DueDate != nil {
		asgmt.DueDate = null.TimeFrom(na.DueDate.UTC())
	}
	if asgmt, err = svc.repo.CreateAssignment(ctx, asgmt); err != nil {
		return Assignment{}, errors.Wrap(err, "creating assignment")
	}
	svc.notifier.NotifyChange(ctx)
	return asgmt, nil
}

func (svc *Service) QueryAssignments(ctx context.Context, ident access.Identity, filter *ListFilter) ([]Assignment, error) {
	scope, err := ident.Scope(access.Assignments)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryAssignments(ctx, scope, filter)
}

func (svc *Service) GetAssignment(ctx context.Context, ident access.Identity, id string) (Assignment, error) {
	scope, err := ident.Scope(access.Assignments)
	if err != nil {
		return Assignment{}, err
	}
	return svc.repo.GetAssignment(ctx, scope, id)
}

// UpdateAssignment lets the classroom teacher change an assignment.
func (svc *Service) UpdateAssignment(ctx context.Context, ident access.Identity, id string, ua UpdateAssignment) (Assignment, error) {
	asgmt, err := svc.GetAssignment(ctx, ident, id)
	if err != nil {
		return Assignment{}, err
	}
	if _, err = svc.classrooms.TeacherClassroom(ctx, ident, asgmt.ClassroomID); err != nil {
		return Assignment{}, err
	}

	if ua.Title != nil {
		asgmt.Title = *ua.Title
	}
	if ua.Description != nil {
		asgmt.Description = *ua.Description
	}
	if ua.DueDate != nil {
		asgmt.DueDate = null.TimeFrom(ua.DueDate.UTC())
	}
	if ua.Points != nil {
		asgmt.Points = *ua.Points
	}
	if ua.Status != nil {
		asgmt.Status = *ua.Status
	}
	if asgmt, err = svc.repo.UpdateAssignment(ctx, asgmt); err != nil {
		return Assignment{}, errors.Wrap(err, "updating assignment")
	}
	svc.notifier.NotifyChange(ctx)
	return asgmt, nil
}

// DeleteAssignment lets the classroom teacher or an admin delete an assignment with its submissions.
func (svc *Service) DeleteAssignment(ctx context.Context, ident access.Identity, id string) error {
	asgmt, err := svc.GetAssignment(ctx, ident, id)
	if err != nil {
		return err
	}
	if !ident.IsAdmin() {
		if _, err = svc.classrooms.TeacherClassroom(ctx, ident, asgmt.ClassroomID); err != nil {
			return err
		}
	}
	if err = svc.repo.DeleteAssignment(ctx, asgmt.ID); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	svc.notifier.NotifyChange(ctx)
	return nil
}

// Submissions

// Submit creates or replaces the caller's submission to an assignment of one of their classrooms.
// An uploaded file is saved to the file storage and its URL becomes the attachment.
func (svc *Service) Submit(ctx context.Context, ident access.Identity, assignmentID string, ns NewSubmission, file *Upload) (Submission, error) {
	if err := ident.Validate(); err != nil {
		return Submission{}, err
	}
	if !ident.IsStudent() {
		return Submission{}, ErrOnlyStudentsSubmit
	}
	asgmt, err := svc.GetAssignment(ctx, ident, assignmentID)
	if err != nil {
		return Submission{}, err
	}

	attachment := ns.Attachment
	if file != nil {
		if svc.storage == nil {
			return Submission{}, errors.New("file storage not configured")
		}
		if attachment, err = svc.storage.Save(ctx, file.Key(asgmt.ID, ident.UserID), file.Reader); err != nil {
			return Submission{}, errors.Wrap(err, "saving attachment")
		}
	}

	sub, err := svc.repo.UpsertSubmission(ctx, Submission{
		AssignmentID: asgmt.ID,
		StudentID:    ident.UserID,
		Content:      ns.Content,
		Attachment:   attachment,
		SubmittedAt:  nowFunc(),
	})
	if err != nil {
		return Submission{}, errors.Wrap(err, "saving submission")
	}
	svc.notifier.NotifyChange(ctx)
	return sub, nil
}

// QuerySubmissions lists the submissions to an assignment visible to the caller.
func (svc *Service) QuerySubmissions(ctx context.Context, ident access.Identity, assignmentID string) ([]Submission, error) {
	asgmt, err := svc.GetAssignment(ctx, ident, assignmentID)
	if err != nil {
		return nil, err
	}
	scope, err := ident.Scope(access.Submissions)
	if err != nil {
		return nil, err
	}
	return svc.repo.QuerySubmissions(ctx, scope, &ListFilter{AssignmentID: asgmt.ID})
}

// PendingSubmissions lists the ungraded submissions of the classrooms taught by the caller.
func (svc *Service) PendingSubmissions(ctx context.Context, ident access.Identity) ([]Submission, error) {
	if err := ident.Validate(); err != nil {
		return nil, err
	}
	if !ident.IsTeacher() {
		return nil, ErrOnlyTeachers
	}
	return svc.repo.QuerySubmissions(ctx, access.TaughtBy(ident.UserID), &ListFilter{Pending: true})
}

// Grade sets the grade and feedback of a submission to an assignment of a classroom taught by the caller.
func (svc *Service) Grade(ctx context.Context, ident access.Identity, submissionID string, gs GradeSubmission) (Submission, error) {
	if err := ident.Validate(); err != nil {
		return Submission{}, err
	}
	if _, err := svc.repo.GetSubmission(ctx, access.All(), submissionID); err != nil {
		return Submission{}, err
	}
	if !ident.IsTeacher() {
		return Submission{}, ErrNotSubmissionOwner
	}
	if _, err := svc.repo.GetSubmission(ctx, access.TaughtBy(ident.UserID), submissionID); err != nil {
		if core.IsNotFound(err) {
			return Submission{}, ErrNotSubmissionOwner
		}
		return Submission{}, err
	}

	sub, err := svc.repo.GradeSubmission(ctx, submissionID, *gs.Grade, gs.Feedback)
	if err != nil {
		return Submission{}, errors.Wrap(err, "grading submission")
	}
	svc.notifier.NotifyChange(ctx)
	return sub, nil
}
