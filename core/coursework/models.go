package coursework

import (
	"io"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
)

// Assignment statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

const defaultPoints = 100

type (
	Assignment struct {
		ID          string    `json:"id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		DueDate     null.Time `json:"due_date"` // UTC
		Points      int       `json:"points"`
		Status      string    `json:"status"`
		ClassroomID string    `json:"classroom_id"`
		CreatedAt   time.Time `json:"created_at"` // UTC
	}

	Submission struct {
		ID           string       `json:"id"`
		AssignmentID string       `json:"assignment_id"`
		StudentID    string       `json:"student_id"`
		Content      string       `json:"content"`
		Attachment   string       `json:"attachment"`
		Grade        null.Float64 `json:"grade"`
		Feedback     string       `json:"feedback"`
		SubmittedAt  time.Time    `json:"submitted_at"` // UTC
	}
)

func (s Submission) IsPending() bool { return !s.Grade.Valid }

type NewAssignment struct {
	Title       string     `json:"title" validate:"required,notblank,max=255"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Points      *int       `json:"points" validate:"omitempty,gte=0"`
	Status      string     `json:"status" validate:"omitempty,oneof=draft published"`
	ClassroomID string     `json:"classroom_id" validate:"required,uuid"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.Status = core.CleanString(na.Status, true /* lower */)
	na.ClassroomID = core.CleanString(na.ClassroomID, true /* lower */)
	if na.Status == "" {
		na.Status = StatusPublished
	}
	if na.Points == nil {
		points := defaultPoints
		na.Points = &points
	}
	return validate.Struct(na)
}

// UpdateAssignment only changes the provided fields.
type UpdateAssignment struct {
	Title       *string    `json:"title" validate:"omitempty,max=255"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Points      *int       `json:"points" validate:"omitempty,gte=0"`
	Status      *string    `json:"status" validate:"omitempty,oneof=draft published"`
}

func (ua *UpdateAssignment) Validate(validate *validator.Validate) error {
	clean := func(s *string, lower bool) *string {
		if s == nil {
			return nil
		}
		c := core.CleanString(*s, lower)
		return &c
	}
	ua.Title = clean(ua.Title, false)
	ua.Description = clean(ua.Description, false)
	ua.Status = clean(ua.Status, true)
	if ua.Title != nil && *ua.Title == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "title", Error: "this field cannot be blank"})
	}
	if ua.Status != nil && *ua.Status == "" {
		ua.Status = nil
	}
	return validate.Struct(ua)
}

// NewSubmission is the body of a submission; Attachment is a URL unless a file is uploaded.
type NewSubmission struct {
	Content    string `json:"content" form:"content"`
	Attachment string `json:"attachment" form:"attachment" validate:"omitempty,url"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate, file *Upload) error {
	ns.Content = core.CleanString(ns.Content)
	ns.Attachment = core.CleanString(ns.Attachment)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	if ns.Content == "" && ns.Attachment == "" && file == nil {
		return core.NewValidationError(nil, core.FieldError{Field: "content", Error: "content or attachment is required"})
	}
	return nil
}

// Upload is an attachment file sent along a submission.
type Upload struct {
	Filename string
	Reader   io.Reader
}

// Key returns the storage key of the upload for a student's submission.
func (u Upload) Key(assignmentID, studentID string) string {
	name := strings.ReplaceAll(path.Base(strings.ReplaceAll(u.Filename, `\`, "/")), " ", "_")
	if name == "" || name == "." || name == ".." || name == "/" {
		name = "attachment"
	}
	return path.Join("submissions", assignmentID, studentID, name)
}

type GradeSubmission struct {
	Grade    *float64 `json:"grade" validate:"required,gte=0"`
	Feedback string   `json:"feedback"`
}

func (gs *GradeSubmission) Validate(validate *validator.Validate) error {
	gs.Feedback = core.CleanString(gs.Feedback)
	return validate.Struct(gs)
}

type ListFilter struct {
	ClassroomID  string `query:"classroomId"`
	AssignmentID string `query:"-"`
	Pending      bool   `query:"-"`
}

func (lf *ListFilter) Clean() {
	lf.ClassroomID = core.CleanString(lf.ClassroomID, true /* lower */)
}
