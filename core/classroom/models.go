package classroom

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

// Attendance statuses
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
)

const defaultMaxScore = 100

type (
	Course struct {
		ID          string    `json:"id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Thumbnail   string    `json:"thumbnail"`
		TeacherID   string    `json:"teacher_id"`
		CreatedAt   time.Time `json:"created_at"` // UTC
		UpdatedAt   time.Time `json:"updated_at"` // UTC
	}

	Classroom struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Section   string    `json:"section"`
		Code      string    `json:"code"`
		CourseID  string    `json:"course_id"`
		TeacherID string    `json:"teacher_id"`
		CreatedAt time.Time `json:"created_at"` // UTC
	}

	Enrollment struct {
		ID          string    `json:"id"`
		UserID      string    `json:"user_id"`
		ClassroomID string    `json:"classroom_id"`
		EnrolledAt  time.Time `json:"enrolled_at"` // UTC
	}

	Announcement struct {
		ID          string    `json:"id"`
		Title       string    `json:"title"`
		Content     string    `json:"content"`
		ClassroomID string    `json:"classroom_id"`
		AuthorID    string    `json:"author_id"`
		CreatedAt   time.Time `json:"created_at"` // UTC
	}

	Attendance struct {
		ID          string    `json:"id"`
		UserID      string    `json:"user_id"`
		ClassroomID string    `json:"classroom_id"`
		Date        core.Date `json:"date"`
		Status      string    `json:"status"`
	}

	Grade struct {
		ID          string    `json:"id"`
		UserID      string    `json:"user_id"`
		ClassroomID string    `json:"classroom_id"`
		Title       string    `json:"title"`
		Score       float64   `json:"score"`
		MaxScore    float64   `json:"max_score"`
		Date        core.Date `json:"date"`
		GradeLetter string    `json:"grade_letter"`
	}
)

// GradeLetter maps a score to its letter: A >= 90%, B >= 80%, C >= 70%, D >= 60%, F otherwise.
func GradeLetter(score, maxScore float64) string {
	if maxScore <= 0 {
		return "F"
	}
	pct := score / maxScore * 100
	switch {
	case pct >= 90:
		return "A"
	case pct >= 80:
		return "B"
	case pct >= 70:
		return "C"
	case pct >= 60:
		return "D"
	}
	return "F"
}

// LetterPoints is the 4.0 scale value of a grade letter.
func LetterPoints(letter string) float64 {
	switch strings.ToUpper(letter) {
	case "A":
		return 4
	case "B":
		return 3
	case "C":
		return 2
	case "D":
		return 1
	}
	return 0
}

type NewCourse struct {
	Title       string `json:"title" validate:"required,notblank,max=255"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail" validate:"omitempty,url"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Thumbnail = core.CleanString(nc.Thumbnail)
	return validate.Struct(nc)
}

// UpdateCourse only changes the provided fields.
type UpdateCourse struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=255"`
	Description *string `json:"description"`
	Thumbnail   *string `json:"thumbnail" validate:"omitempty,url"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Title = cleanOptional(uc.Title)
	uc.Description = cleanOptional(uc.Description)
	uc.Thumbnail = cleanOptional(uc.Thumbnail)
	if err := notBlankOptional("title", uc.Title); err != nil {
		return err
	}
	return validate.Struct(uc)
}

type NewClassroom struct {
	Name     string `json:"name" validate:"required,notblank,max=255"`
	Section  string `json:"section" validate:"max=255"`
	CourseID string `json:"course_id" validate:"required,uuid"`
}

func (nc *NewClassroom) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Section = core.CleanString(nc.Section)
	nc.CourseID = core.CleanString(nc.CourseID, true /* lower */)
	return validate.Struct(nc)
}

type JoinRequest struct {
	Code string `json:"code" validate:"required"`
}

// Validate trims and upper-cases the code.
func (jr *JoinRequest) Validate(validate *validator.Validate) error {
	jr.Code = strings.ToUpper(core.CleanString(jr.Code))
	return validate.Struct(jr)
}

type NewAnnouncement struct {
	Title       string `json:"title" validate:"required,notblank,max=255"`
	Content     string `json:"content" validate:"required,notblank"`
	ClassroomID string `json:"classroom_id" validate:"required,uuid"`
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Content = core.CleanString(na.Content)
	na.ClassroomID = core.CleanString(na.ClassroomID, true /* lower */)
	return validate.Struct(na)
}

// UpdateAnnouncement only changes the provided fields.
type UpdateAnnouncement struct {
	Title   *string `json:"title" validate:"omitempty,max=255"`
	Content *string `json:"content"`
}

func (ua *UpdateAnnouncement) Validate(validate *validator.Validate) error {
	ua.Title = cleanOptional(ua.Title)
	ua.Content = cleanOptional(ua.Content)
	if err := notBlankOptional("title", ua.Title); err != nil {
		return err
	}
	if err := notBlankOptional("content", ua.Content); err != nil {
		return err
	}
	return validate.Struct(ua)
}

type NewAttendance struct {
	UserID      string `json:"user_id" validate:"required,uuid"`
	ClassroomID string `json:"classroom_id" validate:"required,uuid"`
	DateStr     string `json:"date"`
	Status      string `json:"status" validate:"required,oneof=present absent late"`

	Date core.Date `json:"-"`
}

// Validate parses the date, defaulting to today.
func (na *NewAttendance) Validate(validate *validator.Validate) error {
	na.UserID = core.CleanString(na.UserID, true /* lower */)
	na.ClassroomID = core.CleanString(na.ClassroomID, true /* lower */)
	na.Status = core.CleanString(na.Status, true /* lower */)
	if err := validate.Struct(na); err != nil {
		return err
	}
	date, err := parseDateField(na.DateStr)
	if err != nil {
		return err
	}
	na.Date = date
	return nil
}

// UpdateAttendance corrects the status of an attendance record.
type UpdateAttendance struct {
	Status string `json:"status" validate:"required,oneof=present absent late"`
}

func (ua *UpdateAttendance) Validate(validate *validator.Validate) error {
	ua.Status = core.CleanString(ua.Status, true /* lower */)
	return validate.Struct(ua)
}

type NewGrade struct {
	UserID      string   `json:"user_id" validate:"required,uuid"`
	ClassroomID string   `json:"classroom_id" validate:"required,uuid"`
	Title       string   `json:"title" validate:"required,notblank,max=255"`
	Score       *float64 `json:"score" validate:"required,gte=0"`
	MaxScore    float64  `json:"max_score" validate:"gte=0"`
	DateStr     string   `json:"date"`
	GradeLetter string   `json:"grade_letter" validate:"omitempty,oneof=A B C D F"`

	Date core.Date `json:"-"`
}

// Validate parses the date and fills MaxScore and GradeLetter when omitted.
func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.UserID = core.CleanString(ng.UserID, true /* lower */)
	ng.ClassroomID = core.CleanString(ng.ClassroomID, true /* lower */)
	ng.Title = core.CleanString(ng.Title)
	ng.GradeLetter = strings.ToUpper(core.CleanString(ng.GradeLetter))
	if err := validate.Struct(ng); err != nil {
		return err
	}
	if ng.MaxScore == 0 {
		ng.MaxScore = defaultMaxScore
	}
	date, err := parseDateField(ng.DateStr)
	if err != nil {
		return err
	}
	ng.Date = date
	if ng.GradeLetter == "" {
		ng.GradeLetter = GradeLetter(*ng.Score, ng.MaxScore)
	}
	return nil
}

// UpdateGrade only changes the provided fields.
// The letter is derived again from the new score when it is not given.
type UpdateGrade struct {
	Title       *string  `json:"title" validate:"omitempty,max=255"`
	Score       *float64 `json:"score" validate:"omitempty,gte=0"`
	MaxScore    *float64 `json:"max_score" validate:"omitempty,gt=0"`
	DateStr     *string  `json:"date"`
	GradeLetter *string  `json:"grade_letter" validate:"omitempty,oneof=A B C D F"`

	Date *core.Date `json:"-"`
}

func (ug *UpdateGrade) Validate(validate *validator.Validate) error {
	ug.Title = cleanOptional(ug.Title)
	if ug.GradeLetter != nil {
		letter := strings.ToUpper(core.CleanString(*ug.GradeLetter))
		ug.GradeLetter = &letter
	}
	if err := notBlankOptional("title", ug.Title); err != nil {
		return err
	}
	if err := validate.Struct(ug); err != nil {
		return err
	}
	if ug.DateStr != nil {
		date, err := parseDateField(*ug.DateStr)
		if err != nil {
			return err
		}
		ug.Date = &date
	}
	return nil
}

// apply changes `grade` in place.
func (ug UpdateGrade) apply(grade *Grade) {
	if ug.Title != nil {
		grade.Title = *ug.Title
	}
	if ug.Score != nil {
		grade.Score = *ug.Score
	}
	if ug.MaxScore != nil {
		grade.MaxScore = *ug.MaxScore
	}
	if ug.Date != nil {
		grade.Date = *ug.Date
	}
	switch {
	case ug.GradeLetter != nil && *ug.GradeLetter != "":
		grade.GradeLetter = *ug.GradeLetter
	case ug.Score != nil || ug.MaxScore != nil:
		grade.GradeLetter = GradeLetter(grade.Score, grade.MaxScore)
	}
}

func cleanOptional(s *string) *string {
	if s == nil {
		return nil
	}
	c := core.CleanString(*s)
	return &c
}

func notBlankOptional(field string, s *string) error {
	if s != nil && *s == "" {
		return core.NewValidationError(nil, core.FieldError{Field: field, Error: "this field cannot be blank"})
	}
	return nil
}

func parseDateField(s string) (core.Date, error) {
	s = core.CleanString(s)
	if s == "" {
		return core.Today(), nil
	}
	date, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: "date must be formatted as YYYY-MM-DD"})
	}
	return date, nil
}

// ListFilter narrows classroom-bound collections.
type ListFilter struct {
	CourseID    string `query:"courseId"`
	ClassroomID string `query:"classroomId"`
}

func (lf *ListFilter) Clean() {
	lf.CourseID = core.CleanString(lf.CourseID, true /* lower */)
	lf.ClassroomID = core.CleanString(lf.ClassroomID, true /* lower */)
}

// Gradebook gathers a classroom roster and grades for export.
type Gradebook struct {
	Classroom Classroom
	Students  []Student
	Grades    []Grade
}

// Student is a roster entry.
type Student struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	PhotoURL   string    `json:"photo_url"`
	EnrolledAt time.Time `json:"enrolled_at"` // UTC
}
