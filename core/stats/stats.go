// Package stats computes the dashboard aggregates of admins, teachers and students.
package stats

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/classroom"
)

var (
	ErrAdminOnly   = core.NewPermissionError("only admins can access these stats")
	ErrTeacherOnly = core.NewPermissionError("only teachers can access these stats")
	ErrStudentOnly = core.NewPermissionError("only students can access these stats")
)

type (
	Global struct {
		TotalUsers       int `json:"total_users" db:"total_users"`
		TotalCourses     int `json:"total_courses" db:"total_courses"`
		TotalClassrooms  int `json:"total_classrooms" db:"total_classrooms"`
		TotalAssignments int `json:"total_assignments" db:"total_assignments"`
		// PendingRequests has no backing data and is always 0.
		PendingRequests int `json:"pending_requests" db:"-"`
	}

	Teacher struct {
		TotalCourses       int `json:"total_courses" db:"total_courses"`
		ActiveClassrooms   int `json:"active_classrooms" db:"active_classrooms"`
		PendingSubmissions int `json:"pending_submissions" db:"pending_submissions"`
		TotalStudents      int `json:"total_students" db:"total_students"`
		AssignmentsGiven   int `json:"assignments_given" db:"assignments_given"`
	}

	Student struct {
		EnrolledCourses    int     `json:"enrolled_courses"`
		PendingAssignments int     `json:"pending_assignments"`
		Attendance         float64 `json:"attendance"`
		CompletedCourses   int     `json:"completed_courses"`
		GPA                float64 `json:"gpa"`
	}

	// StudentCounts holds the raw numbers Student is derived from.
	StudentCounts struct {
		EnrolledCourses    int      `db:"enrolled_courses"`
		PendingAssignments int      `db:"pending_assignments"`
		AttendancePresent  int      `db:"attendance_present"`
		AttendanceTotal    int      `db:"attendance_total"`
		CompletedCourses   int      `db:"completed_courses"`
		GradeLetters       []string `db:"-"`
	}
)

// Student derives the student dashboard.
// Attendance is the share of present records (1 decimal), 100 without records.
// GPA is the mean 4.0-scale value of the grade letters (2 decimals), 0 without grades.
func (sc StudentCounts) Student() Student {
	attendance := 100.0
	if sc.AttendanceTotal > 0 {
		attendance = core.Round(float64(sc.AttendancePresent)/float64(sc.AttendanceTotal)*100, 1)
	}
	var gpa float64
	if len(sc.GradeLetters) > 0 {
		var total float64
		for _, l := range sc.GradeLetters {
			total += classroom.LetterPoints(l)
		}
		gpa = core.Round(total/float64(len(sc.GradeLetters)), 2)
	}
	return Student{
		EnrolledCourses:    sc.EnrolledCourses,
		PendingAssignments: sc.PendingAssignments,
		Attendance:         attendance,
		CompletedCourses:   sc.CompletedCourses,
		GPA:                gpa,
	}
}

type (
	Repository interface {
		GlobalStats(ctx context.Context) (Global, error)
		TeacherStats(ctx context.Context, teacherID string) (Teacher, error)
		StudentCounts(ctx context.Context, studentID string) (StudentCounts, error)
	}

	// Cache stores computed dashboards per generation. Invalidate starts a new generation,
	// dropping every entry at once.
	Cache interface {
		Generation(ctx context.Context) (int64, error)
		Get(ctx context.Context, gen int64, key string, dest interface{}) (bool, error)
		Set(ctx context.Context, gen int64, key string, val interface{}) error
		Invalidate(ctx context.Context) error
	}

	Service struct {
		repo   Repository
		cache  Cache
		logger core.Logger
	}
)

var _ core.ChangeNotifier = (*Service)(nil)

// NewService returns a stats Service. `cache` may be nil: views are then computed on every call.
func NewService(repo Repository, cache Cache, logger core.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

func (svc *Service) Global(ctx context.Context, ident access.Identity) (Global, error) {
	if err := ident.Validate(); err != nil {
		return Global{}, err
	}
	if !ident.IsAdmin() {
		return Global{}, ErrAdminOnly
	}
	var res Global
	err := svc.cached(ctx, ident, &res, func() (interface{}, error) {
		g, err := svc.repo.GlobalStats(ctx)
		return g, errors.Wrap(err, "computing global stats")
	})
	return res, err
}

func (svc *Service) Teacher(ctx context.Context, ident access.Identity) (Teacher, error) {
	if err := ident.Validate(); err != nil {
		return Teacher{}, err
	}
	if !ident.IsTeacher() {
		return Teacher{}, ErrTeacherOnly
	}
	var res Teacher
	err := svc.cached(ctx, ident, &res, func() (interface{}, error) {
		t, err := svc.repo.TeacherStats(ctx, ident.UserID)
		return t, errors.Wrap(err, "computing teacher stats")
	})
	return res, err
}

func (svc *Service) Student(ctx context.Context, ident access.Identity) (Student, error) {
	if err := ident.Validate(); err != nil {
		return Student{}, err
	}
	if !ident.IsStudent() {
		return Student{}, ErrStudentOnly
	}
	var res Student
	err := svc.cached(ctx, ident, &res, func() (interface{}, error) {
		sc, err := svc.repo.StudentCounts(ctx, ident.UserID)
		if err != nil {
			return nil, errors.Wrap(err, "computing student stats")
		}
		return sc.Student(), nil
	})
	return res, err
}

// NotifyChange drops every cached dashboard.
func (svc *Service) NotifyChange(ctx context.Context) {
	if svc.cache == nil {
		return
	}
	if err := svc.cache.Invalidate(ctx); err != nil {
		svc.logger.Error("invalidating stats cache", err)
	}
}

// cached reads the view of `ident` into `dest` from the cache, computing and storing it on a miss.
// The generation is read once, before computing: a view computed while an invalidation
// happens is stored under the older generation and never served.
// Cache failures are logged and the view computed.
func (svc *Service) cached(ctx context.Context, ident access.Identity, dest interface{}, compute func() (interface{}, error)) error {
	key := cacheKey(ident)
	useCache := svc.cache != nil
	var gen int64
	if useCache {
		var err error
		if gen, err = svc.cache.Generation(ctx); err != nil {
			svc.logger.Warn("reading stats cache", err)
			useCache = false
		}
	}
	if useCache {
		found, err := svc.cache.Get(ctx, gen, key, dest)
		if err != nil {
			svc.logger.Warn("reading stats cache", err)
		} else if found {
			return nil
		}
	}

	val, err := compute()
	if err != nil {
		return err
	}
	assign(dest, val)

	if useCache {
		if err = svc.cache.Set(ctx, gen, key, val); err != nil {
			svc.logger.Warn("writing stats cache", err)
		}
	}
	return nil
}

func cacheKey(ident access.Identity) string {
	return ident.Role.String() + ":" + ident.UserID
}

func assign(dest, val interface{}) {
	switch d := dest.(type) {
	case *Global:
		*d = val.(Global)
	case *Teacher:
		*d = val.(Teacher)
	case *Student:
		*d = val.(Student)
	}
}
