package classroom

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
)

var (
	// errors
	ErrCourseNotFound       = core.NewNotFoundError("course not found")
	ErrClassroomNotFound    = core.NewNotFoundError("classroom not found")
	ErrAnnouncementNotFound = core.NewNotFoundError("announcement not found")
	ErrAttendanceNotFound   = core.NewNotFoundError("attendance not found")
	ErrGradeNotFound        = core.NewNotFoundError("grade not found")
	ErrCodeExists           = core.NewConflictError("a classroom with this code already exists")
	ErrAlreadyEnrolled      = core.NewConflictError("user is already enrolled in this classroom")
	ErrAttendanceExists     = core.NewConflictError("attendance already marked for this user and date")
	ErrNotEnrolled          = errors.New("user is not enrolled in this classroom")
	ErrOnlyStudentsJoin     = core.NewPermissionError("only students can join classrooms")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, course Course) (Course, error)
		QueryCourses(ctx context.Context, scope access.Scope, filter *ListFilter) ([]Course, error)
		GetCourse(ctx context.Context, scope access.Scope, id string) (Course, error)
		UpdateCourse(ctx context.Context, course Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error

		// CreateClassroom fails with ErrCodeExists when the code is taken.
		CreateClassroom(ctx context.Context, room Classroom) (Classroom, error)
		QueryClassrooms(ctx context.Context, scope access.Scope, filter *ListFilter) ([]Classroom, error)
		GetClassroom(ctx context.Context, scope access.Scope, id string) (Classroom, error)
		GetClassroomByCode(ctx context.Context, code string) (Classroom, error)
		DeleteClassroom(ctx context.Context, id string) error

		// CreateEnrollment fails with ErrAlreadyEnrolled on a duplicate (user, classroom).
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		IsEnrolled(ctx context.Context, userID, classroomID string) (bool, error)
		QueryStudents(ctx context.Context, classroomID string) ([]Student, error)

		CreateAnnouncement(ctx context.Context, ann Announcement) (Announcement, error)
		QueryAnnouncements(ctx context.Context, scope access.Scope, filter *ListFilter) ([]Announcement, error)
		GetAnnouncement(ctx context.Context, scope access.Scope, id string) (Announcement, error)
		UpdateAnnouncement(ctx context.Context, ann Announcement) (Announcement, error)
		DeleteAnnouncement(ctx context.Context, id string) error

		// CreateAttendance fails with ErrAttendanceExists on a duplicate (user, classroom, date).
		CreateAttendance(ctx context.Context, att Attendance) (Attendance, error)
		QueryAttendance(ctx context.Context, scope access.Scope, filter *ListFilter) ([]Attendance, error)
		GetAttendance(ctx context.Context, scope access.Scope, id string) (Attendance, error)
		UpdateAttendance(ctx context.Context, att Attendance) (Attendance, error)
		DeleteAttendance(ctx context.Context, id string) error

		CreateGrade(ctx context.Context, grade Grade) (Grade, error)
		QueryGrades(ctx context.Context, scope access.Scope, filter *ListFilter) ([]Grade, error)
		GetGrade(ctx context.Context, scope access.Scope, id string) (Grade, error)
		UpdateGrade(ctx context.Context, grade Grade) (Grade, error)
		DeleteGrade(ctx context.Context, id string) error
	}

	// UserGetter looks up user names for notifications.
	UserGetter interface {
		GetName(ctx context.Context, id string) (string, error)
	}

	Service struct {
		repo     Repository
		users    UserGetter
		mailSvc  core.EmailService
		notifier core.ChangeNotifier
		logger   core.Logger
	}
)

func NewService(repo Repository, users UserGetter, mailSvc core.EmailService, notifier core.ChangeNotifier, logger core.Logger) *Service {
	if notifier == nil {
		notifier = core.NoopNotifier
	}
	return &Service{
		repo:     repo,
		users:    users,
		mailSvc:  mailSvc,
		notifier: notifier,
		logger:   logger,
	}
}

// Courses

func (svc *Service) CreateCourse(ctx context.Context, ident access.Identity, nc NewCourse) (Course, error) {
	if err := ident.Require(access.Teacher); err != nil {
		return Course{}, err
	}
	now := time.Now().UTC()
	course, err := svc.repo.CreateCourse(ctx, Course{
		Title:       nc.Title,
		Description: nc.Description,
		Thumbnail:   nc.Thumbnail,
		TeacherID:   ident.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Course{}, errors.Wrap(err, "creating course")
	}
	svc.notifier.NotifyChange(ctx)
	return course, nil
}

func (svc *Service) QueryCourses(ctx context.Context, ident access.Identity, filter *ListFilter) ([]Course, error) {
	scope, err := ident.Scope(access.Courses)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryCourses(ctx, scope, filter)
}

func (svc *Service) GetCourse(ctx context.Context, ident access.Identity, id string) (Course, error) {
	scope, err := ident.Scope(access.Courses)
	if err != nil {
		return Course{}, err
	}
	return svc.repo.GetCourse(ctx, scope, id)
}

// UpdateCourse lets the owning teacher change a course.
func (svc *Service) UpdateCourse(ctx context.Context, ident access.Identity, id string, uc UpdateCourse) (Course, error) {
	course, err := svc.GetCourse(ctx, ident, id)
	if err != nil {
		return Course{}, err
	}
	if !(ident.IsTeacher() && course.TeacherID == ident.UserID) {
		return Course{}, core.ErrPermissionDenied
	}

	if uc.Title != nil {
		course.Title = *uc.Title
	}
	if uc.Description != nil {
		course.Description = *uc.Description
	}
	if uc.Thumbnail != nil {
		course.Thumbnail = *uc.Thumbnail
	}
	course.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, course)
}

// DeleteCourse lets the owning teacher or an admin delete a course with its classrooms.
func (svc *Service) DeleteCourse(ctx context.Context, ident access.Identity, id string) error {
	course, err := svc.GetCourse(ctx, ident, id)
	if err != nil {
		return err
	}
	if !(ident.IsAdmin() || (ident.IsTeacher() && course.TeacherID == ident.UserID)) {
		return core.ErrPermissionDenied
	}
	if err = svc.repo.DeleteCourse(ctx, course.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	svc.notifier.NotifyChange(ctx)
	return nil
}

// Classrooms

// CreateClassroom opens a classroom under a course owned by the calling teacher.
func (svc *Service) CreateClassroom(ctx context.Context, ident access.Identity, nc NewClassroom) (Classroom, error) {
	if err := ident.Require(access.Teacher); err != nil {
		return Classroom{}, err
	}
	course, err := svc.repo.GetCourse(ctx, access.All(), nc.CourseID)
	if err != nil {
		if core.IsNotFound(err) {
			return Classroom{}, core.NewValidationError(nil, core.FieldError{Field: "course_id", Error: ErrCourseNotFound.Error()})
		}
		return Classroom{}, errors.Wrap(err, "finding course")
	}
	if course.TeacherID != ident.UserID {
		return Classroom{}, core.ErrPermissionDenied
	}

	room := Classroom{
		Name:      nc.Name,
		Section:   nc.Section,
		CourseID:  course.ID,
		TeacherID: ident.UserID,
		CreatedAt: time.Now().UTC(),
	}
	for attempt := 1; ; attempt++ {
		if room.Code, err = codeGenFunc(); err != nil {
			return Classroom{}, errors.Wrap(err, "generating join code")
		}
		var created Classroom
		created, err = svc.repo.CreateClassroom(ctx, room)
		if err == nil {
			room = created
			break
		}
		if !core.IsConflict(err) || attempt >= codeAttempts {
			return Classroom{}, errors.Wrap(err, "creating classroom")
		}
	}
	svc.notifier.NotifyChange(ctx)
	return room, nil
}

func (svc *Service) QueryClassrooms(ctx context.Context, ident access.Identity, filter *ListFilter) ([]Classroom, error) {
	scope, err := ident.Scope(access.Classrooms)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryClassrooms(ctx, scope, filter)
}

func (svc *Service) GetClassroom(ctx context.Context, ident access.Identity, id string) (Classroom, error) {
	scope, err := ident.Scope(access.Classrooms)
	if err != nil {
		return Classroom{}, err
	}
	return svc.repo.GetClassroom(ctx, scope, id)
}

// DeleteClassroom lets the classroom teacher or an admin delete a classroom and everything in it.
func (svc *Service) DeleteClassroom(ctx context.Context, ident access.Identity, id string) error {
	room, err := svc.GetClassroom(ctx, ident, id)
	if err != nil {
		return err
	}
	if !(ident.IsAdmin() || (ident.IsTeacher() && room.TeacherID == ident.UserID)) {
		return core.ErrPermissionDenied
	}
	if err = svc.repo.DeleteClassroom(ctx, room.ID); err != nil {
		return errors.Wrap(err, "deleting classroom")
	}
	svc.notifier.NotifyChange(ctx)
	return nil
}

// TeacherClassroom returns the classroom `id` if the caller teaches it.
// Unknown classrooms are NotFound; classrooms of other teachers (or non-teachers) are Forbidden.
func (svc *Service) TeacherClassroom(ctx context.Context, ident access.Identity, id string) (Classroom, error) {
	if err := ident.Require(access.Teacher); err != nil {
		return Classroom{}, err
	}
	room, err := svc.repo.GetClassroom(ctx, access.All(), id)
	if err != nil {
		return Classroom{}, err
	}
	if room.TeacherID != ident.UserID {
		return Classroom{}, core.ErrPermissionDenied
	}
	return room, nil
}

// manage checks that the caller may change records of a classroom: its teacher, or an admin when `allowAdmin`.
func (svc *Service) manage(ctx context.Context, ident access.Identity, classroomID string, allowAdmin bool) error {
	if allowAdmin && ident.IsAdmin() {
		return nil
	}
	if !ident.IsTeacher() {
		return core.ErrPermissionDenied
	}
	room, err := svc.repo.GetClassroom(ctx, access.All(), classroomID)
	if err != nil {
		return err
	}
	if room.TeacherID != ident.UserID {
		return core.ErrPermissionDenied
	}
	return nil
}

// Students returns the roster of a classroom to its teacher or an admin.
func (svc *Service) Students(ctx context.Context, ident access.Identity, classroomID string) ([]Student, error) {
	room, err := svc.GetClassroom(ctx, ident, classroomID)
	if err != nil {
		return nil, err
	}
	if !(ident.IsAdmin() || (ident.IsTeacher() && room.TeacherID == ident.UserID)) {
		return nil, core.ErrPermissionDenied
	}
	return svc.repo.QueryStudents(ctx, room.ID)
}

// Join enrolls the calling student in the classroom holding `code`. Joining twice is a no-op.
func (svc *Service) Join(ctx context.Context, ident access.Identity, jr JoinRequest) (Classroom, error) {
	if err := ident.Validate(); err != nil {
		return Classroom{}, err
	}
	if !ident.IsStudent() {
		return Classroom{}, ErrOnlyStudentsJoin
	}
	if !isValidCode(jr.Code) {
		return Classroom{}, ErrClassroomNotFound
	}

	room, err := svc.repo.GetClassroomByCode(ctx, jr.Code)
	if err != nil {
		return Classroom{}, err
	}

	enrolled, err := svc.repo.IsEnrolled(ctx, ident.UserID, room.ID)
	if err != nil {
		return Classroom{}, errors.Wrap(err, "checking enrollment")
	}
	if enrolled {
		return room, nil
	}
	_, err = svc.repo.CreateEnrollment(ctx, Enrollment{
		UserID:      ident.UserID,
		ClassroomID: room.ID,
		EnrolledAt:  time.Now().UTC(),
	})
	if err != nil {
		// a concurrent join already enrolled the student
		if core.IsConflict(err) {
			return room, nil
		}
		return Classroom{}, errors.Wrap(err, "creating enrollment")
	}
	svc.notifier.NotifyChange(ctx)
	return room, nil
}

// Announcements

func (svc *Service) QueryAnnouncements(ctx context.Context, ident access.Identity, filter *ListFilter) ([]Announcement, error) {
	scope, err := ident.Scope(access.Announcements)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryAnnouncements(ctx, scope, filter)
}

// CreateAnnouncement posts to a classroom taught by the caller and emails its students.
func (svc *Service) CreateAnnouncement(ctx context.Context, ident access.Identity, na NewAnnouncement) (Announcement, error) {
	room, err := svc.TeacherClassroom(ctx, ident, na.ClassroomID)
	if err != nil {
		return Announcement{}, err
	}
	ann, err := svc.repo.CreateAnnouncement(ctx, Announcement{
		Title:       na.Title,
		Content:     na.Content,
		ClassroomID: room.ID,
		AuthorID:    ident.UserID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return Announcement{}, errors.Wrap(err, "creating announcement")
	}

	if err = svc.notifyStudents(ctx, room, ann); err != nil {
		// the announcement stays saved
		svc.logger.Error("sending announcement emails", errors.Wrap(err, "notifying students"), ident,
			map[string]interface{}{"classroom_id": room.ID, "announcement_id": ann.ID})
	}
	return ann, nil
}

func (svc *Service) GetAnnouncement(ctx context.Context, ident access.Identity, id string) (Announcement, error) {
	scope, err := ident.Scope(access.Announcements)
	if err != nil {
		return Announcement{}, err
	}
	return svc.repo.GetAnnouncement(ctx, scope, id)
}

// UpdateAnnouncement lets the classroom teacher edit an announcement. Students are not emailed again.
func (svc *Service) UpdateAnnouncement(ctx context.Context, ident access.Identity, id string, ua UpdateAnnouncement) (Announcement, error) {
	ann, err := svc.GetAnnouncement(ctx, ident, id)
	if err != nil {
		return Announcement{}, err
	}
	if err = svc.manage(ctx, ident, ann.ClassroomID, false); err != nil {
		return Announcement{}, err
	}

	if ua.Title != nil {
		ann.Title = *ua.Title
	}
	if ua.Content != nil {
		ann.Content = *ua.Content
	}
	if ann, err = svc.repo.UpdateAnnouncement(ctx, ann); err != nil {
		return Announcement{}, errors.Wrap(err, "updating announcement")
	}
	return ann, nil
}

// DeleteAnnouncement lets the classroom teacher or an admin delete an announcement.
func (svc *Service) DeleteAnnouncement(ctx context.Context, ident access.Identity, id string) error {
	ann, err := svc.GetAnnouncement(ctx, ident, id)
	if err != nil {
		return err
	}
	if err = svc.manage(ctx, ident, ann.ClassroomID, true); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteAnnouncement(ctx, ann.ID), "deleting announcement")
}

func (svc *Service) notifyStudents(ctx context.Context, room Classroom, ann Announcement) error {
	students, err := svc.repo.QueryStudents(ctx, room.ID)
	if err != nil {
		return err
	}
	if len(students) == 0 {
		return nil
	}
	author, err := svc.users.GetName(ctx, ann.AuthorID)
	if err != nil {
		return err
	}

	messages := make([]*core.EmailMessage, 0, len(students))
	for _, s := range students {
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Name: s.Name, Address: s.Email}},
			Subject:      room.Name + ": " + ann.Title,
			TemplateName: "announcement",
			TemplateData: map[string]interface{}{
				"ClassroomID":   room.ID,
				"ClassroomName": room.Name,
				"Title":         ann.Title,
				"Content":       ann.Content,
				"AuthorName":    author,
			},
		})
	}
	svc.mailSvc.SendMessages(messages...)
	return nil
}

// Attendance

func (svc *Service) QueryAttendance(ctx context.Context, ident access.Identity, filter *ListFilter) ([]Attendance, error) {
	scope, err := ident.Scope(access.AttendanceRecords)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryAttendance(ctx, scope, filter)
}

// MarkAttendance records a student's presence for a day. A second mark for the same day is a Conflict.
func (svc *Service) MarkAttendance(ctx context.Context, ident access.Identity, na NewAttendance) (Attendance, error) {
	room, err := svc.TeacherClassroom(ctx, ident, na.ClassroomID)
	if err != nil {
		return Attendance{}, err
	}
	if err = svc.checkEnrolled(ctx, na.UserID, room.ID); err != nil {
		return Attendance{}, err
	}

	att, err := svc.repo.CreateAttendance(ctx, Attendance{
		UserID:      na.UserID,
		ClassroomID: room.ID,
		Date:        na.Date,
		Status:      na.Status,
	})
	if err != nil {
		if core.IsConflict(err) {
			return Attendance{}, err
		}
		return Attendance{}, errors.Wrap(err, "creating attendance")
	}
	svc.notifier.NotifyChange(ctx)
	return att, nil
}

func (svc *Service) GetAttendance(ctx context.Context, ident access.Identity, id string) (Attendance, error) {
	scope, err := ident.Scope(access.AttendanceRecords)
	if err != nil {
		return Attendance{}, err
	}
	return svc.repo.GetAttendance(ctx, scope, id)
}

// UpdateAttendance lets the classroom teacher correct the status of a record.
func (svc *Service) UpdateAttendance(ctx context.Context, ident access.Identity, id string, ua UpdateAttendance) (Attendance, error) {
	att, err := svc.GetAttendance(ctx, ident, id)
	if err != nil {
		return Attendance{}, err
	}
	if err = svc.manage(ctx, ident, att.ClassroomID, false); err != nil {
		return Attendance{}, err
	}

	att.Status = ua.Status
	if att, err = svc.repo.UpdateAttendance(ctx, att); err != nil {
		return Attendance{}, errors.Wrap(err, "updating attendance")
	}
	svc.notifier.NotifyChange(ctx)
	return att, nil
}

// DeleteAttendance lets the classroom teacher or an admin delete a record.
func (svc *Service) DeleteAttendance(ctx context.Context, ident access.Identity, id string) error {
	att, err := svc.GetAttendance(ctx, ident, id)
	if err != nil {
		return err
	}
	if err = svc.manage(ctx, ident, att.ClassroomID, true); err != nil {
		return err
	}
	if err = svc.repo.DeleteAttendance(ctx, att.ID); err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	svc.notifier.NotifyChange(ctx)
	return nil
}

// Grades

func (svc *Service) QueryGrades(ctx context.Context, ident access.Identity, filter *ListFilter) ([]Grade, error) {
	scope, err := ident.Scope(access.Grades)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryGrades(ctx, scope, filter)
}

// RecordGrade adds a grade for a student of a classroom taught by the caller.
func (svc *Service) RecordGrade(ctx context.Context, ident access.Identity, ng NewGrade) (Grade, error) {
	room, err := svc.TeacherClassroom(ctx, ident, ng.ClassroomID)
	if err != nil {
		return Grade{}, err
	}
	if err = svc.checkEnrolled(ctx, ng.UserID, room.ID); err != nil {
		return Grade{}, err
	}

	grade, err := svc.repo.CreateGrade(ctx, Grade{
		UserID:      ng.UserID,
		ClassroomID: room.ID,
		Title:       ng.Title,
		Score:       *ng.Score,
		MaxScore:    ng.MaxScore,
		Date:        ng.Date,
		GradeLetter: ng.GradeLetter,
	})
	if err != nil {
		return Grade{}, errors.Wrap(err, "creating grade")
	}
	svc.notifier.NotifyChange(ctx)
	return grade, nil
}

func (svc *Service) GetGrade(ctx context.Context, ident access.Identity, id string) (Grade, error) {
	scope, err := ident.Scope(access.Grades)
	if err != nil {
		return Grade{}, err
	}
	return svc.repo.GetGrade(ctx, scope, id)
}

// UpdateGrade lets the classroom teacher correct a grade.
func (svc *Service) UpdateGrade(ctx context.Context, ident access.Identity, id string, ug UpdateGrade) (Grade, error) {
	grade, err := svc.GetGrade(ctx, ident, id)
	if err != nil {
		return Grade{}, err
	}
	if err = svc.manage(ctx, ident, grade.ClassroomID, false); err != nil {
		return Grade{}, err
	}

	ug.apply(&grade)
	if grade, err = svc.repo.UpdateGrade(ctx, grade); err != nil {
		return Grade{}, errors.Wrap(err, "updating grade")
	}
	svc.notifier.NotifyChange(ctx)
	return grade, nil
}

// DeleteGrade lets the classroom teacher or an admin delete a grade.
func (svc *Service) DeleteGrade(ctx context.Context, ident access.Identity, id string) error {
	grade, err := svc.GetGrade(ctx, ident, id)
	if err != nil {
		return err
	}
	if err = svc.manage(ctx, ident, grade.ClassroomID, true); err != nil {
		return err
	}
	if err = svc.repo.DeleteGrade(ctx, grade.ID); err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	svc.notifier.NotifyChange(ctx)
	return nil
}

// Gradebook collects the roster and grades of a classroom taught by the caller.
func (svc *Service) Gradebook(ctx context.Context, ident access.Identity, classroomID string) (Gradebook, error) {
	room, err := svc.TeacherClassroom(ctx, ident, classroomID)
	if err != nil {
		return Gradebook{}, err
	}
	students, err := svc.repo.QueryStudents(ctx, room.ID)
	if err != nil {
		return Gradebook{}, errors.Wrap(err, "querying students")
	}
	grades, err := svc.repo.QueryGrades(ctx, access.TaughtBy(ident.UserID), &ListFilter{ClassroomID: room.ID})
	if err != nil {
		return Gradebook{}, errors.Wrap(err, "querying grades")
	}
	return Gradebook{Classroom: room, Students: students, Grades: grades}, nil
}

func (svc *Service) checkEnrolled(ctx context.Context, userID, classroomID string) error {
	enrolled, err := svc.repo.IsEnrolled(ctx, userID, classroomID)
	if err != nil {
		return errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return core.NewValidationError(ErrNotEnrolled, core.FieldError{Field: "user_id", Error: ErrNotEnrolled.Error()})
	}
	return nil
}

