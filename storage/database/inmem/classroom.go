package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/classroom"
)

type classroomRepository struct {
	db *DB
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *DB) *classroomRepository {
	return &classroomRepository{db: db}
}

func scopeError(res access.Resource, scope access.Scope) error {
	return errors.Errorf("inmemdb: scope %q is not supported for %s", scope, res)
}

// Courses

func (repo *classroomRepository) CreateCourse(_ context.Context, course classroom.Course) (classroom.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	course.ID = newID()
	repo.db.courses[course.ID] = &course
	return course, nil
}

func (repo *classroomRepository) courseVisible(scope access.Scope, course *classroom.Course) (bool, error) {
	switch scope.Kind {
	case access.ScopeAll:
		return true, nil
	case access.ScopeTaught:
		return course.TeacherID == scope.UserID, nil
	case access.ScopeEnrolled:
		for _, room := range repo.db.classrooms {
			if room.CourseID == course.ID && repo.db.isEnrolled(scope.UserID, room.ID) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, scopeError(access.Courses, scope)
}

func (repo *classroomRepository) QueryCourses(_ context.Context, scope access.Scope, _ *classroom.ListFilter) ([]classroom.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]classroom.Course, 0)
	for _, course := range repo.db.courses {
		ok, err := repo.courseVisible(scope, course)
		if err != nil {
			return nil, err
		}
		if ok {
			courses = append(courses, *course)
		}
	}
	sort.Slice(courses, func(i, j int) bool {
		return newer(courses[i].CreatedAt, courses[j].CreatedAt, courses[i].ID, courses[j].ID)
	})
	return courses, nil
}

func (repo *classroomRepository) GetCourse(_ context.Context, scope access.Scope, id string) (classroom.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	course, ok := repo.db.courses[id]
	if !ok {
		return classroom.Course{}, classroom.ErrCourseNotFound
	}
	visible, err := repo.courseVisible(scope, course)
	if err != nil {
		return classroom.Course{}, err
	}
	if !visible {
		return classroom.Course{}, classroom.ErrCourseNotFound
	}
	return *course, nil
}

func (repo *classroomRepository) UpdateCourse(_ context.Context, course classroom.Course) (classroom.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[course.ID]; !ok {
		return classroom.Course{}, classroom.ErrCourseNotFound
	}
	repo.db.courses[course.ID] = &course
	return course, nil
}

func (repo *classroomRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.courses, id)
	for roomID, room := range repo.db.classrooms {
		if room.CourseID == id {
			repo.db.deleteClassroom(roomID)
		}
	}
	return nil
}

// Classrooms

func (repo *classroomRepository) CreateClassroom(_ context.Context, room classroom.Classroom) (classroom.Classroom, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, r := range repo.db.classrooms {
		if r.Code == room.Code {
			return classroom.Classroom{}, classroom.ErrCodeExists
		}
	}
	room.ID = newID()
	repo.db.classrooms[room.ID] = &room
	return room, nil
}

func (repo *classroomRepository) classroomVisible(scope access.Scope, room *classroom.Classroom) (bool, error) {
	if scope.Kind == access.ScopeOwn || !scope.IsValid() {
		return false, scopeError(access.Classrooms, scope)
	}
	return repo.db.inClassroomScope(scope, room.ID), nil
}

func (repo *classroomRepository) QueryClassrooms(_ context.Context, scope access.Scope, filter *classroom.ListFilter) ([]classroom.Classroom, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rooms := make([]classroom.Classroom, 0)
	for _, room := range repo.db.classrooms {
		if filter != nil && filter.CourseID != "" && room.CourseID != filter.CourseID {
			continue
		}
		ok, err := repo.classroomVisible(scope, room)
		if err != nil {
			return nil, err
		}
		if ok {
			rooms = append(rooms, *room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		return newer(rooms[i].CreatedAt, rooms[j].CreatedAt, rooms[i].ID, rooms[j].ID)
	})
	return rooms, nil
}

func (repo *classroomRepository) GetClassroom(_ context.Context, scope access.Scope, id string) (classroom.Classroom, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	room, ok := repo.db.classrooms[id]
	if !ok {
		return classroom.Classroom{}, classroom.ErrClassroomNotFound
	}
	visible, err := repo.classroomVisible(scope, room)
	if err != nil {
		return classroom.Classroom{}, err
	}
	if !visible {
		return classroom.Classroom{}, classroom.ErrClassroomNotFound
	}
	return *room, nil
}

func (repo *classroomRepository) GetClassroomByCode(_ context.Context, code string) (classroom.Classroom, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, room := range repo.db.classrooms {
		if room.Code == code {
			return *room, nil
		}
	}
	return classroom.Classroom{}, classroom.ErrClassroomNotFound
}

func (repo *classroomRepository) DeleteClassroom(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.deleteClassroom(id)
	return nil
}

// Enrollments

func (repo *classroomRepository) CreateEnrollment(_ context.Context, enr classroom.Enrollment) (classroom.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.db.isEnrolled(enr.UserID, enr.ClassroomID) {
		return classroom.Enrollment{}, classroom.ErrAlreadyEnrolled
	}
	enr.ID = newID()
	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *classroomRepository) IsEnrolled(_ context.Context, userID, classroomID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.isEnrolled(userID, classroomID), nil
}

func (repo *classroomRepository) QueryStudents(_ context.Context, classroomID string) ([]classroom.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]classroom.Student, 0)
	for _, enr := range repo.db.enrollments {
		if enr.ClassroomID != classroomID {
			continue
		}
		if usr, ok := repo.db.users[enr.UserID]; ok {
			students = append(students, classroom.Student{
				ID:         usr.ID,
				Name:       usr.Name,
				Email:      usr.Email,
				PhotoURL:   usr.PhotoURL,
				EnrolledAt: enr.EnrolledAt,
			})
		}
	}
	sort.Slice(students, func(i, j int) bool {
		ni, nj := strings.ToLower(students[i].Name), strings.ToLower(students[j].Name)
		if ni == nj {
			return students[i].ID < students[j].ID
		}
		return ni < nj
	})
	return students, nil
}

// Announcements

func (repo *classroomRepository) CreateAnnouncement(_ context.Context, ann classroom.Announcement) (classroom.Announcement, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ann.ID = newID()
	repo.db.announcements[ann.ID] = &ann
	return ann, nil
}

func (repo *classroomRepository) QueryAnnouncements(_ context.Context, scope access.Scope, filter *classroom.ListFilter) ([]classroom.Announcement, error) {
	if scope.Kind == access.ScopeOwn || !scope.IsValid() {
		return nil, scopeError(access.Announcements, scope)
	}

	repo.db.RLock()
	defer repo.db.RUnlock()

	anns := make([]classroom.Announcement, 0)
	for _, ann := range repo.db.announcements {
		if filter != nil && filter.ClassroomID != "" && ann.ClassroomID != filter.ClassroomID {
			continue
		}
		if repo.db.inClassroomScope(scope, ann.ClassroomID) {
			anns = append(anns, *ann)
		}
	}
	sort.Slice(anns, func(i, j int) bool {
		return newer(anns[i].CreatedAt, anns[j].CreatedAt, anns[i].ID, anns[j].ID)
	})
	return anns, nil
}

func (repo *classroomRepository) GetAnnouncement(_ context.Context, scope access.Scope, id string) (classroom.Announcement, error) {
	if scope.Kind == access.ScopeOwn || !scope.IsValid() {
		return classroom.Announcement{}, scopeError(access.Announcements, scope)
	}

	repo.db.RLock()
	defer repo.db.RUnlock()

	ann, ok := repo.db.announcements[id]
	if !ok || !repo.db.inClassroomScope(scope, ann.ClassroomID) {
		return classroom.Announcement{}, classroom.ErrAnnouncementNotFound
	}
	return *ann, nil
}

func (repo *classroomRepository) UpdateAnnouncement(_ context.Context, ann classroom.Announcement) (classroom.Announcement, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	existing, ok := repo.db.announcements[ann.ID]
	if !ok {
		return classroom.Announcement{}, classroom.ErrAnnouncementNotFound
	}
	existing.Title = ann.Title
	existing.Content = ann.Content
	return *existing, nil
}

func (repo *classroomRepository) DeleteAnnouncement(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.announcements, id)
	return nil
}

// Attendance

func (repo *classroomRepository) CreateAttendance(_ context.Context, att classroom.Attendance) (classroom.Attendance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, a := range repo.db.attendance {
		if a.UserID == att.UserID && a.ClassroomID == att.ClassroomID && a.Date.Equal(att.Date) {
			return classroom.Attendance{}, classroom.ErrAttendanceExists
		}
	}
	att.ID = newID()
	repo.db.attendance[att.ID] = &att
	return att, nil
}

// ownOrClassroomScope checks the scope of records owned by `userID` in `classroomID`.
func (repo *classroomRepository) ownOrClassroomScope(scope access.Scope, userID, classroomID string) bool {
	if scope.Kind == access.ScopeOwn {
		return userID == scope.UserID
	}
	return repo.db.inClassroomScope(scope, classroomID)
}

func (repo *classroomRepository) QueryAttendance(_ context.Context, scope access.Scope, filter *classroom.ListFilter) ([]classroom.Attendance, error) {
	if !scope.IsValid() {
		return nil, scopeError(access.AttendanceRecords, scope)
	}

	repo.db.RLock()
	defer repo.db.RUnlock()

	records := make([]classroom.Attendance, 0)
	for _, att := range repo.db.attendance {
		if filter != nil && filter.ClassroomID != "" && att.ClassroomID != filter.ClassroomID {
			continue
		}
		if repo.ownOrClassroomScope(scope, att.UserID, att.ClassroomID) {
			records = append(records, *att)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return newer(records[i].Date.Time, records[j].Date.Time, records[i].ID, records[j].ID)
	})
	return records, nil
}

func (repo *classroomRepository) GetAttendance(_ context.Context, scope access.Scope, id string) (classroom.Attendance, error) {
	if !scope.IsValid() {
		return classroom.Attendance{}, scopeError(access.AttendanceRecords, scope)
	}

	repo.db.RLock()
	defer repo.db.RUnlock()

	att, ok := repo.db.attendance[id]
	if !ok || !repo.ownOrClassroomScope(scope, att.UserID, att.ClassroomID) {
		return classroom.Attendance{}, classroom.ErrAttendanceNotFound
	}
	return *att, nil
}

func (repo *classroomRepository) UpdateAttendance(_ context.Context, att classroom.Attendance) (classroom.Attendance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	existing, ok := repo.db.attendance[att.ID]
	if !ok {
		return classroom.Attendance{}, classroom.ErrAttendanceNotFound
	}
	existing.Status = att.Status
	return *existing, nil
}

func (repo *classroomRepository) DeleteAttendance(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.attendance, id)
	return nil
}

// Grades

func (repo *classroomRepository) CreateGrade(_ context.Context, grade classroom.Grade) (classroom.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	grade.ID = newID()
	repo.db.grades[grade.ID] = &grade
	return grade, nil
}

func (repo *classroomRepository) QueryGrades(_ context.Context, scope access.Scope, filter *classroom.ListFilter) ([]classroom.Grade, error) {
	if !scope.IsValid() {
		return nil, scopeError(access.Grades, scope)
	}

	repo.db.RLock()
	defer repo.db.RUnlock()

	grades := make([]classroom.Grade, 0)
	for _, g := range repo.db.grades {
		if filter != nil && filter.ClassroomID != "" && g.ClassroomID != filter.ClassroomID {
			continue
		}
		if repo.ownOrClassroomScope(scope, g.UserID, g.ClassroomID) {
			grades = append(grades, *g)
		}
	}
	sort.Slice(grades, func(i, j int) bool {
		return newer(grades[i].Date.Time, grades[j].Date.Time, grades[i].ID, grades[j].ID)
	})
	return grades, nil
}

func (repo *classroomRepository) GetGrade(_ context.Context, scope access.Scope, id string) (classroom.Grade, error) {
	if !scope.IsValid() {
		return classroom.Grade{}, scopeError(access.Grades, scope)
	}

	repo.db.RLock()
	defer repo.db.RUnlock()

	g, ok := repo.db.grades[id]
	if !ok || !repo.ownOrClassroomScope(scope, g.UserID, g.ClassroomID) {
		return classroom.Grade{}, classroom.ErrGradeNotFound
	}
	return *g, nil
}

func (repo *classroomRepository) UpdateGrade(_ context.Context, grade classroom.Grade) (classroom.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	existing, ok := repo.db.grades[grade.ID]
	if !ok {
		return classroom.Grade{}, classroom.ErrGradeNotFound
	}
	existing.Title = grade.Title
	existing.Score = grade.Score
	existing.MaxScore = grade.MaxScore
	existing.Date = grade.Date
	existing.GradeLetter = grade.GradeLetter
	return *existing, nil
}

func (repo *classroomRepository) DeleteGrade(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.grades, id)
	return nil
}
