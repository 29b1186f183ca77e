package boiledrepos

import (
	"context"
	"database/sql"

	"github.com/friendsofgo/errors"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/classroom"
)

const (
	courseTable       = "course"
	classroomTable    = "classroom"
	enrollmentTable   = "enrollment"
	announcementTable = "announcement"
	attendanceTable   = "attendance"
	gradeTable        = "grade"

	classroomCodeKey = "classroom_code_key"
)

var (
	courseColumns       = []string{"id", "title", "description", "thumbnail", "teacher_id", "created_at", "updated_at"}
	classroomColumns    = []string{"id", "name", "section", "code", "course_id", "teacher_id", "created_at"}
	enrollmentColumns   = []string{"id", "user_id", "classroom_id", "enrolled_at"}
	announcementColumns = []string{"id", "title", "content", "classroom_id", "author_id", "created_at"}
	attendanceColumns   = []string{"id", "user_id", "classroom_id", "date", "status"}
	gradeColumns        = []string{"id", "user_id", "classroom_id", "title", "score", "max_score", "date", "grade_letter"}
)

type classroomRepository struct {
	exec core.DBExecutor
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(exec core.DBExecutor) *classroomRepository {
	return &classroomRepository{exec: exec}
}

// scoped returns the base mods selecting from `table` within `scope`.
func scoped(res access.Resource, scope access.Scope, table string, cols []string) ([]qm.QueryMod, error) {
	mods, err := scopeMods(res, scope)
	if err != nil {
		return nil, err
	}
	return append([]qm.QueryMod{selectCols(table, cols), qm.From(quote(table))}, mods...), nil
}

// classroomFilter narrows `table` rows to filter.ClassroomID.
func classroomFilter(table string, filter *classroom.ListFilter) []qm.QueryMod {
	if filter == nil || filter.ClassroomID == "" {
		return nil
	}
	if !validID(filter.ClassroomID) {
		return []qm.QueryMod{qm.Where("FALSE")}
	}
	return []qm.QueryMod{qm.Where(quote(table)+`."classroom_id" = ?`, filter.ClassroomID)}
}

// Courses

func (repo classroomRepository) CreateCourse(ctx context.Context, course classroom.Course) (classroom.Course, error) {
	course.ID = newID()
	err := insert(ctx, repo.exec, courseTable, courseColumns,
		course.ID, course.Title, course.Description, course.Thumbnail, course.TeacherID, course.CreatedAt, course.UpdatedAt)
	if err != nil {
		return classroom.Course{}, errors.Wrap(err, "inserting course")
	}
	return course, nil
}

func (repo classroomRepository) QueryCourses(ctx context.Context, scope access.Scope, _ *classroom.ListFilter) ([]classroom.Course, error) {
	mods, err := scoped(access.Courses, scope, courseTable, courseColumns)
	if err != nil {
		return nil, err
	}
	mods = append(mods, qm.OrderBy(`"course"."created_at" DESC`))

	courses := make([]classroom.Course, 0)
	if err = newQuery(mods...).Bind(ctx, repo.exec, &courses); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return courses, nil
}

func (repo classroomRepository) GetCourse(ctx context.Context, scope access.Scope, id string) (classroom.Course, error) {
	if !validID(id) {
		return classroom.Course{}, classroom.ErrCourseNotFound
	}
	mods, err := scoped(access.Courses, scope, courseTable, courseColumns)
	if err != nil {
		return classroom.Course{}, err
	}
	mods = append(mods, qm.Where(`"course"."id" = ?`, id))

	var course classroom.Course
	if err = newQuery(mods...).Bind(ctx, repo.exec, &course); err != nil {
		if isNoRows(err) {
			return classroom.Course{}, classroom.ErrCourseNotFound
		}
		return classroom.Course{}, errors.Wrap(err, "finding course")
	}
	return course, nil
}

func (repo classroomRepository) UpdateCourse(ctx context.Context, course classroom.Course) (classroom.Course, error) {
	cols := []string{"title", "description", "thumbnail", "updated_at"}
	res, err := queries.Raw(updateQuery(courseTable, cols, []string{"id"}),
		course.Title, course.Description, course.Thumbnail, course.UpdatedAt, course.ID,
	).ExecContext(ctx, repo.exec)
	if err != nil {
		return classroom.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return classroom.Course{}, classroom.ErrCourseNotFound
	}
	return course, nil
}

func (repo classroomRepository) DeleteCourse(ctx context.Context, id string) error {
	return deleteByID(ctx, repo.exec, courseTable, id)
}

// Classrooms

func (repo classroomRepository) CreateClassroom(ctx context.Context, room classroom.Classroom) (classroom.Classroom, error) {
	room.ID = newID()
	err := insert(ctx, repo.exec, classroomTable, classroomColumns,
		room.ID, room.Name, room.Section, room.Code, room.CourseID, room.TeacherID, room.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, classroomCodeKey) {
			return classroom.Classroom{}, classroom.ErrCodeExists
		}
		return classroom.Classroom{}, errors.Wrap(err, "inserting classroom")
	}
	return room, nil
}

func (repo classroomRepository) QueryClassrooms(ctx context.Context, scope access.Scope, filter *classroom.ListFilter) ([]classroom.Classroom, error) {
	mods, err := scoped(access.Classrooms, scope, classroomTable, classroomColumns)
	if err != nil {
		return nil, err
	}
	if filter != nil && filter.CourseID != "" {
		if !validID(filter.CourseID) {
			return []classroom.Classroom{}, nil
		}
		mods = append(mods, qm.Where(`"classroom"."course_id" = ?`, filter.CourseID))
	}
	mods = append(mods, qm.OrderBy(`"classroom"."created_at" DESC`))

	rooms := make([]classroom.Classroom, 0)
	if err = newQuery(mods...).Bind(ctx, repo.exec, &rooms); err != nil {
		return nil, errors.Wrap(err, "querying classrooms")
	}
	return rooms, nil
}

func (repo classroomRepository) getClassroom(ctx context.Context, mods []qm.QueryMod) (classroom.Classroom, error) {
	var room classroom.Classroom
	if err := newQuery(mods...).Bind(ctx, repo.exec, &room); err != nil {
		if isNoRows(err) {
			return classroom.Classroom{}, classroom.ErrClassroomNotFound
		}
		return classroom.Classroom{}, errors.Wrap(err, "finding classroom")
	}
	return room, nil
}

func (repo classroomRepository) GetClassroom(ctx context.Context, scope access.Scope, id string) (classroom.Classroom, error) {
	if !validID(id) {
		return classroom.Classroom{}, classroom.ErrClassroomNotFound
	}
	mods, err := scoped(access.Classrooms, scope, classroomTable, classroomColumns)
	if err != nil {
		return classroom.Classroom{}, err
	}
	return repo.getClassroom(ctx, append(mods, qm.Where(`"classroom"."id" = ?`, id)))
}

func (repo classroomRepository) GetClassroomByCode(ctx context.Context, code string) (classroom.Classroom, error) {
	return repo.getClassroom(ctx, []qm.QueryMod{
		selectCols(classroomTable, classroomColumns),
		qm.From(quote(classroomTable)),
		qm.Where(`"classroom"."code" = ?`, code),
	})
}

func (repo classroomRepository) DeleteClassroom(ctx context.Context, id string) error {
	return deleteByID(ctx, repo.exec, classroomTable, id)
}

// Enrollments

func (repo classroomRepository) CreateEnrollment(ctx context.Context, enr classroom.Enrollment) (classroom.Enrollment, error) {
	enr.ID = newID()
	err := insert(ctx, repo.exec, enrollmentTable, enrollmentColumns, enr.ID, enr.UserID, enr.ClassroomID, enr.EnrolledAt)
	if err != nil {
		if isUniqueViolation(err) {
			return classroom.Enrollment{}, classroom.ErrAlreadyEnrolled
		}
		return classroom.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo classroomRepository) IsEnrolled(ctx context.Context, userID, classroomID string) (bool, error) {
	if !validID(userID) || !validID(classroomID) {
		return false, nil
	}
	return exists(ctx, repo.exec,
		qm.From(quote(enrollmentTable)),
		qm.Where(`"user_id" = ?`, userID),
		qm.And(`"classroom_id" = ?`, classroomID),
	)
}

func (repo classroomRepository) QueryStudents(ctx context.Context, classroomID string) ([]classroom.Student, error) {
	students := make([]classroom.Student, 0)
	if !validID(classroomID) {
		return students, nil
	}
	err := newQuery(
		qm.Select(`"u"."id"`, `"u"."name"`, `"u"."email"`, `"u"."photo_url"`, `"e"."enrolled_at"`),
		qm.From(`"enrollment" "e"`),
		qm.InnerJoin(`"user" "u" ON "u"."id" = "e"."user_id"`),
		qm.Where(`"e"."classroom_id" = ?`, classroomID),
		qm.OrderBy(`LOWER("u"."name") ASC, "u"."id" ASC`),
	).Bind(ctx, repo.exec, &students)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

// Announcements

func (repo classroomRepository) CreateAnnouncement(ctx context.Context, ann classroom.Announcement) (classroom.Announcement, error) {
	ann.ID = newID()
	err := insert(ctx, repo.exec, announcementTable, announcementColumns,
		ann.ID, ann.Title, ann.Content, ann.ClassroomID, ann.AuthorID, ann.CreatedAt)
	if err != nil {
		return classroom.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return ann, nil
}

func (repo classroomRepository) QueryAnnouncements(ctx context.Context, scope access.Scope, filter *classroom.ListFilter) ([]classroom.Announcement, error) {
	mods, err := scoped(access.Announcements, scope, announcementTable, announcementColumns)
	if err != nil {
		return nil, err
	}
	mods = append(mods, classroomFilter(announcementTable, filter)...)
	mods = append(mods, qm.OrderBy(`"announcement"."created_at" DESC`))

	anns := make([]classroom.Announcement, 0)
	if err = newQuery(mods...).Bind(ctx, repo.exec, &anns); err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	return anns, nil
}

func (repo classroomRepository) GetAnnouncement(ctx context.Context, scope access.Scope, id string) (classroom.Announcement, error) {
	var ann classroom.Announcement
	err := repo.getScoped(ctx, access.Announcements, scope, announcementTable, announcementColumns, id, &ann)
	if isNoRows(err) {
		return classroom.Announcement{}, classroom.ErrAnnouncementNotFound
	}
	return ann, errors.Wrap(err, "finding announcement")
}

func (repo classroomRepository) UpdateAnnouncement(ctx context.Context, ann classroom.Announcement) (classroom.Announcement, error) {
	err := repo.update(ctx, announcementTable, []string{"title", "content"}, ann.ID, ann.Title, ann.Content)
	if isNoRows(err) {
		return classroom.Announcement{}, classroom.ErrAnnouncementNotFound
	}
	return ann, errors.Wrap(err, "updating announcement")
}

func (repo classroomRepository) DeleteAnnouncement(ctx context.Context, id string) error {
	return deleteByID(ctx, repo.exec, announcementTable, id)
}

// Attendance

func (repo classroomRepository) CreateAttendance(ctx context.Context, att classroom.Attendance) (classroom.Attendance, error) {
	att.ID = newID()
	err := insert(ctx, repo.exec, attendanceTable, attendanceColumns, att.ID, att.UserID, att.ClassroomID, att.Date, att.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return classroom.Attendance{}, classroom.ErrAttendanceExists
		}
		return classroom.Attendance{}, errors.Wrap(err, "inserting attendance")
	}
	return att, nil
}

func (repo classroomRepository) QueryAttendance(ctx context.Context, scope access.Scope, filter *classroom.ListFilter) ([]classroom.Attendance, error) {
	mods, err := scoped(access.AttendanceRecords, scope, attendanceTable, attendanceColumns)
	if err != nil {
		return nil, err
	}
	mods = append(mods, classroomFilter(attendanceTable, filter)...)
	mods = append(mods, qm.OrderBy(`"attendance"."date" DESC, "attendance"."id" DESC`))

	records := make([]classroom.Attendance, 0)
	if err = newQuery(mods...).Bind(ctx, repo.exec, &records); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	return records, nil
}

func (repo classroomRepository) GetAttendance(ctx context.Context, scope access.Scope, id string) (classroom.Attendance, error) {
	var att classroom.Attendance
	err := repo.getScoped(ctx, access.AttendanceRecords, scope, attendanceTable, attendanceColumns, id, &att)
	if isNoRows(err) {
		return classroom.Attendance{}, classroom.ErrAttendanceNotFound
	}
	return att, errors.Wrap(err, "finding attendance")
}

func (repo classroomRepository) UpdateAttendance(ctx context.Context, att classroom.Attendance) (classroom.Attendance, error) {
	err := repo.update(ctx, attendanceTable, []string{"status"}, att.ID, att.Status)
	if isNoRows(err) {
		return classroom.Attendance{}, classroom.ErrAttendanceNotFound
	}
	return att, errors.Wrap(err, "updating attendance")
}

func (repo classroomRepository) DeleteAttendance(ctx context.Context, id string) error {
	return deleteByID(ctx, repo.exec, attendanceTable, id)
}

// Grades

func (repo classroomRepository) CreateGrade(ctx context.Context, grade classroom.Grade) (classroom.Grade, error) {
	grade.ID = newID()
	err := insert(ctx, repo.exec, gradeTable, gradeColumns,
		grade.ID, grade.UserID, grade.ClassroomID, grade.Title, grade.Score, grade.MaxScore, grade.Date, grade.GradeLetter)
	if err != nil {
		return classroom.Grade{}, errors.Wrap(err, "inserting grade")
	}
	return grade, nil
}

func (repo classroomRepository) QueryGrades(ctx context.Context, scope access.Scope, filter *classroom.ListFilter) ([]classroom.Grade, error) {
	mods, err := scoped(access.Grades, scope, gradeTable, gradeColumns)
	if err != nil {
		return nil, err
	}
	mods = append(mods, classroomFilter(gradeTable, filter)...)
	mods = append(mods, qm.OrderBy(`"grade"."date" DESC, "grade"."id" DESC`))

	grades := make([]classroom.Grade, 0)
	if err = newQuery(mods...).Bind(ctx, repo.exec, &grades); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	return grades, nil
}

func (repo classroomRepository) GetGrade(ctx context.Context, scope access.Scope, id string) (classroom.Grade, error) {
	var grade classroom.Grade
	err := repo.getScoped(ctx, access.Grades, scope, gradeTable, gradeColumns, id, &grade)
	if isNoRows(err) {
		return classroom.Grade{}, classroom.ErrGradeNotFound
	}
	return grade, errors.Wrap(err, "finding grade")
}

func (repo classroomRepository) UpdateGrade(ctx context.Context, grade classroom.Grade) (classroom.Grade, error) {
	err := repo.update(ctx, gradeTable, []string{"title", "score", "max_score", "date", "grade_letter"}, grade.ID,
		grade.Title, grade.Score, grade.MaxScore, grade.Date, grade.GradeLetter)
	if isNoRows(err) {
		return classroom.Grade{}, classroom.ErrGradeNotFound
	}
	return grade, errors.Wrap(err, "updating grade")
}

func (repo classroomRepository) DeleteGrade(ctx context.Context, id string) error {
	return deleteByID(ctx, repo.exec, gradeTable, id)
}

// getScoped binds the row `id` of `table` visible through `scope` into `dest`.
// Unknown or hidden rows give sql.ErrNoRows.
func (repo classroomRepository) getScoped(
	ctx context.Context,
	res access.Resource,
	scope access.Scope,
	table string,
	cols []string,
	id string,
	dest interface{},
) error {
	if !validID(id) {
		return sql.ErrNoRows
	}
	mods, err := scoped(res, scope, table, cols)
	if err != nil {
		return err
	}
	mods = append(mods, qm.Where(quote(table)+`."id" = ?`, id))
	return newQuery(mods...).Bind(ctx, repo.exec, dest)
}

// update sets `cols` of the row `id`; a missing row gives sql.ErrNoRows.
func (repo classroomRepository) update(ctx context.Context, table string, cols []string, id string, vals ...interface{}) error {
	res, err := queries.Raw(updateQuery(table, cols, []string{"id"}), append(vals, id)...).ExecContext(ctx, repo.exec)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
