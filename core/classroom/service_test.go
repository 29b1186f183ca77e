package classroom_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/services/email"
	"github.com/trezcool/darasa/storage/database/inmem"
	"github.com/trezcool/darasa/tests"
)

type fixture struct {
	svc      *classroom.Service
	repo     classroom.Repository
	usrRepo  user.Repository
	teacher  user.User
	teacher2 user.User
	student  user.User
	outsider user.User
	course   classroom.Course
	room     classroom.Classroom
}

type userNames struct {
	repo user.Repository
}

func (un userNames) GetName(ctx context.Context, id string) (string, error) {
	usr, err := un.repo.GetUser(ctx, user.GetFilter{ID: id})
	return usr.Name, err
}

func setup(t *testing.T) fixture {
	t.Helper()
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	require.NoError(t, core.ParseEmailTemplates())

	db := inmemdb.Open()
	f := fixture{
		repo:    inmemdb.NewClassroomRepository(db),
		usrRepo: inmemdb.NewUserRepository(db),
	}
	f.svc = classroom.NewService(f.repo, userNames{f.usrRepo}, emailsvc.NewConsoleServiceMock(conf, logger), nil, logger)

	f.teacher = testutil.CreateUser(t, f.usrRepo, "Teacher", "teacher@test.cd", "", access.Teacher, true)
	f.teacher2 = testutil.CreateUser(t, f.usrRepo, "Teacher 2", "teacher2@test.cd", "", access.Teacher, true)
	f.student = testutil.CreateUser(t, f.usrRepo, "Student", "student@test.cd", "", access.Student, true)
	f.outsider = testutil.CreateUser(t, f.usrRepo, "Outsider", "outsider@test.cd", "", access.Student, true)
	f.course = testutil.CreateCourse(t, f.repo, "Algebra", f.teacher.ID)
	f.room = testutil.CreateClassroom(t, f.repo, "Algebra A", "ALG0001", f.course)
	testutil.Enroll(t, f.repo, f.student.ID, f.room.ID)
	return f
}

func TestService_CreateClassroom(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	nc := classroom.NewClassroom{Name: "Algebra B", CourseID: f.course.ID}

	t.Run("retries taken codes", func(t *testing.T) {
		codes := []string{f.room.Code, f.room.Code, "ALG0002"}
		restore := classroom.SetCodeGenFunc(func() (string, error) {
			code := codes[0]
			codes = codes[1:]
			return code, nil
		})
		defer restore()

		room, err := f.svc.CreateClassroom(ctx, f.teacher.Identity(), nc)
		require.NoError(t, err)
		assert.Equal(t, "ALG0002", room.Code)
		assert.Equal(t, f.teacher.ID, room.TeacherID)
		assert.Empty(t, codes)
	})

	t.Run("gives up", func(t *testing.T) {
		restore := classroom.SetCodeGenFunc(func() (string, error) { return f.room.Code, nil })
		defer restore()

		_, err := f.svc.CreateClassroom(ctx, f.teacher.Identity(), nc)
		assert.True(t, core.IsConflict(err))
	})

	t.Run("generated code", func(t *testing.T) {
		room, err := f.svc.CreateClassroom(ctx, f.teacher.Identity(), nc)
		require.NoError(t, err)
		assert.Regexp(t, `^[A-Z0-9]{7}$`, room.Code)
	})

	t.Run("course of another teacher", func(t *testing.T) {
		_, err := f.svc.CreateClassroom(ctx, f.teacher2.Identity(), nc)
		assert.Equal(t, core.ErrPermissionDenied, err)
	})

	t.Run("student", func(t *testing.T) {
		_, err := f.svc.CreateClassroom(ctx, f.student.Identity(), nc)
		assert.Equal(t, core.ErrPermissionDenied, err)
	})
}

func TestService_Join(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Join(ctx, f.teacher.Identity(), classroom.JoinRequest{Code: f.room.Code})
	assert.Equal(t, classroom.ErrOnlyStudentsJoin, err)

	_, err = f.svc.Join(ctx, f.outsider.Identity(), classroom.JoinRequest{Code: "bad"})
	assert.Equal(t, classroom.ErrClassroomNotFound, err)

	_, err = f.svc.Join(ctx, f.outsider.Identity(), classroom.JoinRequest{Code: "ZZZZZZZ"})
	assert.True(t, core.IsNotFound(err))

	_, err = f.svc.GetClassroom(ctx, f.outsider.Identity(), f.room.ID)
	assert.True(t, core.IsNotFound(err))

	for i := 0; i < 2; i++ {
		room, err := f.svc.Join(ctx, f.outsider.Identity(), classroom.JoinRequest{Code: f.room.Code})
		require.NoError(t, err)
		assert.Equal(t, f.room.ID, room.ID)
	}

	students, err := f.svc.Students(ctx, f.teacher.Identity(), f.room.ID)
	require.NoError(t, err)
	assert.Len(t, students, 2)

	room, err := f.svc.GetClassroom(ctx, f.outsider.Identity(), f.room.ID)
	require.NoError(t, err)
	assert.Equal(t, f.room.ID, room.ID)
}

func TestService_Visibility(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	other := testutil.CreateCourse(t, f.repo, "Physics", f.teacher2.ID)
	testutil.CreateClassroom(t, f.repo, "Physics A", "PHY0001", other)

	tests := []struct {
		name      string
		ident     access.Identity
		wantRooms int
		wantCrs   int
	}{
		{name: "admin", ident: access.NewIdentity("admin", access.Admin), wantRooms: 2, wantCrs: 2},
		{name: "teacher", ident: f.teacher.Identity(), wantRooms: 1, wantCrs: 1},
		{name: "student", ident: f.student.Identity(), wantRooms: 1, wantCrs: 2},
		{name: "outsider", ident: f.outsider.Identity(), wantRooms: 0, wantCrs: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rooms, err := f.svc.QueryClassrooms(ctx, tt.ident, nil)
			require.NoError(t, err)
			assert.Len(t, rooms, tt.wantRooms)

			courses, err := f.svc.QueryCourses(ctx, tt.ident, nil)
			require.NoError(t, err)
			assert.Len(t, courses, tt.wantCrs)
		})
	}

	_, err := f.svc.QueryClassrooms(ctx, access.Identity{}, nil)
	assert.Equal(t, core.ErrNotAuthenticated, err)
}

func TestService_MarkAttendance(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	na := classroom.NewAttendance{UserID: f.student.ID, ClassroomID: f.room.ID, Status: classroom.StatusPresent, Date: core.Today()}

	att, err := f.svc.MarkAttendance(ctx, f.teacher.Identity(), na)
	require.NoError(t, err)
	assert.Equal(t, classroom.StatusPresent, att.Status)

	na.Status = classroom.StatusAbsent
	_, err = f.svc.MarkAttendance(ctx, f.teacher.Identity(), na)
	assert.Equal(t, classroom.ErrAttendanceExists, err)

	records, err := f.svc.QueryAttendance(ctx, f.student.Identity(), nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, classroom.StatusPresent, records[0].Status)

	_, err = f.svc.MarkAttendance(ctx, f.teacher2.Identity(), na)
	assert.Equal(t, core.ErrPermissionDenied, err)

	na.UserID = f.outsider.ID
	_, err = f.svc.MarkAttendance(ctx, f.teacher.Identity(), na)
	_, ok := err.(*core.ValidationError)
	assert.True(t, ok, "got %v", err)
}

func TestService_Gradebook(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	score := 72.0

	grade, err := f.svc.RecordGrade(ctx, f.teacher.Identity(), classroom.NewGrade{
		UserID: f.student.ID, ClassroomID: f.room.ID, Title: "Quiz", Score: &score, MaxScore: 100,
		GradeLetter: classroom.GradeLetter(score, 100), Date: core.Today(),
	})
	require.NoError(t, err)
	assert.Equal(t, "C", grade.GradeLetter)

	book, err := f.svc.Gradebook(ctx, f.teacher.Identity(), f.room.ID)
	require.NoError(t, err)
	assert.Equal(t, f.room.ID, book.Classroom.ID)
	assert.Len(t, book.Students, 1)
	assert.Len(t, book.Grades, 1)

	_, err = f.svc.Gradebook(ctx, f.teacher2.Identity(), f.room.ID)
	assert.Equal(t, core.ErrPermissionDenied, err)

	_, err = f.svc.Gradebook(ctx, f.student.Identity(), f.room.ID)
	assert.Equal(t, core.ErrPermissionDenied, err)
}

func TestService_CreateAnnouncement(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	emailsvc.ResetSentMessages()

	ann, err := f.svc.CreateAnnouncement(ctx, f.teacher.Identity(), classroom.NewAnnouncement{
		Title: "Exam", Content: "Friday", ClassroomID: f.room.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, f.teacher.ID, ann.AuthorID)

	msgs := emailsvc.SentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, f.student.Email, msgs[0].To[0].Address)

	anns, err := f.svc.QueryAnnouncements(ctx, f.outsider.Identity(), nil)
	require.NoError(t, err)
	assert.Empty(t, anns)
}

func TestService_DeleteCourse(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	assert.True(t, core.IsNotFound(f.svc.DeleteCourse(ctx, f.teacher2.Identity(), f.course.ID)))
	assert.Equal(t, core.ErrPermissionDenied, f.svc.DeleteCourse(ctx, f.student.Identity(), f.course.ID))
	require.NoError(t, f.svc.DeleteCourse(ctx, f.teacher.Identity(), f.course.ID))

	_, err := f.svc.GetClassroom(ctx, access.NewIdentity("admin", access.Admin), f.room.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestService_UpdateAndDeleteAnnouncement(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	admin := access.NewIdentity("admin", access.Admin)

	ann, err := f.svc.CreateAnnouncement(ctx, f.teacher.Identity(), classroom.NewAnnouncement{
		Title: "Exam", Content: "Friday", ClassroomID: f.room.ID,
	})
	require.NoError(t, err)
	emailsvc.ResetSentMessages()

	content := "Monday"
	ua := classroom.UpdateAnnouncement{Content: &content}

	_, err = f.svc.UpdateAnnouncement(ctx, f.student.Identity(), ann.ID, ua)
	assert.Equal(t, core.ErrPermissionDenied, err)
	_, err = f.svc.UpdateAnnouncement(ctx, f.teacher2.Identity(), ann.ID, ua)
	assert.Equal(t, classroom.ErrAnnouncementNotFound, err)
	_, err = f.svc.UpdateAnnouncement(ctx, admin, ann.ID, ua)
	assert.Equal(t, core.ErrPermissionDenied, err)

	updated, err := f.svc.UpdateAnnouncement(ctx, f.teacher.Identity(), ann.ID, ua)
	require.NoError(t, err)
	assert.Equal(t, "Exam", updated.Title)
	assert.Equal(t, "Monday", updated.Content)
	assert.Empty(t, emailsvc.SentMessages())

	got, err := f.svc.GetAnnouncement(ctx, f.student.Identity(), ann.ID)
	require.NoError(t, err)
	assert.Equal(t, "Monday", got.Content)

	_, err = f.svc.GetAnnouncement(ctx, f.outsider.Identity(), ann.ID)
	assert.Equal(t, classroom.ErrAnnouncementNotFound, err)

	assert.Equal(t, core.ErrPermissionDenied, f.svc.DeleteAnnouncement(ctx, f.student.Identity(), ann.ID))
	require.NoError(t, f.svc.DeleteAnnouncement(ctx, admin, ann.ID))
	_, err = f.svc.GetAnnouncement(ctx, f.teacher.Identity(), ann.ID)
	assert.Equal(t, classroom.ErrAnnouncementNotFound, err)
}

func TestService_UpdateAndDeleteAttendance(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	att, err := f.svc.MarkAttendance(ctx, f.teacher.Identity(), classroom.NewAttendance{
		UserID: f.student.ID, ClassroomID: f.room.ID, Status: classroom.StatusAbsent, Date: core.Today(),
	})
	require.NoError(t, err)

	late := classroom.UpdateAttendance{Status: classroom.StatusLate}
	_, err = f.svc.UpdateAttendance(ctx, f.student.Identity(), att.ID, late)
	assert.Equal(t, core.ErrPermissionDenied, err)
	_, err = f.svc.UpdateAttendance(ctx, f.teacher2.Identity(), att.ID, late)
	assert.Equal(t, classroom.ErrAttendanceNotFound, err)

	updated, err := f.svc.UpdateAttendance(ctx, f.teacher.Identity(), att.ID, late)
	require.NoError(t, err)
	assert.Equal(t, classroom.StatusLate, updated.Status)
	assert.True(t, updated.Date.Equal(att.Date))

	records, err := f.svc.QueryAttendance(ctx, f.student.Identity(), nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, classroom.StatusLate, records[0].Status)

	assert.Equal(t, core.ErrPermissionDenied, f.svc.DeleteAttendance(ctx, f.student.Identity(), att.ID))
	require.NoError(t, f.svc.DeleteAttendance(ctx, f.teacher.Identity(), att.ID))

	// the day can be marked again
	_, err = f.svc.MarkAttendance(ctx, f.teacher.Identity(), classroom.NewAttendance{
		UserID: f.student.ID, ClassroomID: f.room.ID, Status: classroom.StatusPresent, Date: att.Date,
	})
	assert.NoError(t, err)
}

func TestService_UpdateAndDeleteGrade(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	score := 72.0

	grade, err := f.svc.RecordGrade(ctx, f.teacher.Identity(), classroom.NewGrade{
		UserID: f.student.ID, ClassroomID: f.room.ID, Title: "Quiz", Score: &score, MaxScore: 100,
		GradeLetter: "C", Date: core.Today(),
	})
	require.NoError(t, err)

	newScore := 93.0
	ug := classroom.UpdateGrade{Score: &newScore}
	_, err = f.svc.UpdateGrade(ctx, f.student.Identity(), grade.ID, ug)
	assert.Equal(t, core.ErrPermissionDenied, err)
	_, err = f.svc.UpdateGrade(ctx, f.teacher2.Identity(), grade.ID, ug)
	assert.Equal(t, classroom.ErrGradeNotFound, err)

	updated, err := f.svc.UpdateGrade(ctx, f.teacher.Identity(), grade.ID, ug)
	require.NoError(t, err)
	assert.Equal(t, 93.0, updated.Score)
	assert.Equal(t, "A", updated.GradeLetter)

	got, err := f.svc.GetGrade(ctx, f.student.Identity(), grade.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.GradeLetter)

	_, err = f.svc.GetGrade(ctx, f.outsider.Identity(), grade.ID)
	assert.Equal(t, classroom.ErrGradeNotFound, err)

	assert.Equal(t, core.ErrPermissionDenied, f.svc.DeleteGrade(ctx, f.student.Identity(), grade.ID))
	require.NoError(t, f.svc.DeleteGrade(ctx, access.NewIdentity("admin", access.Admin), grade.ID))

	grades, err := f.svc.QueryGrades(ctx, f.teacher.Identity(), nil)
	require.NoError(t, err)
	assert.Empty(t, grades)
}
