package coursework_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/coursework"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/storage/database/inmem"
	"github.com/trezcool/darasa/tests"
)

// memStorage keeps saved files in memory.
type memStorage map[string]string

func (s memStorage) Save(_ context.Context, key string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s[key] = string(data)
	return "/media/" + key, nil
}

type fixture struct {
	svc      *coursework.Service
	repo     coursework.Repository
	files    memStorage
	teacher  user.User
	teacher2 user.User
	student  user.User
	outsider user.User
	room     classroom.Classroom
	asgmt    coursework.Assignment
}

func setup(t *testing.T) fixture {
	t.Helper()
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)

	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	roomRepo := inmemdb.NewClassroomRepository(db)
	f := fixture{
		repo:  inmemdb.NewCourseworkRepository(db),
		files: make(memStorage),
	}
	roomSvc := classroom.NewService(roomRepo, nil, nil, nil, logger)
	f.svc = coursework.NewService(f.repo, roomSvc, f.files, nil)

	f.teacher = testutil.CreateUser(t, usrRepo, "Teacher", "teacher@test.cd", "", access.Teacher, true)
	f.teacher2 = testutil.CreateUser(t, usrRepo, "Teacher 2", "teacher2@test.cd", "", access.Teacher, true)
	f.student = testutil.CreateUser(t, usrRepo, "Student", "student@test.cd", "", access.Student, true)
	f.outsider = testutil.CreateUser(t, usrRepo, "Outsider", "outsider@test.cd", "", access.Student, true)
	course := testutil.CreateCourse(t, roomRepo, "Algebra", f.teacher.ID)
	f.room = testutil.CreateClassroom(t, roomRepo, "Algebra A", "ALG0001", course)
	testutil.Enroll(t, roomRepo, f.student.ID, f.room.ID)
	f.asgmt = testutil.CreateAssignment(t, f.repo, "Homework 1", f.room)
	return f
}

func TestService_CreateAssignment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	points := 20

	asgmt, err := f.svc.CreateAssignment(ctx, f.teacher.Identity(), coursework.NewAssignment{
		Title: "Essay", Points: &points, Status: coursework.StatusDraft, ClassroomID: f.room.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, f.room.ID, asgmt.ClassroomID)
	assert.Equal(t, 20, asgmt.Points)

	_, err = f.svc.CreateAssignment(ctx, f.teacher2.Identity(), coursework.NewAssignment{Title: "Essay", Points: &points, ClassroomID: f.room.ID})
	assert.Equal(t, core.ErrPermissionDenied, err)

	_, err = f.svc.CreateAssignment(ctx, f.teacher.Identity(), coursework.NewAssignment{
		Title: "Essay", Points: &points, ClassroomID: "6b1a2c9e-1f0e-4a5d-9c3b-2f1e0d9c8b7a",
	})
	_, ok := err.(*core.ValidationError)
	assert.True(t, ok, "got %v", err)

	tests := []struct {
		name  string
		ident access.Identity
		want  int
	}{
		{name: "teacher", ident: f.teacher.Identity(), want: 2},
		{name: "other teacher", ident: f.teacher2.Identity(), want: 0},
		{name: "student", ident: f.student.Identity(), want: 2},
		{name: "outsider", ident: f.outsider.Identity(), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := f.svc.QueryAssignments(ctx, tt.ident, nil)
			require.NoError(t, err)
			assert.Len(t, list, tt.want)
		})
	}
}

func TestService_Submit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.teacher.Identity(), f.asgmt.ID, coursework.NewSubmission{Content: "x"}, nil)
	assert.Equal(t, coursework.ErrOnlyStudentsSubmit, err)

	_, err = f.svc.Submit(ctx, f.outsider.Identity(), f.asgmt.ID, coursework.NewSubmission{Content: "x"}, nil)
	assert.Equal(t, coursework.ErrAssignmentNotFound, err)

	sub, err := f.svc.Submit(ctx, f.student.Identity(), f.asgmt.ID, coursework.NewSubmission{Content: "first"}, nil)
	require.NoError(t, err)
	assert.True(t, sub.IsPending())

	grade := 91.0
	_, err = f.svc.Grade(ctx, f.teacher.Identity(), sub.ID, coursework.GradeSubmission{Grade: &grade, Feedback: "good"})
	require.NoError(t, err)

	upload := &coursework.Upload{Filename: "essay.txt", Reader: strings.NewReader("my essay")}
	resub, err := f.svc.Submit(ctx, f.student.Identity(), f.asgmt.ID, coursework.NewSubmission{Content: "second"}, upload)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, resub.ID)
	assert.Equal(t, "second", resub.Content)
	assert.Equal(t, 91.0, resub.Grade.Float64)
	assert.Equal(t, "good", resub.Feedback)

	key := upload.Key(f.asgmt.ID, f.student.ID)
	assert.Equal(t, "/media/"+key, resub.Attachment)
	assert.Equal(t, "my essay", f.files[key])

	// content-only resubmission keeps the stored attachment
	resub, err = f.svc.Submit(ctx, f.student.Identity(), f.asgmt.ID, coursework.NewSubmission{Content: "third"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "third", resub.Content)
	assert.Equal(t, "/media/"+key, resub.Attachment)

	subs, err := f.svc.QuerySubmissions(ctx, f.teacher.Identity(), f.asgmt.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestService_Grade(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	sub := testutil.Submit(t, f.repo, "answer", f.student.ID, f.asgmt)
	grade := 75.0
	gs := coursework.GradeSubmission{Grade: &grade}

	pending, err := f.svc.PendingSubmissions(ctx, f.teacher.Identity())
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = f.svc.PendingSubmissions(ctx, f.student.Identity())
	assert.Equal(t, coursework.ErrOnlyTeachers, err)

	tests := []struct {
		name    string
		ident   access.Identity
		id      string
		wantErr error
	}{
		{name: "unknown submission", ident: f.teacher.Identity(), id: "6b1a2c9e-1f0e-4a5d-9c3b-2f1e0d9c8b7a", wantErr: coursework.ErrSubmissionNotFound},
		{name: "student", ident: f.student.Identity(), id: sub.ID, wantErr: coursework.ErrNotSubmissionOwner},
		{name: "other teacher", ident: f.teacher2.Identity(), id: sub.ID, wantErr: coursework.ErrNotSubmissionOwner},
		{name: "anonymous", ident: access.Identity{}, id: sub.ID, wantErr: core.ErrNotAuthenticated},
		{name: "classroom teacher", ident: f.teacher.Identity(), id: sub.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			graded, err := f.svc.Grade(ctx, tt.ident, tt.id, gs)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.False(t, graded.IsPending())
			assert.Equal(t, 75.0, graded.Grade.Float64)
		})
	}

	pending, err = f.svc.PendingSubmissions(ctx, f.teacher.Identity())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestService_UpdateAssignment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	title, points, status := "Homework 1 (revised)", 40, coursework.StatusDraft
	ua := coursework.UpdateAssignment{Title: &title, Points: &points, Status: &status}

	tests := []struct {
		name    string
		ident   access.Identity
		wantErr error
	}{
		{name: "student", ident: f.student.Identity(), wantErr: core.ErrPermissionDenied},
		{name: "other teacher", ident: f.teacher2.Identity(), wantErr: coursework.ErrAssignmentNotFound},
		{name: "admin", ident: access.NewIdentity("admin", access.Admin), wantErr: core.ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.UpdateAssignment(ctx, tt.ident, f.asgmt.ID, ua)
			assert.Equal(t, tt.wantErr, err)
		})
	}

	asgmt, err := f.svc.UpdateAssignment(ctx, f.teacher.Identity(), f.asgmt.ID, ua)
	require.NoError(t, err)
	assert.Equal(t, title, asgmt.Title)
	assert.Equal(t, 40, asgmt.Points)
	assert.Equal(t, coursework.StatusDraft, asgmt.Status)
	assert.Equal(t, f.asgmt.Description, asgmt.Description)

	got, err := f.svc.GetAssignment(ctx, f.student.Identity(), f.asgmt.ID)
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
}

func TestService_DeleteAssignment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	admin := access.NewIdentity("admin", access.Admin)

	sub, err := f.svc.Submit(ctx, f.student.Identity(), f.asgmt.ID, coursework.NewSubmission{Content: "done"}, nil)
	require.NoError(t, err)

	assert.Equal(t, core.ErrPermissionDenied, f.svc.DeleteAssignment(ctx, f.student.Identity(), f.asgmt.ID))
	assert.Equal(t, coursework.ErrAssignmentNotFound, f.svc.DeleteAssignment(ctx, f.teacher2.Identity(), f.asgmt.ID))
	require.NoError(t, f.svc.DeleteAssignment(ctx, f.teacher.Identity(), f.asgmt.ID))

	_, err = f.svc.GetAssignment(ctx, admin, f.asgmt.ID)
	assert.Equal(t, coursework.ErrAssignmentNotFound, err)
	_, err = f.repo.GetSubmission(ctx, access.All(), sub.ID)
	assert.Equal(t, coursework.ErrSubmissionNotFound, err)

	other := testutil.CreateAssignment(t, f.repo, "Homework 2", f.room)
	assert.NoError(t, f.svc.DeleteAssignment(ctx, admin, other.ID))
}
