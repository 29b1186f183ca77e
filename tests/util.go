// Package testutil holds fixtures shared by the test suites.
package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/coursework"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/services/logger"
)

// NewConfig returns the app config in test mode.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.TestMode = true
	conf.Storage.Backend = "disk"
	return conf
}

// NewLogger returns a silent logger that never reaches Rollbar.
func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", log.LstdFlags), conf)
	logger.Enable(false)
	return logger
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	role access.Role,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo classroom.Repository, title, teacherID string) classroom.Course {
	now := time.Now().UTC()
	course, err := repo.CreateCourse(context.Background(), classroom.Course{
		Title:     title,
		TeacherID: teacherID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return course
}

func CreateClassroom(t *testing.T, repo classroom.Repository, name, code string, course classroom.Course) classroom.Classroom {
	room, err := repo.CreateClassroom(context.Background(), classroom.Classroom{
		Name:      name,
		Code:      code,
		CourseID:  course.ID,
		TeacherID: course.TeacherID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateClassroom() failed: %v", err)
	}
	return room
}

func Enroll(t *testing.T, repo classroom.Repository, userID, classroomID string) classroom.Enrollment {
	enr, err := repo.CreateEnrollment(context.Background(), classroom.Enrollment{
		UserID:      userID,
		ClassroomID: classroomID,
		EnrolledAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return enr
}

func CreateAssignment(t *testing.T, repo coursework.Repository, title string, room classroom.Classroom) coursework.Assignment {
	asgmt, err := repo.CreateAssignment(context.Background(), coursework.Assignment{
		Title:       title,
		Points:      100,
		Status:      coursework.StatusPublished,
		ClassroomID: room.ID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return asgmt
}

func Submit(t *testing.T, repo coursework.Repository, content, studentID string, asgmt coursework.Assignment) coursework.Submission {
	sub, err := repo.UpsertSubmission(context.Background(), coursework.Submission{
		AssignmentID: asgmt.ID,
		StudentID:    studentID,
		Content:      content,
		SubmittedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	return sub
}
