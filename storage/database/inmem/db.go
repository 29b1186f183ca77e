// Package inmemdb is a map-backed store implementing every repository, used by tests and local runs.
package inmemdb

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/coursework"
	"github.com/trezcool/darasa/core/message"
	"github.com/trezcool/darasa/core/user"
)

// DB holds all tables behind a single lock, so that cascades and scope checks see a consistent state.
type DB struct {
	sync.RWMutex

	users         map[string]*user.User
	courses       map[string]*classroom.Course
	classrooms    map[string]*classroom.Classroom
	enrollments   map[string]*classroom.Enrollment
	announcements map[string]*classroom.Announcement
	attendance    map[string]*classroom.Attendance
	grades        map[string]*classroom.Grade
	assignments   map[string]*coursework.Assignment
	submissions   map[string]*coursework.Submission
	messages      map[string]*message.Message
}

func Open() *DB {
	db := new(DB)
	db.Reset()
	return db
}

// Reset empties every table.
func (db *DB) Reset() {
	db.Lock()
	defer db.Unlock()

	db.users = make(map[string]*user.User)
	db.courses = make(map[string]*classroom.Course)
	db.classrooms = make(map[string]*classroom.Classroom)
	db.enrollments = make(map[string]*classroom.Enrollment)
	db.announcements = make(map[string]*classroom.Announcement)
	db.attendance = make(map[string]*classroom.Attendance)
	db.grades = make(map[string]*classroom.Grade)
	db.assignments = make(map[string]*coursework.Assignment)
	db.submissions = make(map[string]*coursework.Submission)
	db.messages = make(map[string]*message.Message)
}

func newID() string { return uuid.New().String() }

// helpers below expect the caller to hold the lock

func (db *DB) teaches(userID, classroomID string) bool {
	room, ok := db.classrooms[classroomID]
	return ok && room.TeacherID == userID
}

func (db *DB) isEnrolled(userID, classroomID string) bool {
	for _, enr := range db.enrollments {
		if enr.UserID == userID && enr.ClassroomID == classroomID {
			return true
		}
	}
	return false
}

// inClassroomScope tells whether records of `classroomID` are visible through `scope`.
// ScopeOwn is handled by the callers since ownership differs per record type.
func (db *DB) inClassroomScope(scope access.Scope, classroomID string) bool {
	switch scope.Kind {
	case access.ScopeAll:
		return true
	case access.ScopeTaught:
		return db.teaches(scope.UserID, classroomID)
	case access.ScopeEnrolled:
		return db.isEnrolled(scope.UserID, classroomID)
	}
	return false
}

func (db *DB) deleteClassroom(id string) {
	delete(db.classrooms, id)
	for k, v := range db.enrollments {
		if v.ClassroomID == id {
			delete(db.enrollments, k)
		}
	}
	for k, v := range db.announcements {
		if v.ClassroomID == id {
			delete(db.announcements, k)
		}
	}
	for k, v := range db.attendance {
		if v.ClassroomID == id {
			delete(db.attendance, k)
		}
	}
	for k, v := range db.grades {
		if v.ClassroomID == id {
			delete(db.grades, k)
		}
	}
	for k, v := range db.assignments {
		if v.ClassroomID == id {
			db.deleteAssignment(k)
		}
	}
}

func (db *DB) deleteAssignment(id string) {
	delete(db.assignments, id)
	for k, v := range db.submissions {
		if v.AssignmentID == id {
			delete(db.submissions, k)
		}
	}
}

// newer orders records newest first, breaking ties by id.
func newer(ti, tj time.Time, idi, idj string) bool {
	if ti.Equal(tj) {
		return idi < idj
	}
	return ti.After(tj)
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}
