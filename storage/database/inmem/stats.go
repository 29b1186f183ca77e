package inmemdb

import (
	"context"

	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/stats"
)

type statsRepository struct {
	db *DB
}

var _ stats.Repository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(db *DB) *statsRepository {
	return &statsRepository{db: db}
}

func (repo *statsRepository) GlobalStats(context.Context) (stats.Global, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return stats.Global{
		TotalUsers:       len(repo.db.users),
		TotalCourses:     len(repo.db.courses),
		TotalClassrooms:  len(repo.db.classrooms),
		TotalAssignments: len(repo.db.assignments),
	}, nil
}

func (repo *statsRepository) TeacherStats(_ context.Context, teacherID string) (stats.Teacher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var res stats.Teacher
	for _, c := range repo.db.courses {
		if c.TeacherID == teacherID {
			res.TotalCourses++
		}
	}
	for _, room := range repo.db.classrooms {
		if room.TeacherID == teacherID {
			res.ActiveClassrooms++
		}
	}
	students := make(map[string]struct{})
	for _, enr := range repo.db.enrollments {
		if repo.db.teaches(teacherID, enr.ClassroomID) {
			students[enr.UserID] = struct{}{}
		}
	}
	res.TotalStudents = len(students)
	for _, asgmt := range repo.db.assignments {
		if repo.db.teaches(teacherID, asgmt.ClassroomID) {
			res.AssignmentsGiven++
		}
	}
	for _, sub := range repo.db.submissions {
		if asgmt, ok := repo.db.assignments[sub.AssignmentID]; ok && sub.IsPending() && repo.db.teaches(teacherID, asgmt.ClassroomID) {
			res.PendingSubmissions++
		}
	}
	return res, nil
}

func (repo *statsRepository) StudentCounts(_ context.Context, studentID string) (stats.StudentCounts, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var res stats.StudentCounts
	submitted := make(map[string]bool)
	for _, sub := range repo.db.submissions {
		if sub.StudentID == studentID {
			submitted[sub.AssignmentID] = true
		}
	}

	// per enrolled classroom: number of assignments and how many are still pending
	type counts struct{ total, pending int }
	rooms := make(map[string]*counts)
	for _, enr := range repo.db.enrollments {
		if enr.UserID == studentID {
			rooms[enr.ClassroomID] = new(counts)
		}
	}
	res.EnrolledCourses = len(rooms)
	for _, asgmt := range repo.db.assignments {
		c, ok := rooms[asgmt.ClassroomID]
		if !ok {
			continue
		}
		c.total++
		if !submitted[asgmt.ID] {
			c.pending++
			res.PendingAssignments++
		}
	}
	for _, c := range rooms {
		if c.total > 0 && c.pending == 0 {
			res.CompletedCourses++
		}
	}

	for _, att := range repo.db.attendance {
		if att.UserID == studentID {
			res.AttendanceTotal++
			if att.Status == classroom.StatusPresent {
				res.AttendancePresent++
			}
		}
	}
	for _, g := range repo.db.grades {
		if g.UserID == studentID {
			res.GradeLetters = append(res.GradeLetters, g.GradeLetter)
		}
	}
	return res, nil
}
