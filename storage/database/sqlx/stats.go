package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/stats"
)

const (
	globalStatsQuery = `SELECT
	(SELECT COUNT(*) FROM "user") AS total_users,
	(SELECT COUNT(*) FROM "course") AS total_courses,
	(SELECT COUNT(*) FROM "classroom") AS total_classrooms,
	(SELECT COUNT(*) FROM "assignment") AS total_assignments`

	teacherStatsQuery = `SELECT
	(SELECT COUNT(*) FROM "course" WHERE "teacher_id" = $1) AS total_courses,
	(SELECT COUNT(*) FROM "classroom" WHERE "teacher_id" = $1) AS active_classrooms,
	(SELECT COUNT(*) FROM "submission" s
		INNER JOIN "assignment" a ON a."id" = s."assignment_id"
		INNER JOIN "classroom" c ON c."id" = a."classroom_id"
		WHERE c."teacher_id" = $1 AND s."grade" IS NULL) AS pending_submissions,
	(SELECT COUNT(DISTINCT e."user_id") FROM "enrollment" e
		INNER JOIN "classroom" c ON c."id" = e."classroom_id"
		WHERE c."teacher_id" = $1) AS total_students,
	(SELECT COUNT(*) FROM "assignment" a
		INNER JOIN "classroom" c ON c."id" = a."classroom_id"
		WHERE c."teacher_id" = $1) AS assignments_given`

	// a course is completed once every assignment of the classroom has a submission
	studentCountsQuery = `SELECT
	(SELECT COUNT(*) FROM "enrollment" WHERE "user_id" = $1) AS enrolled_courses,
	(SELECT COUNT(*) FROM "assignment" a
		INNER JOIN "enrollment" e ON e."classroom_id" = a."classroom_id" AND e."user_id" = $1
		WHERE NOT EXISTS (SELECT 1 FROM "submission" s WHERE s."assignment_id" = a."id" AND s."student_id" = $1)
	) AS pending_assignments,
	(SELECT COUNT(*) FROM "attendance" WHERE "user_id" = $1 AND "status" = $2) AS attendance_present,
	(SELECT COUNT(*) FROM "attendance" WHERE "user_id" = $1) AS attendance_total,
	(SELECT COUNT(*) FROM "enrollment" e WHERE e."user_id" = $1
		AND EXISTS (SELECT 1 FROM "assignment" a WHERE a."classroom_id" = e."classroom_id")
		AND NOT EXISTS (
			SELECT 1 FROM "assignment" a WHERE a."classroom_id" = e."classroom_id"
			AND NOT EXISTS (SELECT 1 FROM "submission" s WHERE s."assignment_id" = a."id" AND s."student_id" = $1)
		)
	) AS completed_courses`
)

type statsRepository struct {
	db *sqlx.DB
}

var _ stats.Repository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(db *sqlx.DB) *statsRepository {
	return &statsRepository{db: db}
}

func (repo statsRepository) GlobalStats(ctx context.Context) (stats.Global, error) {
	var res stats.Global
	if err := repo.db.GetContext(ctx, &res, globalStatsQuery); err != nil {
		return stats.Global{}, errors.Wrap(err, "computing global stats")
	}
	return res, nil
}

func (repo statsRepository) TeacherStats(ctx context.Context, teacherID string) (stats.Teacher, error) {
	var res stats.Teacher
	if !validID(teacherID) {
		return res, nil
	}
	if err := repo.db.GetContext(ctx, &res, teacherStatsQuery, teacherID); err != nil {
		return stats.Teacher{}, errors.Wrap(err, "computing teacher stats")
	}
	return res, nil
}

func (repo statsRepository) StudentCounts(ctx context.Context, studentID string) (stats.StudentCounts, error) {
	var res stats.StudentCounts
	if !validID(studentID) {
		return res, nil
	}
	if err := repo.db.GetContext(ctx, &res, studentCountsQuery, studentID, classroom.StatusPresent); err != nil {
		return stats.StudentCounts{}, errors.Wrap(err, "computing student stats")
	}
	err := repo.db.SelectContext(ctx, &res.GradeLetters, `SELECT "grade_letter" FROM "grade" WHERE "user_id" = $1`, studentID)
	if err != nil {
		return stats.StudentCounts{}, errors.Wrap(err, "querying grade letters")
	}
	return res, nil
}
