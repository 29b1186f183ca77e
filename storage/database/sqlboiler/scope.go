package boiledrepos

import (
	"github.com/friendsofgo/errors"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/darasa/core/access"
)

// scopeRule holds the WHERE clauses narrowing a resource, keyed by scope kind. A missing kind is unsupported.
type scopeRule map[access.ScopeKind]string

const (
	taughtClassrooms   = `SELECT "id" FROM "classroom" WHERE "teacher_id" = ?`
	enrolledClassrooms = `SELECT "classroom_id" FROM "enrollment" WHERE "user_id" = ?`
)

var scopeRules = map[access.Resource]scopeRule{
	access.Courses: {
		access.ScopeTaught: `"course"."teacher_id" = ?`,
		access.ScopeEnrolled: `"course"."id" IN (SELECT "c"."course_id" FROM "classroom" "c" INNER JOIN "enrollment" "e" ` +
			`ON "e"."classroom_id" = "c"."id" WHERE "e"."user_id" = ?)`,
	},
	access.Classrooms: {
		access.ScopeTaught:   `"classroom"."teacher_id" = ?`,
		access.ScopeEnrolled: `"classroom"."id" IN (` + enrolledClassrooms + `)`,
	},
	access.Assignments: {
		access.ScopeTaught:   `"assignment"."classroom_id" IN (` + taughtClassrooms + `)`,
		access.ScopeEnrolled: `"assignment"."classroom_id" IN (` + enrolledClassrooms + `)`,
	},
	access.Submissions: {
		access.ScopeTaught: `"submission"."assignment_id" IN (SELECT "a"."id" FROM "assignment" "a" INNER JOIN "classroom" "c" ` +
			`ON "c"."id" = "a"."classroom_id" WHERE "c"."teacher_id" = ?)`,
		access.ScopeEnrolled: `"submission"."assignment_id" IN (SELECT "a"."id" FROM "assignment" "a" INNER JOIN "enrollment" "e" ` +
			`ON "e"."classroom_id" = "a"."classroom_id" WHERE "e"."user_id" = ?)`,
		access.ScopeOwn: `"submission"."student_id" = ?`,
	},
	access.Announcements: {
		access.ScopeTaught:   `"announcement"."classroom_id" IN (` + taughtClassrooms + `)`,
		access.ScopeEnrolled: `"announcement"."classroom_id" IN (` + enrolledClassrooms + `)`,
	},
	access.AttendanceRecords: {
		access.ScopeTaught:   `"attendance"."classroom_id" IN (` + taughtClassrooms + `)`,
		access.ScopeEnrolled: `"attendance"."classroom_id" IN (` + enrolledClassrooms + `)`,
		access.ScopeOwn:      `"attendance"."user_id" = ?`,
	},
	access.Grades: {
		access.ScopeTaught:   `"grade"."classroom_id" IN (` + taughtClassrooms + `)`,
		access.ScopeEnrolled: `"grade"."classroom_id" IN (` + enrolledClassrooms + `)`,
		access.ScopeOwn:      `"grade"."user_id" = ?`,
	},
}

// scopeMods translates `scope` into query mods restricting `res`.
func scopeMods(res access.Resource, scope access.Scope) ([]qm.QueryMod, error) {
	if !scope.IsValid() {
		return nil, errors.Errorf("boiledrepos: invalid scope %q for %s", scope, res)
	}
	if scope.Kind == access.ScopeAll {
		return nil, nil
	}
	clause, ok := scopeRules[res][scope.Kind]
	if !ok {
		return nil, errors.Errorf("boiledrepos: scope %q is not supported for %s", scope, res)
	}
	return []qm.QueryMod{qm.Where(clause, scope.UserID)}, nil
}
