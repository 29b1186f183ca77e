package boiledrepos

import (
	"testing"

	"github.com/friendsofgo/errors"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
)

func TestInsertAndUpdateQueries(t *testing.T) {
	assert.Equal(t,
		`INSERT INTO "course" ("id","title","teacher_id") VALUES ($1,$2,$3)`,
		insertQuery(courseTable, []string{"id", "title", "teacher_id"}))
	assert.Equal(t,
		`UPDATE "course" SET "title"=$1,"description"=$2 WHERE "id"=$3`,
		updateQuery(courseTable, []string{"title", "description"}, []string{"id"}))
}

func TestUpsertSubmissionQuery(t *testing.T) {
	assert.Contains(t, upsertSubmissionQuery, `ON CONFLICT ("assignment_id", "student_id") DO UPDATE SET`)
	assert.Contains(t, upsertSubmissionQuery, `"attachment" = COALESCE(NULLIF(EXCLUDED."attachment", ''), "submission"."attachment")`)
	assert.NotContains(t, upsertSubmissionQuery, `"grade" = EXCLUDED`)
}

func TestScopeMods(t *testing.T) {
	uid := "6b1a2c9e-1f0e-4a5d-9c3b-2f1e0d9c8b7a"

	tests := []struct {
		name      string
		res       access.Resource
		scope     access.Scope
		table     string
		cols      []string
		wantWhere string
		wantErr   bool
	}{
		{name: "all", res: access.Courses, scope: access.All(), table: courseTable, cols: courseColumns},
		{
			name: "taught courses", res: access.Courses, scope: access.TaughtBy(uid), table: courseTable, cols: courseColumns,
			wantWhere: `"course"."teacher_id" = $1`,
		},
		{
			name: "enrolled courses", res: access.Courses, scope: access.EnrolledIn(uid), table: courseTable, cols: courseColumns,
			wantWhere: `WHERE "e"."user_id" = $1`,
		},
		{
			name: "enrolled classrooms", res: access.Classrooms, scope: access.EnrolledIn(uid), table: classroomTable, cols: classroomColumns,
			wantWhere: `"classroom"."id" IN (SELECT "classroom_id" FROM "enrollment" WHERE "user_id" = $1)`,
		},
		{
			name: "taught submissions", res: access.Submissions, scope: access.TaughtBy(uid), table: submissionTable, cols: submissionColumns,
			wantWhere: `WHERE "c"."teacher_id" = $1`,
		},
		{
			name: "own submissions", res: access.Submissions, scope: access.OwnedBy(uid), table: submissionTable, cols: submissionColumns,
			wantWhere: `"submission"."student_id" = $1`,
		},
		{
			name: "own grades", res: access.Grades, scope: access.OwnedBy(uid), table: gradeTable, cols: gradeColumns,
			wantWhere: `"grade"."user_id" = $1`,
		},
		{name: "own classrooms unsupported", res: access.Classrooms, scope: access.OwnedBy(uid), table: classroomTable, cols: classroomColumns, wantErr: true},
		{name: "zero scope", res: access.Grades, scope: access.Scope{}, table: gradeTable, cols: gradeColumns, wantErr: true},
		{name: "missing user", res: access.Grades, scope: access.TaughtBy(""), table: gradeTable, cols: gradeColumns, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mods, err := scoped(tc.res, tc.scope, tc.table, tc.cols)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			query, args := queries.BuildQuery(newQuery(mods...))
			assert.Contains(t, query, `FROM "`+tc.table+`"`)
			if tc.wantWhere == "" {
				assert.NotContains(t, query, "WHERE")
				assert.Empty(t, args)
			} else {
				assert.Contains(t, query, tc.wantWhere)
				assert.Equal(t, []interface{}{uid}, args)
			}
		})
	}
}

func TestOrderBy(t *testing.T) {
	ordering := []core.DBOrdering{{Field: "name", Ascending: true}, {Field: "password_hash"}, {Field: "created_at"}}
	query, _ := queries.BuildQuery(newQuery(qm.From(quote(userTable)), orderBy(ordering, userOrderFields, `"created_at" DESC`)))
	assert.Contains(t, query, `ORDER BY "name" ASC, "created_at" DESC`)
	assert.NotContains(t, query, "password_hash")

	query, _ = queries.BuildQuery(newQuery(qm.From(quote(userTable)), orderBy(nil, userOrderFields, `"created_at" DESC`)))
	assert.Contains(t, query, `ORDER BY "created_at" DESC`)
}

func TestIsUniqueViolation(t *testing.T) {
	err := errors.Wrap(&pq.Error{Code: uniqueViolation, Constraint: classroomCodeKey}, "inserting classroom")
	assert.True(t, isUniqueViolation(err))
	assert.True(t, isUniqueViolation(err, classroomCodeKey))
	assert.False(t, isUniqueViolation(err, "enrollment_user_id_classroom_id_key"))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}
