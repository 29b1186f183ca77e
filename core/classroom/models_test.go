package classroom

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
)

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		assert.Len(t, code, codeLength)
		assert.True(t, isValidCode(code), code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestIsValidCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"ABC1234", true},
		{"ZZZZZZZ", true},
		{"abc1234", false},
		{"ABC123", false},
		{"ABC12345", false},
		{"ABC-123", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isValidCode(tt.code), tt.code)
	}
}

func TestGradeLetter(t *testing.T) {
	tests := []struct {
		score, max float64
		want       string
	}{
		{95, 100, "A"},
		{90, 100, "A"},
		{89.99, 100, "B"},
		{80, 100, "B"},
		{70, 100, "C"},
		{60, 100, "D"},
		{59, 100, "F"},
		{18, 20, "A"},
		{0, 100, "F"},
		{10, 0, "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GradeLetter(tt.score, tt.max), "%v/%v", tt.score, tt.max)
	}

	assert.Equal(t, 4.0, LetterPoints("A"))
	assert.Equal(t, 1.0, LetterPoints("d"))
	assert.Equal(t, 0.0, LetterPoints("F"))
}

func newValidator() *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())
	return validate
}

func TestNewGrade_Validate(t *testing.T) {
	validate := newValidator()
	score := 85.0
	uid := "6b1a2c9e-1f0e-4a5d-9c3b-2f1e0d9c8b7a"

	ng := NewGrade{UserID: uid, ClassroomID: uid, Title: "  Midterm ", Score: &score}
	require.NoError(t, ng.Validate(validate))
	assert.Equal(t, "Midterm", ng.Title)
	assert.Equal(t, float64(defaultMaxScore), ng.MaxScore)
	assert.Equal(t, "B", ng.GradeLetter)
	assert.True(t, ng.Date.Equal(core.Today()))

	ng = NewGrade{UserID: uid, ClassroomID: uid, Title: "Quiz", Score: &score, GradeLetter: "a", DateStr: "2024-03-01"}
	require.NoError(t, ng.Validate(validate))
	assert.Equal(t, "A", ng.GradeLetter)
	assert.Equal(t, "2024-03-01", ng.Date.String())

	ng = NewGrade{UserID: uid, ClassroomID: uid, Title: "Quiz", Score: &score, DateStr: "01/03/2024"}
	err := ng.Validate(validate)
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "date", verr.Fields[0].Field)

	ng = NewGrade{UserID: uid, ClassroomID: uid, Title: "Quiz"}
	assert.Error(t, ng.Validate(validate))
}

func TestNewAttendance_Validate(t *testing.T) {
	validate := newValidator()
	uid := "6b1a2c9e-1f0e-4a5d-9c3b-2f1e0d9c8b7a"

	na := NewAttendance{UserID: uid, ClassroomID: uid, Status: " Late "}
	require.NoError(t, na.Validate(validate))
	assert.Equal(t, StatusLate, na.Status)
	assert.True(t, na.Date.Equal(core.Today()))

	na = NewAttendance{UserID: uid, ClassroomID: uid, Status: "sick"}
	assert.Error(t, na.Validate(validate))
}

func TestJoinRequest_Validate(t *testing.T) {
	jr := JoinRequest{Code: " abc1234 "}
	require.NoError(t, jr.Validate(newValidator()))
	assert.Equal(t, "ABC1234", jr.Code)
}

func TestUpdateCourse_Validate(t *testing.T) {
	blank := "   "
	uc := UpdateCourse{Title: &blank}
	assert.Error(t, uc.Validate(newValidator()))

	title := " Algebra "
	uc = UpdateCourse{Title: &title}
	require.NoError(t, uc.Validate(newValidator()))
	assert.Equal(t, "Algebra", *uc.Title)
	assert.Nil(t, uc.Description)
}

func TestUpdateGrade(t *testing.T) {
	validate := newValidator()
	ptr := func(f float64) *float64 { return &f }
	str := func(s string) *string { return &s }

	tests := []struct {
		name       string
		ug         UpdateGrade
		wantErr    bool
		wantScore  float64
		wantMax    float64
		wantLetter string
		wantTitle  string
	}{
		{name: "new score", ug: UpdateGrade{Score: ptr(55)}, wantScore: 55, wantMax: 100, wantLetter: "F", wantTitle: "Quiz"},
		{name: "new max score", ug: UpdateGrade{MaxScore: ptr(80)}, wantScore: 72, wantMax: 80, wantLetter: "A", wantTitle: "Quiz"},
		{name: "explicit letter", ug: UpdateGrade{Score: ptr(55), GradeLetter: str(" b ")}, wantScore: 55, wantMax: 100, wantLetter: "B", wantTitle: "Quiz"},
		{name: "title only", ug: UpdateGrade{Title: str(" Final quiz ")}, wantScore: 72, wantMax: 100, wantLetter: "C", wantTitle: "Final quiz"},
		{name: "blank title", ug: UpdateGrade{Title: str("  ")}, wantErr: true},
		{name: "zero max score", ug: UpdateGrade{MaxScore: ptr(0)}, wantErr: true},
		{name: "bad letter", ug: UpdateGrade{GradeLetter: str("E")}, wantErr: true},
		{name: "bad date", ug: UpdateGrade{DateStr: str("tomorrow")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ug.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			grade := Grade{Title: "Quiz", Score: 72, MaxScore: 100, GradeLetter: "C"}
			tt.ug.apply(&grade)
			assert.Equal(t, tt.wantScore, grade.Score)
			assert.Equal(t, tt.wantMax, grade.MaxScore)
			assert.Equal(t, tt.wantLetter, grade.GradeLetter)
			assert.Equal(t, tt.wantTitle, grade.Title)
		})
	}
}

func TestUpdateAnnouncement_Validate(t *testing.T) {
	blank := " "
	ua := UpdateAnnouncement{Content: &blank}
	assert.Error(t, ua.Validate(newValidator()))

	title := " Exam moved "
	ua = UpdateAnnouncement{Title: &title}
	require.NoError(t, ua.Validate(newValidator()))
	assert.Equal(t, "Exam moved", *ua.Title)
	assert.Nil(t, ua.Content)
}

func TestUpdateAttendance_Validate(t *testing.T) {
	ua := UpdateAttendance{Status: " ABSENT"}
	require.NoError(t, ua.Validate(newValidator()))
	assert.Equal(t, StatusAbsent, ua.Status)

	ua = UpdateAttendance{}
	assert.Error(t, ua.Validate(newValidator()))
}
