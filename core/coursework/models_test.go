package coursework

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
)

func TestUpload_Key(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"essay.pdf", "submissions/a1/s1/essay.pdf"},
		{"my essay.pdf", "submissions/a1/s1/my_essay.pdf"},
		{"../../etc/passwd", "submissions/a1/s1/passwd"},
		{`C:\Users\me\hw.docx`, "submissions/a1/s1/hw.docx"},
		{"", "submissions/a1/s1/attachment"},
		{".", "submissions/a1/s1/attachment"},
		{"..", "submissions/a1/s1/attachment"},
		{"dir/..", "submissions/a1/s1/attachment"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, Upload{Filename: tt.filename}.Key("a1", "s1"))
		})
	}
}

func TestNewAssignment_Validate(t *testing.T) {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())
	uid := "6b1a2c9e-1f0e-4a5d-9c3b-2f1e0d9c8b7a"

	na := NewAssignment{Title: " Essay ", ClassroomID: strings.ToUpper(uid)}
	require.NoError(t, na.Validate(validate))
	assert.Equal(t, "Essay", na.Title)
	assert.Equal(t, StatusPublished, na.Status)
	assert.Equal(t, defaultPoints, *na.Points)
	assert.Equal(t, uid, na.ClassroomID)

	na = NewAssignment{Title: "Essay", ClassroomID: uid, Status: "archived"}
	assert.Error(t, na.Validate(validate))

	ns := NewSubmission{Content: "  "}
	assert.Error(t, ns.Validate(validate, nil))
	ns = NewSubmission{}
	assert.NoError(t, ns.Validate(validate, &Upload{Filename: "essay.pdf"}))
	ns = NewSubmission{Attachment: "not a url"}
	assert.Error(t, ns.Validate(validate, nil))
}

func TestSubmission_IsPending(t *testing.T) {
	sub := Submission{}
	assert.True(t, sub.IsPending())
	sub.Grade.SetValid(88)
	assert.False(t, sub.IsPending())
}

func TestUpdateAssignment_Validate(t *testing.T) {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())
	str := func(s string) *string { return &s }

	tests := []struct {
		name    string
		ua      UpdateAssignment
		wantErr bool
	}{
		{name: "empty", ua: UpdateAssignment{}},
		{name: "status", ua: UpdateAssignment{Status: str(" Draft ")}},
		{name: "blank status ignored", ua: UpdateAssignment{Status: str(" ")}},
		{name: "blank title", ua: UpdateAssignment{Title: str("  ")}, wantErr: true},
		{name: "bad status", ua: UpdateAssignment{Status: str("archived")}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ua.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			if tt.ua.Status != nil {
				assert.Equal(t, StatusDraft, *tt.ua.Status)
			}
		})
	}
}
