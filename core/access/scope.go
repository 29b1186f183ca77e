package access

import (
	"fmt"
)

// Resource is a scoped record collection.
type Resource int

const (
	Courses Resource = iota + 1
	Classrooms
	Assignments
	Submissions
	Announcements
	AttendanceRecords
	Grades
)

var resourceNames = map[Resource]string{
	Courses:           "courses",
	Classrooms:        "classrooms",
	Assignments:       "assignments",
	Submissions:       "submissions",
	Announcements:     "announcements",
	AttendanceRecords: "attendance",
	Grades:            "grades",
}

func (res Resource) String() string {
	if name, ok := resourceNames[res]; ok {
		return name
	}
	return fmt.Sprintf("Resource(%d)", int(res))
}

// ScopeKind says how a collection is narrowed for a caller.
type ScopeKind int

const (
	// ScopeAll leaves the collection unfiltered.
	ScopeAll ScopeKind = iota + 1
	// ScopeTaught keeps records of the courses and classrooms taught by Scope.UserID.
	ScopeTaught
	// ScopeEnrolled keeps records of the classrooms Scope.UserID is enrolled in.
	ScopeEnrolled
	// ScopeOwn keeps records about or authored by Scope.UserID (submission student, attendance/grade user).
	ScopeOwn
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeAll:
		return "all"
	case ScopeTaught:
		return "taught"
	case ScopeEnrolled:
		return "enrolled"
	case ScopeOwn:
		return "own"
	}
	return fmt.Sprintf("ScopeKind(%d)", int(k))
}

// Scope is the visible subset of a collection. The zero Scope matches nothing and is rejected by repositories.
type Scope struct {
	Kind   ScopeKind
	UserID string
}

// All is the unfiltered scope, used for internal lookups before ownership checks.
func All() Scope { return Scope{Kind: ScopeAll} }

// TaughtBy is the scope of the records of classrooms (and courses) taught by `userID`.
func TaughtBy(userID string) Scope { return Scope{Kind: ScopeTaught, UserID: userID} }

// EnrolledIn is the scope of the records of classrooms `userID` is enrolled in.
func EnrolledIn(userID string) Scope { return Scope{Kind: ScopeEnrolled, UserID: userID} }

// OwnedBy is the scope of the records about `userID`.
func OwnedBy(userID string) Scope { return Scope{Kind: ScopeOwn, UserID: userID} }

func (s Scope) IsValid() bool {
	switch s.Kind {
	case ScopeAll:
		return true
	case ScopeTaught, ScopeEnrolled, ScopeOwn:
		return s.UserID != ""
	}
	return false
}

func (s Scope) String() string {
	if s.Kind == ScopeAll {
		return s.Kind.String()
	}
	return s.Kind.String() + ":" + s.UserID
}

// Scope returns the part of `res` the identity may read.
//
//	resource       teacher   student    admin
//	courses        taught    all        all
//	classrooms     taught    enrolled   all
//	assignments    taught    enrolled   all
//	submissions    taught    own        all
//	announcements  taught    enrolled   all
//	attendance     taught    own        all
//	grades         taught    own        all
func (id Identity) Scope(res Resource) (Scope, error) {
	if err := id.Validate(); err != nil {
		return Scope{}, err
	}

	switch id.Role {
	case Admin:
		if _, ok := resourceNames[res]; ok {
			return All(), nil
		}
	case Teacher:
		if _, ok := resourceNames[res]; ok {
			return TaughtBy(id.UserID), nil
		}
	case Student:
		switch res {
		case Courses:
			return All(), nil
		case Classrooms, Assignments, Announcements:
			return EnrolledIn(id.UserID), nil
		case Submissions, AttendanceRecords, Grades:
			return OwnedBy(id.UserID), nil
		}
	}
	return Scope{}, fmt.Errorf("access: no %s scope for role %q", res, id.Role)
}
