package inmemdb

import (
	"context"
	"sort"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/coursework"
)

type courseworkRepository struct {
	db *DB
}

var _ coursework.Repository = (*courseworkRepository)(nil) // interface compliance check

func NewCourseworkRepository(db *DB) *courseworkRepository {
	return &courseworkRepository{db: db}
}

// Assignments

func (repo *courseworkRepository) CreateAssignment(_ context.Context, asgmt coursework.Assignment) (coursework.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	asgmt.ID = newID()
	repo.db.assignments[asgmt.ID] = &asgmt
	return asgmt, nil
}

func (repo *courseworkRepository) assignmentVisible(scope access.Scope, asgmt *coursework.Assignment) (bool, error) {
	if scope.Kind == access.ScopeOwn || !scope.IsValid() {
		return false, scopeError(access.Assignments, scope)
	}
	return repo.db.inClassroomScope(scope, asgmt.ClassroomID), nil
}

func (repo *courseworkRepository) QueryAssignments(_ context.Context, scope access.Scope, filter *coursework.ListFilter) ([]coursework.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	list := make([]coursework.Assignment, 0)
	for _, asgmt := range repo.db.assignments {
		if filter != nil && filter.ClassroomID != "" && asgmt.ClassroomID != filter.ClassroomID {
			continue
		}
		ok, err := repo.assignmentVisible(scope, asgmt)
		if err != nil {
			return nil, err
		}
		if ok {
			list = append(list, *asgmt)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return newer(list[i].CreatedAt, list[j].CreatedAt, list[i].ID, list[j].ID)
	})
	return list, nil
}

func (repo *courseworkRepository) GetAssignment(_ context.Context, scope access.Scope, id string) (coursework.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	asgmt, ok := repo.db.assignments[id]
	if !ok {
		return coursework.Assignment{}, coursework.ErrAssignmentNotFound
	}
	visible, err := repo.assignmentVisible(scope, asgmt)
	if err != nil {
		return coursework.Assignment{}, err
	}
	if !visible {
		return coursework.Assignment{}, coursework.ErrAssignmentNotFound
	}
	return *asgmt, nil
}

func (repo *courseworkRepository) UpdateAssignment(_ context.Context, asgmt coursework.Assignment) (coursework.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	existing, ok := repo.db.assignments[asgmt.ID]
	if !ok {
		return coursework.Assignment{}, coursework.ErrAssignmentNotFound
	}
	existing.Title = asgmt.Title
	existing.Description = asgmt.Description
	existing.DueDate = asgmt.DueDate
	existing.Points = asgmt.Points
	existing.Status = asgmt.Status
	return *existing, nil
}

func (repo *courseworkRepository) DeleteAssignment(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.deleteAssignment(id)
	return nil
}

// Submissions

func (repo *courseworkRepository) UpsertSubmission(_ context.Context, sub coursework.Submission) (coursework.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, s := range repo.db.submissions {
		if s.AssignmentID == sub.AssignmentID && s.StudentID == sub.StudentID {
			s.Content = sub.Content
			if sub.Attachment != "" {
				s.Attachment = sub.Attachment
			}
			s.SubmittedAt = sub.SubmittedAt
			return *s, nil
		}
	}
	sub.ID = newID()
	sub.Grade = null.Float64{}
	sub.Feedback = ""
	repo.db.submissions[sub.ID] = &sub
	return sub, nil
}

func (repo *courseworkRepository) submissionVisible(scope access.Scope, sub *coursework.Submission) (bool, error) {
	switch scope.Kind {
	case access.ScopeAll:
		return true, nil
	case access.ScopeOwn:
		return sub.StudentID == scope.UserID, nil
	case access.ScopeTaught, access.ScopeEnrolled:
		asgmt, ok := repo.db.assignments[sub.AssignmentID]
		if !ok {
			return false, nil
		}
		return repo.db.inClassroomScope(scope, asgmt.ClassroomID), nil
	}
	return false, scopeError(access.Submissions, scope)
}

func (repo *courseworkRepository) QuerySubmissions(_ context.Context, scope access.Scope, filter *coursework.ListFilter) ([]coursework.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	list := make([]coursework.Submission, 0)
	for _, sub := range repo.db.submissions {
		if filter != nil {
			if filter.AssignmentID != "" && sub.AssignmentID != filter.AssignmentID {
				continue
			}
			if filter.Pending && !sub.IsPending() {
				continue
			}
			if filter.ClassroomID != "" {
				if asgmt, ok := repo.db.assignments[sub.AssignmentID]; !ok || asgmt.ClassroomID != filter.ClassroomID {
					continue
				}
			}
		}
		ok, err := repo.submissionVisible(scope, sub)
		if err != nil {
			return nil, err
		}
		if ok {
			list = append(list, *sub)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return newer(list[i].SubmittedAt, list[j].SubmittedAt, list[i].ID, list[j].ID)
	})
	return list, nil
}

func (repo *courseworkRepository) GetSubmission(_ context.Context, scope access.Scope, id string) (coursework.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sub, ok := repo.db.submissions[id]
	if !ok {
		return coursework.Submission{}, coursework.ErrSubmissionNotFound
	}
	visible, err := repo.submissionVisible(scope, sub)
	if err != nil {
		return coursework.Submission{}, err
	}
	if !visible {
		return coursework.Submission{}, coursework.ErrSubmissionNotFound
	}
	return *sub, nil
}

func (repo *courseworkRepository) GradeSubmission(_ context.Context, id string, grade float64, feedback string) (coursework.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sub, ok := repo.db.submissions[id]
	if !ok {
		return coursework.Submission{}, coursework.ErrSubmissionNotFound
	}
	sub.Grade = null.Float64From(grade)
	sub.Feedback = feedback
	return *sub, nil
}
