package models

import (
	"testing"

	"sprintboard/internal/apperr"
)

func TestEvaluationScoresValidate(t *testing.T) {
	tests := []struct {
		name    string
		scores  EvaluationScores
		wantErr bool
	}{
		{"all zero", EvaluationScores{}, false},
		{"bounds", EvaluationScores{Activities: 100, Team: 0, Communication: 50, Deliveries: 100}, false},
		{"too high", EvaluationScores{Team: 101}, true},
		{"negative", EvaluationScores{Deliveries: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scores.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("kind = %q", apperr.KindOf(err))
			}
		})
	}
}

func TestRolesAndTags(t *testing.T) {
	if !RoleManager.Elevated() || !RoleAdmin.Elevated() || RoleUser.Elevated() {
		t.Error("only managers and admins are elevated")
	}
	if Role("Root").Valid() || Tag("Blocked").Valid() {
		t.Error("unknown values must be invalid")
	}
	for _, tag := range Tags {
		if !tag.Valid() {
			t.Errorf("%q should be valid", tag)
		}
	}
}
