package validator

import (
	"testing"

	"github.com/stemsi/exstem-attempt/internal/model"
)

func TestStructRejectsBlankClassification(t *testing.T) {
	Setup()

	fields := Struct(&model.RecordViolationRequest{Classification: "   "})
	if fields == nil {
		t.Fatal("expected validation failure for blank classification")
	}
	if _, ok := fields["classification"]; !ok {
		t.Fatalf("expected classification error, got %v", fields)
	}
}

func TestStructAcceptsClassification(t *testing.T) {
	Setup()

	if fields := Struct(&model.RecordViolationRequest{Classification: "tab_switch"}); fields != nil {
		t.Fatalf("unexpected errors: %v", fields)
	}
}

func TestSaveAnswerRequiresUUID(t *testing.T) {
	Setup()

	fields := Struct(&model.SaveAnswerRequest{QuestionID: "not-a-uuid"})
	if _, ok := fields["question_id"]; !ok {
		t.Fatalf("expected question_id error, got %v", fields)
	}
}
