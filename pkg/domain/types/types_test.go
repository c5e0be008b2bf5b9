package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/madoguchi/pkg/domain/types"
)

func TestIndexState(t *testing.T) {
	for _, s := range types.AllIndexStates() {
		gt.Bool(t, s.IsValid()).True()
	}
	gt.Bool(t, types.IndexState("BROKEN").IsValid()).False()

	gt.Bool(t, types.IndexStateReady.Serving()).True()
	gt.Bool(t, types.IndexStateRebuilding.Serving()).True()
	gt.Bool(t, types.IndexStateLoading.Serving()).False()
	gt.Bool(t, types.IndexStateUninitialized.Serving()).False()
}

func TestLogicalField(t *testing.T) {
	f, err := types.ParseLogicalField("question")
	gt.NoError(t, err)
	gt.Value(t, f).Equal(types.FieldQuestion)
	gt.Bool(t, f.Required()).True()
	gt.Bool(t, types.FieldCategory.Required()).False()

	_, err = types.ParseLogicalField("title")
	gt.Error(t, err)
}

func TestLoadErrorKind(t *testing.T) {
	gt.Bool(t, types.LoadErrorMissingColumn.FileLevel()).True()
	gt.Bool(t, types.LoadErrorUnreadable.FileLevel()).True()
	gt.Bool(t, types.LoadErrorEmptyField.FileLevel()).False()
	gt.Bool(t, types.LoadErrorDuplicateID.FileLevel()).False()
}

func TestPolicies(t *testing.T) {
	w, err := types.ParseWaitPolicy("reject")
	gt.NoError(t, err)
	gt.Value(t, w).Equal(types.WaitPolicyReject)
	_, err = types.ParseWaitPolicy("queue")
	gt.Error(t, err)

	f, err := types.ParseFallbackPolicy("keyword")
	gt.NoError(t, err)
	gt.Value(t, f).Equal(types.FallbackKeyword)
	_, err = types.ParseFallbackPolicy("llm")
	gt.Error(t, err)
}
