package usecase_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/madoguchi/pkg/domain/model"
	"github.com/secmon-lab/madoguchi/pkg/usecase"
)

func TestKeywordTokens(t *testing.T) {
	gt.Array(t, usecase.KeywordTokens("ＶＰＮ, vpn  Password!")).Equal([]string{"vpn", "password"})
	gt.Array(t, usecase.KeywordTokens("  ？！ ")).Length(0)
}

func TestKeywordSearch(t *testing.T) {
	records := []*model.QARecord{
		qa("B-1", "printer jam", "open tray", "office"),
		qa("A-1", "printer toner", "call vendor", "office"),
		qa("C-1", "lunch", "12:00", "general"),
	}

	t.Run("ties break by id", func(t *testing.T) {
		got := usecase.KeywordSearch(records, "printer", 5)
		gt.Array(t, got).Length(2)
		gt.Value(t, got[0].ID).Equal(model.RecordID("A-1"))
		gt.Value(t, got[1].ID).Equal(model.RecordID("B-1"))
	})

	t.Run("share of matched tokens", func(t *testing.T) {
		got := usecase.KeywordSearch(records, "printer jam", 5)
		gt.Array(t, got).Length(2)
		gt.Value(t, got[0].ID).Equal(model.RecordID("B-1"))
		gt.Value(t, got[0].Score).Equal(1.0)
		gt.Value(t, got[1].Score).Equal(0.5)
	})

	t.Run("k bounds the result", func(t *testing.T) {
		gt.Array(t, usecase.KeywordSearch(records, "office", 1)).Length(1)
		gt.Array(t, usecase.KeywordSearch(records, "office", 0)).Length(0)
	})

	t.Run("no match", func(t *testing.T) {
		gt.Array(t, usecase.KeywordSearch(records, "holiday", 5)).Length(0)
	})
}
