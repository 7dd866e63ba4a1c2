package store

import (
	"context"
	"errors"
	"testing"

	"github.com/iabetor/voicearena/internal/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("database.Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return New(db, 0)
}

func mustVoice(t *testing.T, s *Store, name string, active bool) *Voice {
	t.Helper()
	v := &Voice{Provider: "elevenlabs", VoiceID: "el-" + name, Name: name, IsActive: active}
	if err := s.CreateVoice(context.Background(), v); err != nil {
		t.Fatalf("CreateVoice(%s) failed: %v", name, err)
	}
	return v
}

func mustScript(t *testing.T, s *Store, title string) *Script {
	t.Helper()
	sc := &Script{Title: title, Content: "Hello, thanks for calling.", Category: "greeting"}
	if err := s.CreateScript(context.Background(), sc); err != nil {
		t.Fatalf("CreateScript(%s) failed: %v", title, err)
	}
	return sc
}

func TestCreateVoice_InitializesRating(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v := mustVoice(t, s, "rachel", true)
	if v.ID == "" {
		t.Fatal("expected generated ID")
	}

	r, err := s.RatingByVoice(ctx, v.ID)
	if err != nil {
		t.Fatalf("RatingByVoice failed: %v", err)
	}
	if r.Score != 1500.0 {
		t.Errorf("initial rating: got %v, want 1500", r.Score)
	}

	got, err := s.GetVoice(ctx, v.ID)
	if err != nil {
		t.Fatalf("GetVoice failed: %v", err)
	}
	if got.Rating == nil || *got.Rating != 1500.0 {
		t.Errorf("joined rating: got %v", got.Rating)
	}
	if got.Name != "rachel" || !got.IsActive || got.Provider != "elevenlabs" {
		t.Errorf("unexpected voice: %+v", got)
	}
}

func TestCreateVoice_Duplicate(t *testing.T) {
	s := newTestStore(t)
	mustVoice(t, s, "adam", true)

	dup := &Voice{Provider: "elevenlabs", VoiceID: "el-adam", Name: "Adam again"}
	err := s.CreateVoice(context.Background(), dup)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestGetVoice_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetVoice(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestActiveVoices(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustVoice(t, s, "a", true)
	mustVoice(t, s, "b", false)
	c := mustVoice(t, s, "c", true)

	active, err := s.ActiveVoices(ctx)
	if err != nil {
		t.Fatalf("ActiveVoices failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active voices, got %d", len(active))
	}
	ids := map[string]bool{active[0].ID: true, active[1].ID: true}
	if !ids[a.ID] || !ids[c.ID] {
		t.Errorf("unexpected active set: %+v", active)
	}

	all, _ := s.ListVoices(ctx)
	if len(all) != 3 {
		t.Errorf("expected 3 voices, got %d", len(all))
	}
}

func TestUpdateVoice(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	v := mustVoice(t, s, "old", true)

	name := "new"
	desc := "warm narrator"
	got, err := s.UpdateVoice(ctx, v.ID, VoiceUpdate{Name: &name, Description: &desc})
	if err != nil {
		t.Fatalf("UpdateVoice failed: %v", err)
	}
	if got.Name != "new" || got.Description != "warm narrator" || !got.IsActive {
		t.Errorf("unexpected voice after update: %+v", got)
	}

	got, err = s.SetVoiceActive(ctx, v.ID, false)
	if err != nil {
		t.Fatalf("SetVoiceActive failed: %v", err)
	}
	if got.IsActive {
		t.Error("voice should be inactive")
	}

	if _, err := s.SetVoiceActive(ctx, "missing", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteVoice_CascadesRatingAndComparisons(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustVoice(t, s, "a", true)
	b := mustVoice(t, s, "b", true)
	c := mustVoice(t, s, "c", true)
	sc := mustScript(t, s, "hello")

	// a 作为左侧、右侧各一次，b/c 之间一次
	for _, pair := range [][2]string{{a.ID, b.ID}, {c.ID, a.ID}, {b.ID, c.ID}} {
		winner := pair[0]
		if err := s.CreateComparison(ctx, &Comparison{VoiceAID: pair[0], VoiceBID: pair[1], ScriptID: sc.ID, WinnerID: &winner}); err != nil {
			t.Fatalf("CreateComparison failed: %v", err)
		}
	}

	if err := s.DeleteVoice(ctx, a.ID); err != nil {
		t.Fatalf("DeleteVoice failed: %v", err)
	}

	if _, err := s.RatingByVoice(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("rating should be gone, got %v", err)
	}
	comps, err := s.ListComparisons(ctx)
	if err != nil {
		t.Fatalf("ListComparisons failed: %v", err)
	}
	if len(comps) != 1 {
		t.Fatalf("expected 1 remaining comparison, got %d", len(comps))
	}
	if comps[0].VoiceAID == a.ID || comps[0].VoiceBID == a.ID {
		t.Errorf("comparison referencing deleted voice survived: %+v", comps[0])
	}

	if err := s.DeleteVoice(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete should be ErrNotFound, got %v", err)
	}
}

func TestDeleteScript_CascadesComparisons(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustVoice(t, s, "a", true)
	b := mustVoice(t, s, "b", true)
	keep := mustScript(t, s, "keep")
	drop := mustScript(t, s, "drop")

	s.CreateComparison(ctx, &Comparison{VoiceAID: a.ID, VoiceBID: b.ID, ScriptID: keep.ID})
	s.CreateComparison(ctx, &Comparison{VoiceAID: a.ID, VoiceBID: b.ID, ScriptID: drop.ID})

	if err := s.DeleteScript(ctx, drop.ID); err != nil {
		t.Fatalf("DeleteScript failed: %v", err)
	}
	n, _ := s.CountComparisons(ctx)
	if n != 1 {
		t.Errorf("expected 1 comparison left, got %d", n)
	}
	if _, err := s.GetScript(ctx, drop.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("script should be gone, got %v", err)
	}
	scripts, _ := s.ListScripts(ctx)
	if len(scripts) != 1 || scripts[0].ID != keep.ID {
		t.Errorf("unexpected scripts: %+v", scripts)
	}
}

func TestCreateComparison_UnknownVoice(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.CreateComparison(ctx, &Comparison{VoiceAID: "ghost-a", VoiceBID: "ghost-b", ScriptID: "ghost-s"})
	if err != nil {
		t.Fatalf("comparisons must not depend on referenced rows: %v", err)
	}
	comps, _ := s.ListComparisons(ctx)
	if len(comps) != 1 || comps[0].WinnerID != nil {
		t.Errorf("unexpected comparisons: %+v", comps)
	}
}

func TestUpdateRating(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	v := mustVoice(t, s, "a", true)

	if err := s.UpdateRating(ctx, v.ID, 1516.0); err != nil {
		t.Fatalf("UpdateRating failed: %v", err)
	}
	r, _ := s.RatingByVoice(ctx, v.ID)
	if r.Score != 1516.0 {
		t.Errorf("got %v, want 1516", r.Score)
	}
	if err := s.UpdateRating(ctx, "missing", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLeaderboard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustVoice(t, s, "a", true)
	b := mustVoice(t, s, "b", false)
	sc := mustScript(t, s, "x")

	s.UpdateRating(ctx, a.ID, 1516)
	s.UpdateRating(ctx, b.ID, 1484)
	winner := a.ID
	s.CreateComparison(ctx, &Comparison{VoiceAID: a.ID, VoiceBID: b.ID, ScriptID: sc.ID, WinnerID: &winner})
	s.CreateComparison(ctx, &Comparison{VoiceAID: b.ID, VoiceBID: a.ID, ScriptID: sc.ID})

	board, err := s.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if len(board) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(board))
	}
	top := board[0]
	if top.Rank != 1 || top.Voice.ID != a.ID || top.Score != 1516 {
		t.Errorf("unexpected top entry: %+v", top)
	}
	if top.Wins != 1 || top.Losses != 0 || top.Ties != 1 {
		t.Errorf("a stats: wins=%d losses=%d ties=%d", top.Wins, top.Losses, top.Ties)
	}
	if board[1].Wins != 0 || board[1].Losses != 1 || board[1].Ties != 1 {
		t.Errorf("b stats: %+v", board[1])
	}
	if board[1].Voice.IsActive {
		t.Error("inactive voices stay on the leaderboard with their status")
	}
}

func TestReplaceRatings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustVoice(t, s, "a", true)
	b := mustVoice(t, s, "b", true)

	if err := s.ReplaceRatings(ctx, map[string]float64{a.ID: 1600, b.ID: 1400}); err != nil {
		t.Fatalf("ReplaceRatings failed: %v", err)
	}
	ra, _ := s.RatingByVoice(ctx, a.ID)
	rb, _ := s.RatingByVoice(ctx, b.ID)
	if ra.Score != 1600 || rb.Score != 1400 {
		t.Errorf("got %v / %v", ra.Score, rb.Score)
	}
}
