package rewards

import "testing"

func TestChapterQuizFormulas(t *testing.T) {
	cases := []struct {
		score    int
		xp, gems int
	}{
		{score: 0, xp: 0, gems: 0},
		{score: 49, xp: 98, gems: 9},
		{score: 80, xp: 160, gems: 16},
		{score: 100, xp: 200, gems: 20},
		{score: 140, xp: 200, gems: 20},
		{score: -3, xp: 0, gems: 0},
	}
	for _, tc := range cases {
		if got := ChapterQuizXP(tc.score); got != tc.xp {
			t.Errorf("ChapterQuizXP(%d) = %d, want %d", tc.score, got, tc.xp)
		}
		if got := ScoreGems(tc.score); got != tc.gems {
			t.Errorf("ScoreGems(%d) = %d, want %d", tc.score, got, tc.gems)
		}
	}
}

func TestFinalExamFormulas(t *testing.T) {
	cases := []struct {
		score    int
		xp, gems int
	}{
		{score: 0, xp: 500, gems: 50},
		{score: 50, xp: 625, gems: 60},
		{score: 95, xp: 738, gems: 69},
		{score: 100, xp: 750, gems: 70},
	}
	for _, tc := range cases {
		if got := FinalExamXP(tc.score); got != tc.xp {
			t.Errorf("FinalExamXP(%d) = %d, want %d", tc.score, got, tc.xp)
		}
		if got := FinalExamGems(tc.score); got != tc.gems {
			t.Errorf("FinalExamGems(%d) = %d, want %d", tc.score, got, tc.gems)
		}
	}
}

func TestLevelFunctions(t *testing.T) {
	if LevelFromChapterXP(0) != 1 || LevelFromChapterXP(99) != 1 || LevelFromChapterXP(100) != 2 || LevelFromChapterXP(250) != 3 {
		t.Fatalf("unexpected chapter-track levels")
	}
	if LevelFromCourseXP(0) != 1 || LevelFromCourseXP(999) != 1 || LevelFromCourseXP(1000) != 2 || LevelFromCourseXP(-10) != 1 {
		t.Fatalf("unexpected course-track levels")
	}
}

func TestChapterQuizLevelUpSignal(t *testing.T) {
	// 0 -> 160 crosses the 100 boundary once.
	r := ChapterQuiz(0, 80)
	if !r.LevelUp || r.NewLevel != 2 {
		t.Fatalf("expected level up to 2, got %+v", r)
	}
	if r.Gems != 16+25 {
		t.Fatalf("expected level-up bonus gems, got %d", r.Gems)
	}

	// 160 -> 180 stays on level 2 even though XP grows.
	r = ChapterQuiz(160, 10)
	if r.LevelUp {
		t.Fatalf("expected no level up, got %+v", r)
	}
	if r.Gems != 2 {
		t.Fatalf("expected no bonus gems, got %d", r.Gems)
	}

	// 50 -> 250 crosses two boundaries, still a single signal.
	r = ChapterQuiz(50, 100)
	if !r.LevelUp || r.NewLevel != 3 || r.Gems != 20+25 {
		t.Fatalf("expected single level-up signal to 3, got %+v", r)
	}
}

func TestFinalExamLevelUpSignal(t *testing.T) {
	r := FinalExam(400, 95)
	if !r.LevelUp || r.NewLevel != 2 || r.XP != 738 || r.Gems != 69+50 {
		t.Fatalf("unexpected exam reward %+v", r)
	}

	r = FinalExam(1000, 0)
	if r.LevelUp || r.NewLevel != 2 || r.Gems != 50 {
		t.Fatalf("unexpected exam reward %+v", r)
	}
}
