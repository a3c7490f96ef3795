// Package rewards maps scores to experience, gems and levels.
// Every function is pure so reward rules can be tested without a store.
package rewards

const (
	// ChapterLevelThreshold is the XP per level on the chapter-quiz track.
	ChapterLevelThreshold = 100
	// CourseLevelThreshold is the XP per level on the exam track; it drives the persisted user level.
	CourseLevelThreshold = 1000

	chapterLevelUpGems = 25
	examLevelUpGems    = 50
	examBaseXP         = 500
	examScoreXP        = 250
	examBaseGems       = 50
)

// Reward is the outcome of one rewarded submission.
type Reward struct {
	XP       int
	Gems     int
	LevelUp  bool
	NewLevel int
}

// ClampScore bounds a score to [0,100].
func ClampScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

// ChapterQuizXP is 2 XP per score point.
func ChapterQuizXP(score int) int {
	return 2 * ClampScore(score)
}

// ScoreGems is one gem per five score points.
func ScoreGems(score int) int {
	return ClampScore(score) / 5
}

// FinalExamXP is a 500 XP base plus up to 250 XP scaled by score.
func FinalExamXP(score int) int {
	// round half up in integers: round(score/100*250)
	return examBaseXP + (ClampScore(score)*examScoreXP+50)/100
}

// FinalExamGems is a 50 gem base plus one gem per five score points.
func FinalExamGems(score int) int {
	return examBaseGems + ScoreGems(score)
}

// LevelFromChapterXP is floor(xp/100)+1.
func LevelFromChapterXP(xp int) int {
	return levelFor(xp, ChapterLevelThreshold)
}

// LevelFromCourseXP is floor(xp/1000)+1.
func LevelFromCourseXP(xp int) int {
	return levelFor(xp, CourseLevelThreshold)
}

func levelFor(xp, threshold int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/threshold + 1
}

// DetectLevelUp compares the level before and after earned XP. It reports a single
// boolean even when several thresholds are crossed at once.
func DetectLevelUp(level func(int) int, totalXP, earned int) (bool, int) {
	after := level(totalXP)
	before := level(totalXP - earned)
	return after > before, after
}

// ChapterQuiz computes the reward for a chapter or lesson quiz given the XP held before it.
func ChapterQuiz(xpBefore, score int) Reward {
	xp := ChapterQuizXP(score)
	levelUp, level := DetectLevelUp(LevelFromChapterXP, xpBefore+xp, xp)
	gems := ScoreGems(score)
	if levelUp {
		gems += chapterLevelUpGems
	}
	return Reward{XP: xp, Gems: gems, LevelUp: levelUp, NewLevel: level}
}

// FinalExam computes the reward for a first passing end-of-course exam.
func FinalExam(xpBefore, score int) Reward {
	xp := FinalExamXP(score)
	levelUp, level := DetectLevelUp(LevelFromCourseXP, xpBefore+xp, xp)
	gems := FinalExamGems(score)
	if levelUp {
		gems += examLevelUpGems
	}
	return Reward{XP: xp, Gems: gems, LevelUp: levelUp, NewLevel: level}
}
