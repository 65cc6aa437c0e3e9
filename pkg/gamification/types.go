// Copyright 2025 The EduFlow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package gamification tracks learning activity, awarding points,
// levels, badges and daily streaks.
package gamification

// ActivityType identifies a point-earning action.
type ActivityType string

const (
	ActivityQA          ActivityType = "qa"
	ActivitySummarize   ActivityType = "summarize"
	ActivityMCQ         ActivityType = "mcq"
	ActivityCodeExplain ActivityType = "code_explain"
	ActivityCodeFix     ActivityType = "code_fix"
	ActivityFileUpload  ActivityType = "file_upload"
	ActivityDailyLogin  ActivityType = "daily_login"

	// Internal activity types used to record one-time streak bonuses.
	activityStreakWeek  ActivityType = "streak_7"
	activityStreakMonth ActivityType = "streak_30"
)

var activityPoints = map[ActivityType]int{
	ActivityQA:          5,
	ActivitySummarize:   10,
	ActivityMCQ:         15,
	ActivityCodeExplain: 10,
	ActivityCodeFix:     20,
	ActivityFileUpload:  5,
	ActivityDailyLogin:  10,
	activityStreakWeek:  50,
	activityStreakMonth: 200,
}

// Points returns the point value of an activity, or 0 for unknown types.
func Points(activity ActivityType) int {
	return activityPoints[activity]
}

// Level is a named points tier.
type Level struct {
	Level     int    `json:"level"`
	Name      string `json:"name"`
	MinPoints int    `json:"min_points"`
}

// Ordered lowest to highest.
var levels = []Level{
	{Level: 1, Name: "Beginner", MinPoints: 0},
	{Level: 2, Name: "Learner", MinPoints: 101},
	{Level: 3, Name: "Scholar", MinPoints: 501},
	{Level: 4, Name: "Expert", MinPoints: 1001},
	{Level: 5, Name: "Master", MinPoints: 5001},
}

// LevelForPoints returns the highest level whose threshold is met.
func LevelForPoints(points int) Level {
	current := levels[0]
	for _, l := range levels {
		if points >= l.MinPoints {
			current = l
		}
	}
	return current
}

// NextLevelPoints returns the threshold of the next level, or 0 at the top.
func NextLevelPoints(points int) int {
	for _, l := range levels {
		if points < l.MinPoints {
			return l.MinPoints
		}
	}
	return 0
}

// Badge identifies an earned achievement.
type Badge string

const (
	BadgeFirstQuestion Badge = "first_question"
	BadgeCuriousMind   Badge = "curious_mind" // 25 questions asked
	BadgeSummarizer    Badge = "summarizer"   // 10 summaries
	BadgeQuizMaster    Badge = "quiz_master"  // 10 MCQ sets
	BadgeCodeReader    Badge = "code_reader"  // 10 code explanations
	BadgeWeekStreak    Badge = "week_streak"  // 7-day streak
	BadgeMonthStreak   Badge = "month_streak" // 30-day streak
)

// countBadges are awarded when the count of one activity type reaches
// a threshold.
var countBadges = []struct {
	badge    Badge
	activity ActivityType
	count    int
}{
	{BadgeFirstQuestion, ActivityQA, 1},
	{BadgeCuriousMind, ActivityQA, 25},
	{BadgeSummarizer, ActivitySummarize, 10},
	{BadgeQuizMaster, ActivityMCQ, 10},
	{BadgeCodeReader, ActivityCodeExplain, 10},
}

// ActivityResult reports the outcome of recording one activity.
type ActivityResult struct {
	PointsAwarded int     `json:"points_awarded"`
	TotalPoints   int     `json:"total_points"`
	Level         Level   `json:"level"`
	Streak        int     `json:"streak"`
	NewBadges     []Badge `json:"new_badges,omitempty"`
}

// Stats is a user's full gamification state.
type Stats struct {
	TotalPoints     int            `json:"total_points"`
	Level           Level          `json:"level"`
	NextLevelPoints int            `json:"next_level_points"`
	Streak          int            `json:"streak"`
	Badges          []Badge        `json:"badges"`
	ActivityCounts  map[string]int `json:"activity_counts"`
}

// LeaderboardEntry is one row of the points leaderboard.
type LeaderboardEntry struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
	Level  Level  `json:"level"`
}
