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

package gamification

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduflow/eduflow/pkg/config"
	"github.com/eduflow/eduflow/pkg/database"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")}
	cfg.SetDefaults()
	db, err := database.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func insertUser(t *testing.T, db *sql.DB, id, name string) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, id+"@example.com", name, "x", time.Now().UTC())
	require.NoError(t, err)
}

func testService(t *testing.T) (*Service, *time.Time) {
	t.Helper()
	db := testDB(t)
	insertUser(t, db, "user-1", "Ada")

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := New(db)
	svc.now = func() time.Time { return now }
	return svc, &now
}

func TestLevelForPoints(t *testing.T) {
	tests := []struct {
		points    int
		wantLevel int
		wantName  string
	}{
		{0, 1, "Beginner"},
		{100, 1, "Beginner"},
		{101, 2, "Learner"},
		{500, 2, "Learner"},
		{501, 3, "Scholar"},
		{1001, 4, "Expert"},
		{5001, 5, "Master"},
		{999999, 5, "Master"},
	}
	for _, tt := range tests {
		l := LevelForPoints(tt.points)
		assert.Equal(t, tt.wantLevel, l.Level, "points=%d", tt.points)
		assert.Equal(t, tt.wantName, l.Name, "points=%d", tt.points)
	}
}

func TestRecordActivityAwardsPoints(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	res, err := svc.RecordActivity(ctx, "user-1", ActivityQA)
	require.NoError(t, err)
	assert.Equal(t, 5, res.PointsAwarded)
	assert.Equal(t, 5, res.TotalPoints)
	assert.Equal(t, 1, res.Level.Level)
	assert.Contains(t, res.NewBadges, BadgeFirstQuestion)

	// The badge is only new once.
	res, err = svc.RecordActivity(ctx, "user-1", ActivityQA)
	require.NoError(t, err)
	assert.NotContains(t, res.NewBadges, BadgeFirstQuestion)
	assert.Equal(t, 10, res.TotalPoints)
}

func TestRecordActivityRejectsUnknownType(t *testing.T) {
	svc, _ := testService(t)

	_, err := svc.RecordActivity(context.Background(), "user-1", "teleport")
	assert.Error(t, err)
}

func TestDailyLoginCountsOncePerDay(t *testing.T) {
	svc, now := testService(t)
	ctx := context.Background()

	res, err := svc.RecordActivity(ctx, "user-1", ActivityDailyLogin)
	require.NoError(t, err)
	assert.Equal(t, 10, res.PointsAwarded)

	res, err = svc.RecordActivity(ctx, "user-1", ActivityDailyLogin)
	require.NoError(t, err)
	assert.Equal(t, 0, res.PointsAwarded)
	assert.Equal(t, 10, res.TotalPoints)

	*now = now.AddDate(0, 0, 1)
	res, err = svc.RecordActivity(ctx, "user-1", ActivityDailyLogin)
	require.NoError(t, err)
	assert.Equal(t, 10, res.PointsAwarded)
	assert.Equal(t, 20, res.TotalPoints)
}

func TestWeekStreakAwardsBonus(t *testing.T) {
	svc, now := testService(t)
	ctx := context.Background()

	var res *ActivityResult
	var err error
	for day := 0; day < 7; day++ {
		res, err = svc.RecordActivity(ctx, "user-1", ActivityQA)
		require.NoError(t, err)
		*now = now.AddDate(0, 0, 1)
	}

	assert.Equal(t, 7, res.Streak)
	assert.Contains(t, res.NewBadges, BadgeWeekStreak)
	// 7 questions at 5 points plus the 50-point streak bonus.
	assert.Equal(t, 85, res.TotalPoints)
	assert.Equal(t, 55, res.PointsAwarded)
}

func TestStreakResetsAfterGap(t *testing.T) {
	svc, now := testService(t)
	ctx := context.Background()

	_, err := svc.RecordActivity(ctx, "user-1", ActivityQA)
	require.NoError(t, err)

	*now = now.AddDate(0, 0, 3)
	res, err := svc.RecordActivity(ctx, "user-1", ActivityQA)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak)
}

func TestStatsStreakSurvivesUntilNextDay(t *testing.T) {
	svc, now := testService(t)
	ctx := context.Background()

	_, err := svc.RecordActivity(ctx, "user-1", ActivityQA)
	require.NoError(t, err)

	// Next morning, before any activity, yesterday's streak still counts.
	*now = now.AddDate(0, 0, 1)
	stats, err := svc.Stats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Streak)
}

func TestStats(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.RecordActivity(ctx, "user-1", ActivityQA)
		require.NoError(t, err)
	}
	_, err := svc.RecordActivity(ctx, "user-1", ActivitySummarize)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 25, stats.TotalPoints)
	assert.Equal(t, 1, stats.Level.Level)
	assert.Equal(t, 101, stats.NextLevelPoints)
	assert.Equal(t, 3, stats.ActivityCounts["qa"])
	assert.Equal(t, 1, stats.ActivityCounts["summarize"])
	assert.Contains(t, stats.Badges, BadgeFirstQuestion)
}

func TestLeaderboardOrdering(t *testing.T) {
	db := testDB(t)
	insertUser(t, db, "user-1", "Ada")
	insertUser(t, db, "user-2", "Grace")
	insertUser(t, db, "user-3", "Edsger")

	svc := New(db)
	ctx := context.Background()

	_, err := svc.RecordActivity(ctx, "user-1", ActivityQA)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = svc.RecordActivity(ctx, "user-2", ActivityMCQ)
		require.NoError(t, err)
	}

	entries, err := svc.Leaderboard(ctx, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "Grace", entries[0].Name)
	assert.Equal(t, 45, entries[0].Points)
	assert.Equal(t, "Ada", entries[1].Name)
	assert.Equal(t, "Edsger", entries[2].Name)
	assert.Equal(t, 0, entries[2].Points)
}

func TestLeaderboardLimit(t *testing.T) {
	db := testDB(t)
	insertUser(t, db, "user-1", "Ada")
	insertUser(t, db, "user-2", "Grace")

	svc := New(db)
	entries, err := svc.Leaderboard(context.Background(), time.Time{}, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
