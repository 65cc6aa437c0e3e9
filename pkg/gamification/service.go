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
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Service records activity and answers stats queries.
type Service struct {
	db *sql.DB

	// now is replaceable for streak tests.
	now func() time.Time
}

// New creates a Service over an opened database.
func New(db *sql.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// RecordActivity awards points for one activity and returns the user's
// updated state. A daily login only counts once per UTC day.
func (s *Service) RecordActivity(ctx context.Context, userID string, activity ActivityType) (*ActivityResult, error) {
	points := Points(activity)
	if points == 0 {
		return nil, fmt.Errorf("unknown activity type: %s", activity)
	}

	now := s.now().UTC()

	awarded := points
	if activity == ActivityDailyLogin {
		already, err := s.hasActivityOn(ctx, userID, activity, now)
		if err != nil {
			return nil, err
		}
		if already {
			awarded = 0
		}
	}

	if awarded > 0 {
		if err := s.insertActivity(ctx, userID, activity, awarded, now); err != nil {
			return nil, err
		}
	}

	streak, err := s.streak(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	newBadges, err := s.awardBadges(ctx, userID, activity, streak, now)
	if err != nil {
		return nil, err
	}
	for _, b := range newBadges {
		// Streak badges carry a one-time point bonus.
		switch b {
		case BadgeWeekStreak:
			awarded += Points(activityStreakWeek)
			if err := s.insertActivity(ctx, userID, activityStreakWeek, Points(activityStreakWeek), now); err != nil {
				return nil, err
			}
		case BadgeMonthStreak:
			awarded += Points(activityStreakMonth)
			if err := s.insertActivity(ctx, userID, activityStreakMonth, Points(activityStreakMonth), now); err != nil {
				return nil, err
			}
		}
	}

	total, err := s.totalPoints(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ActivityResult{
		PointsAwarded: awarded,
		TotalPoints:   total,
		Level:         LevelForPoints(total),
		Streak:        streak,
		NewBadges:     newBadges,
	}, nil
}

// Stats returns a user's full gamification state.
func (s *Service) Stats(ctx context.Context, userID string) (*Stats, error) {
	total, err := s.totalPoints(ctx, userID)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, COUNT(*) FROM activities WHERE user_id = ? GROUP BY type`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var count int
		if err := rows.Scan(&typ, &count); err != nil {
			return nil, fmt.Errorf("failed to scan activity count: %w", err)
		}
		counts[typ] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read activity counts: %w", err)
	}

	streak, err := s.streak(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, err
	}

	badges, err := s.badges(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalPoints:     total,
		Level:           LevelForPoints(total),
		NextLevelPoints: NextLevelPoints(total),
		Streak:          streak,
		Badges:          badges,
		ActivityCounts:  counts,
	}, nil
}

// Leaderboard returns the top users by points earned since the given
// time. A zero since counts all activity ever recorded.
func (s *Service) Leaderboard(ctx context.Context, since time.Time, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.name, COALESCE(SUM(a.points), 0) AS total
		FROM users u
		LEFT JOIN activities a ON a.user_id = u.id AND a.created_at >= ?
		GROUP BY u.id, u.name
		ORDER BY total DESC, u.name ASC
		LIMIT ?`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Name, &e.Points); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		e.Level = LevelForPoints(e.Points)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	return entries, nil
}

func (s *Service) insertActivity(ctx context.Context, userID string, activity ActivityType, points int, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activities (user_id, type, points, created_at) VALUES (?, ?, ?, ?)`,
		userID, string(activity), points, now)
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

func (s *Service) hasActivityOn(ctx context.Context, userID string, activity ActivityType, day time.Time) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activities WHERE user_id = ? AND type = ? AND date(created_at) = ?`,
		userID, string(activity), day.Format(dateLayout)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check daily activity: %w", err)
	}
	return count > 0, nil
}

func (s *Service) totalPoints(ctx context.Context, userID string) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(points), 0) FROM activities WHERE user_id = ?`, userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum points: %w", err)
	}
	return total, nil
}

// streak counts consecutive UTC days with at least one activity, ending
// today or yesterday. A gap of more than one day resets it to zero.
func (s *Service) streak(ctx context.Context, userID string, now time.Time) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT date(created_at) FROM activities WHERE user_id = ? ORDER BY date(created_at) DESC`,
		userID)
	if err != nil {
		return 0, fmt.Errorf("failed to query activity dates: %w", err)
	}
	defer rows.Close()

	expected := now
	streak := 0
	first := true
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return 0, fmt.Errorf("failed to scan activity date: %w", err)
		}

		if first && day == expected.AddDate(0, 0, -1).Format(dateLayout) {
			// No activity yet today; the streak still stands.
			expected = expected.AddDate(0, 0, -1)
		}
		first = false

		if day != expected.Format(dateLayout) {
			break
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to read activity dates: %w", err)
	}
	return streak, nil
}

// awardBadges grants any newly earned badges and returns them.
func (s *Service) awardBadges(ctx context.Context, userID string, activity ActivityType, streak int, now time.Time) ([]Badge, error) {
	var candidates []Badge

	for _, cb := range countBadges {
		if cb.activity != activity {
			continue
		}
		var count int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM activities WHERE user_id = ? AND type = ?`,
			userID, string(activity)).Scan(&count)
		if err != nil {
			return nil, fmt.Errorf("failed to count activities: %w", err)
		}
		if count >= cb.count {
			candidates = append(candidates, cb.badge)
		}
	}

	if streak >= 7 {
		candidates = append(candidates, BadgeWeekStreak)
	}
	if streak >= 30 {
		candidates = append(candidates, BadgeMonthStreak)
	}

	var awarded []Badge
	for _, badge := range candidates {
		res, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO badges (user_id, badge, awarded_at) VALUES (?, ?, ?)`,
			userID, string(badge), now)
		if err != nil {
			return nil, fmt.Errorf("failed to award badge: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			awarded = append(awarded, badge)
		}
	}
	return awarded, nil
}

func (s *Service) badges(ctx context.Context, userID string) ([]Badge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT badge FROM badges WHERE user_id = ? ORDER BY awarded_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query badges: %w", err)
	}
	defer rows.Close()

	badges := []Badge{}
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, Badge(b))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read badges: %w", err)
	}
	return badges, nil
}
