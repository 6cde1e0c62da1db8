package schedule

import (
	"math/rand"
	"time"

	"clipflow/models"
)

const dateFormat = "2006-01-02"

// selectVideos draws a uniformly random subset of size min(n, len(pool)).
// The pool is shuffled as a copy so the caller's slice keeps its order and
// every day's draw starts from a fresh permutation. Output order becomes the
// day's position order.
func selectVideos(pool []models.Video, n int, rng *rand.Rand) []models.Video {
	if n <= 0 || len(pool) == 0 {
		return nil
	}

	shuffled := make([]models.Video, len(pool))
	copy(shuffled, pool)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}

// dateRange returns days consecutive calendar dates starting at start.
// The start instant is captured once so a run spanning midnight keeps a
// single notion of "today".
func dateRange(start time.Time, days int) []string {
	dates := make([]string, 0, days)
	for i := 0; i < days; i++ {
		dates = append(dates, start.AddDate(0, 0, i).Format(dateFormat))
	}
	return dates
}
