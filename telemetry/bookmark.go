package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkSettled     BookmarkType = "settled"
	BookmarkEscape      BookmarkType = "escape"
	BookmarkEnergySpike BookmarkType = "energy_spike"
	BookmarkDegraded    BookmarkType = "degraded"
)

// Thresholds used by the detector.
const (
	settledFraction   = 0.95
	spikeFactor       = 3.0
	spikeMinimumSpeed = 50.0 // px/s mean speed below which spikes are ignored
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int32        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in the layout.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	settled  bool // last window was settled
	degraded bool // static layout already reported
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	for _, check := range []func(WindowStats) *Bookmark{
		bd.checkDegraded,
		bd.checkEscape,
		bd.checkSettled,
		bd.checkEnergySpike,
	} {
		if b := check(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkDegraded(stats WindowStats) *Bookmark {
	if stats.Mode != "static" || bd.degraded {
		return nil
	}
	bd.degraded = true
	return &Bookmark{
		Type:        BookmarkDegraded,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Physics unavailable, %d badges in static layout", stats.Badges),
	}
}

func (bd *BookmarkDetector) checkEscape(stats WindowStats) *Bookmark {
	if stats.Escapes == 0 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkEscape,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%d badges left the container, %d nudges to recover", stats.Escapes, stats.Nudges),
	}
}

// checkSettled fires when the layout comes to rest after moving.
func (bd *BookmarkDetector) checkSettled(stats WindowStats) *Bookmark {
	settled := stats.Badges > 0 && stats.SettledFrac >= settledFraction && stats.OutOfBounds == 0
	was := bd.settled
	bd.settled = settled
	if !settled || was {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkSettled,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%d of %d badges at rest after %.1fs", stats.Settled, stats.Badges, stats.SimTimeSec),
	}
}

func (bd *BookmarkDetector) checkEnergySpike(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 2 || stats.SpeedMean < spikeMinimumSpeed {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.KineticEnergy
	}
	avg := total / float64(len(history))
	if avg <= 0 || stats.KineticEnergy <= avg*spikeFactor {
		return nil
	}

	return &Bookmark{
		Type:        BookmarkEnergySpike,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Kinetic energy %.0f is %.1fx average (%.0f)", stats.KineticEnergy, stats.KineticEnergy/avg, avg),
	}
}
