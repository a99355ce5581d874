package download

import (
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
)

// LogProgress returns a ProgressFunc that logs transfer progress for name at
// most once per interval, plus once when the advertised total is reached.
func LogProgress(logger *slog.Logger, name string, interval time.Duration) ProgressFunc {
	var last time.Time
	return func(done, total int64) {
		finished := total > 0 && done >= total
		if !finished && time.Since(last) < interval {
			return
		}
		last = time.Now()

		if total > 0 {
			logger.Info("download progress",
				slog.String("file", name),
				slog.String("done", humanize.IBytes(uint64(done))),
				slog.String("total", humanize.IBytes(uint64(total))),
				slog.String("percent", humanize.FormatFloat("#.#", float64(done)/float64(total)*100)),
			)
			return
		}
		logger.Info("download progress",
			slog.String("file", name),
			slog.String("done", humanize.IBytes(uint64(done))),
		)
	}
}
