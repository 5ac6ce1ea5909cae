package streamer

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/seoulquant/arbstreamer/internal/domain"
)

// SpreadFrequencyReport renders the recorded tradable spreads as a
// frequency table, widest spread first. Used by the operator to pick the
// spread and royal thresholds.
func SpreadFrequencyReport(spreads []float64) string {
	if len(spreads) == 0 {
		return "* spread: none -- frequency: none\n"
	}

	sorted := append([]float64(nil), spreads...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	var b strings.Builder
	total := len(sorted)
	for i := 0; i < total; {
		j := i
		for j < total && sorted[j] == sorted[i] {
			j++
		}
		count := j - i
		fmt.Fprintf(&b, "* spread: %.4f -- frequency: %.2f%% -- count: %d out of %d\n",
			sorted[i], float64(count)/float64(total)*100, count, total)
		i = j
	}
	return b.String()
}

func (s *Streamer) logSpreadRecorder() {
	for _, dir := range domain.Directions {
		s.logger.Info("spread recorder",
			slog.String("direction", string(dir)),
			slog.String("table", SpreadFrequencyReport(s.spreadRecorder[dir])),
		)
	}
}
