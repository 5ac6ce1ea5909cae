package streamer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpreadFrequencyReportEmpty(t *testing.T) {
	assert.Equal(t, "* spread: none -- frequency: none\n", SpreadFrequencyReport(nil))
	assert.Equal(t, "* spread: none -- frequency: none\n", SpreadFrequencyReport([]float64{}))
}

func TestSpreadFrequencyReportGroupsAndSorts(t *testing.T) {
	got := SpreadFrequencyReport([]float64{0.01, 0.02, 0.02})

	want := "* spread: 0.0200 -- frequency: 66.67% -- count: 2 out of 3\n" +
		"* spread: 0.0100 -- frequency: 33.33% -- count: 1 out of 3\n"
	assert.Equal(t, want, got)
}

func TestSpreadFrequencyReportSingleValue(t *testing.T) {
	got := SpreadFrequencyReport([]float64{0.0314})
	assert.Equal(t, "* spread: 0.0314 -- frequency: 100.00% -- count: 1 out of 1\n", got)
}

func TestSpreadFrequencyReportDoesNotMutateInput(t *testing.T) {
	spreads := []float64{0.01, 0.03, 0.02}
	_ = SpreadFrequencyReport(spreads)
	assert.Equal(t, []float64{0.01, 0.03, 0.02}, spreads)
}
