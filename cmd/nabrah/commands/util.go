package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Yahya-Abdulselam/Nabrah/internal/metrics"
)

// writeJSON pretty-prints v.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readAudio loads a recording from disk.
func readAudio(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// localMetrics collects into a throwaway registry; one-shot commands do not
// expose metrics.
func localMetrics() *metrics.Metrics {
	return metrics.NewMetrics(prometheus.NewRegistry())
}
