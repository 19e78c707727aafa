package queue

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// EmptyExport is written instead of a table when the queue is empty.
const EmptyExport = "No patients in queue"

var exportHeaders = []string{
	"ID", "Created", "Status", "Priority",
	"Triage Level", "Score", "Confidence",
	"SNR (dB)", "Speech %", "Quality Reliable",
	"WER", "WER Severity",
	"Agreement %", "Consensus",
	"Notes",
}

// ExportCSV writes cases, already in queue order, as CSV.
func ExportCSV(w io.Writer, cases []Case) error {
	if len(cases) == 0 {
		_, err := io.WriteString(w, EmptyExport)
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, c := range cases {
		reliable := "No"
		if c.QualityIsReliable {
			reliable = "Yes"
		}

		record := []string{
			c.ID,
			c.CreatedAt,
			string(c.Status),
			strconv.Itoa(c.Priority),
			c.TriageLevel,
			strconv.Itoa(c.TriageScore),
			formatFloat(c.TriageConfidence),
			optionalFloat(c.SNRDB),
			optionalFloat(c.SpeechPercentage),
			reliable,
			optionalFloat(c.WERScore),
			deref(c.WERSeverity),
			optionalFloat(c.AgreementPercentage),
			deref(c.AgreementConsensus),
			c.Notes,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", c.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// optionalFloat leaves missing and zero measurements blank.
func optionalFloat(v *float64) string {
	if v == nil || *v == 0 {
		return ""
	}
	return formatFloat(*v)
}
