package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Yahya-Abdulselam/Nabrah/internal/analysis"
	"github.com/Yahya-Abdulselam/Nabrah/internal/queue"
	"github.com/Yahya-Abdulselam/Nabrah/internal/transcription"
)

func row(key, value string) string {
	return KeyStyle.Render(key) + ValueStyle.Render(value)
}

func styledRow(key string, value string, style lipgloss.Style) string {
	return KeyStyle.Render(key) + style.Render(value)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Analysis renders the acoustic analysis of one recording.
func Analysis(w io.Writer, name string, r *analysis.Result) error {
	fs := r.Features
	q := r.Quality

	features := []string{
		row("Jitter (local)", fmt.Sprintf("%.3f %%", fs.JitterLocal)),
		row("Shimmer (DDA)", fmt.Sprintf("%.3f %%", fs.ShimmerDDA)),
		row("HNR", fmt.Sprintf("%.2f dB", fs.HNR)),
		row("Speech rate", fmt.Sprintf("%.2f syl/s", fs.SpeechRate)),
		row("Pause ratio", fmt.Sprintf("%.2f %%", fs.PauseRatio)),
		row("  brief", fmt.Sprintf("%.2f %%", fs.BriefPauseRatio)),
		row("  respiratory", fmt.Sprintf("%.2f %%", fs.RespiratoryPauseRatio)),
		row("Voice breaks", fmt.Sprintf("%d", fs.VoiceBreaks)),
		row("Mean intensity", fmt.Sprintf("%.2f dB", fs.MeanIntensity)),
	}

	quality := []string{
		row("SNR", fmt.Sprintf("%.2f dB", q.SNRDB)),
		styledRow("Quality", string(q.QualityLevel), levelStyle(string(q.QualityLevel))),
		row("Speech", fmt.Sprintf("%.2f %%", q.SpeechPercentage)),
		row("Reliable", yesNo(q.IsReliable)),
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Nabrah analysis: "+name) + "\n")
	b.WriteString(DimStyle.Render(fmt.Sprintf("%.2fs recording, %s features, %.0f ms",
		r.DurationSeconds, r.Correction, r.ProcessingTimeMS)) + "\n")
	b.WriteString(SectionStyle.Render("Features") + "\n")
	b.WriteString(boxStyle.Render(strings.Join(features, "\n")) + "\n")
	b.WriteString(SectionStyle.Render("Quality") + "\n")
	b.WriteString(boxStyle.Render(strings.Join(quality, "\n")) + "\n")
	b.WriteString(DimStyle.Render(q.SNRRecommendation) + "\n")
	b.WriteString(DimStyle.Render(q.VADMessage) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Transcription renders a transcription result.
func Transcription(w io.Writer, r *transcription.Result) error {
	rows := []string{
		row("Language", fmt.Sprintf("%s (detected %s)", r.Language, r.DetectedLanguage)),
		row("Confidence", fmt.Sprintf("%.1f / 100", r.ConfidenceScore)),
		row("Avg log prob", fmt.Sprintf("%.3f", r.AvgLogprob)),
		row("No-speech prob", fmt.Sprintf("%.3f", r.NoSpeechProb)),
		row("Duration", fmt.Sprintf("%.2fs", r.DurationS)),
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Transcription") + "\n")
	text := r.Transcription
	if text == "" {
		text = DimStyle.Render("(no speech)")
	}
	b.WriteString(boxStyle.Render(text) + "\n")
	b.WriteString(strings.Join(rows, "\n") + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Queue renders the review queue as one line per case.
func Queue(w io.Writer, cases []queue.Case) error {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Review queue (%d)", len(cases))) + "\n")
	if len(cases) == 0 {
		b.WriteString(DimStyle.Render("No patients in queue") + "\n")
	}

	idStyle := lipgloss.NewStyle().Width(10)
	levelCol := lipgloss.NewStyle().Width(8)
	statusCol := lipgloss.NewStyle().Width(11)

	for _, c := range cases {
		id := c.ID
		if len(id) > 8 {
			id = id[:8]
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			idStyle.Render(id),
			levelCol.Inherit(levelStyle(c.TriageLevel)).Render(c.TriageLevel),
			fmt.Sprintf("P%d  ", c.Priority),
			statusCol.Render(string(c.Status)),
			DimStyle.Render(c.CreatedAt),
		) + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Stats renders queue statistics.
func Stats(w io.Writer, s queue.Stats) error {
	rows := []string{
		row("Total", fmt.Sprintf("%d", s.TotalCount)),
		row("Active", fmt.Sprintf("%d", s.ActiveCount)),
	}
	for _, level := range queue.Levels {
		rows = append(rows, styledRow("  "+level, fmt.Sprintf("%d", s.ByLevel[level]), levelStyle(level)))
	}
	for _, status := range queue.Statuses {
		if n, ok := s.ByStatus[string(status)]; ok {
			rows = append(rows, row("  "+string(status), fmt.Sprintf("%d", n)))
		}
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Queue statistics") + "\n")
	b.WriteString(boxStyle.Render(strings.Join(rows, "\n")) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Error renders an error line.
func Error(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), err)
}
