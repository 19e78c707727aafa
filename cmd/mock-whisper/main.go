// Command mock-whisper is a local stand-in for a Whisper transcription
// server. It answers POST /v1/audio/transcriptions with a canned verbose_json
// transcript sized to the uploaded recording.
package main

import (
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Yahya-Abdulselam/Nabrah/internal/audio"
	"github.com/Yahya-Abdulselam/Nabrah/internal/transcription"
)

const transcriptionsPath = "/v1/audio/transcriptions"

var phrases = map[string]string{
	"en": "I have had a sore throat and a cough for three days",
	"ar": "أعاني من التهاب في الحلق وسعال منذ ثلاثة أيام",
}

var languageNames = map[string]string{
	"en": "english",
	"ar": "arabic",
}

type verboseResponse struct {
	Text     string                  `json:"text"`
	Language string                  `json:"language"`
	Duration float64                 `json:"duration"`
	Segments []transcription.Segment `json:"segments"`
}

type mockServer struct {
	logger *slog.Logger
	delay  time.Duration
}

func (s *mockServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(transcriptionsPath, s.handleTranscribe)
	return mux
}

func (s *mockServer) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse multipart form
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	sig, err := audio.Decode(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	language := r.FormValue("language")
	if _, ok := phrases[language]; !ok {
		language = "en"
	}

	s.logger.Info("Transcription request received",
		slog.String("filename", header.Filename),
		slog.Int("audio_bytes", len(data)),
		slog.Float64("duration_s", sig.Duration()),
		slog.String("model", r.FormValue("model")),
		slog.String("language", language),
		slog.String("response_format", r.FormValue("response_format")),
	)

	// Simulate processing time
	time.Sleep(s.delay)

	resp := transcribe(language, sig.Duration())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// transcribe splits the canned phrase over two segments spanning duration.
func transcribe(language string, duration float64) verboseResponse {
	text := phrases[language]
	half := duration / 2

	runes := []rune(text)
	mid := len(runes) / 2
	for mid < len(runes) && runes[mid] != ' ' {
		mid++
	}

	return verboseResponse{
		Text:     text,
		Language: languageNames[language],
		Duration: duration,
		Segments: []transcription.Segment{
			{Start: 0, End: half, Text: string(runes[:mid]), AvgLogprob: -0.25, NoSpeechProb: 0.02},
			{Start: half, End: duration, Text: string(runes[mid:]), AvgLogprob: -0.35, NoSpeechProb: 0.04},
		},
	}
}

func main() {
	addr := flag.String("addr", ":9000", "listen address")
	delay := flag.Duration("delay", 200*time.Millisecond, "simulated processing time")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	s := &mockServer{logger: logger, delay: *delay}

	logger.Info("Mock transcription server starting",
		slog.String("address", *addr),
		slog.String("endpoint", transcriptionsPath),
	)

	if err := http.ListenAndServe(*addr, s.routes()); err != nil {
		logger.Error("Server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
