package acoustics

import (
	"github.com/Yahya-Abdulselam/Nabrah/internal/audio"
)

// Silences segments the recording into silent and sounding intervals.
// A frame is silent when its intensity is more than -params.Threshold dB
// below the loudest frame. Silent runs shorter than MinSilent are relabelled
// sounding, then sounding runs shorter than MinSounding are relabelled silent.
func (a *Analyzer) Silences(sig *audio.Signal, params SilenceParams) ([]Interval, error) {
	if params.SilentLabel == "" {
		params.SilentLabel = "silent"
	}
	if params.SoundingLabel == "" {
		params.SoundingLabel = "sounding"
	}

	contour, err := intensity(sig, params.MinPitch, params.TimeStep)
	if err != nil {
		return nil, err
	}
	if contour.Frames() == 0 {
		return nil, ErrTooShort
	}

	duration := sig.Duration()
	loudest := contour.Max()
	if !isFinite(loudest) {
		return []Interval{{Start: 0, End: duration, Label: params.SilentLabel}}, nil
	}
	threshold := loudest + params.Threshold

	silent := make([]bool, contour.Frames())
	for i, v := range contour.Values {
		silent[i] = !isFinite(v) || v < threshold
	}

	var runs []Interval
	for i := 0; i < len(silent); {
		j := i
		for j+1 < len(silent) && silent[j+1] == silent[i] {
			j++
		}

		start := 0.0
		if i > 0 {
			start = contour.TimeOf(i) - contour.Step/2
		}
		end := duration
		if j < len(silent)-1 {
			end = contour.TimeOf(j) + contour.Step/2
		}

		label := params.SoundingLabel
		if silent[i] {
			label = params.SilentLabel
		}
		runs = append(runs, Interval{Start: start, End: end, Label: label})
		i = j + 1
	}

	runs = relabelShort(runs, params.SilentLabel, params.SoundingLabel, params.MinSilent)
	runs = relabelShort(runs, params.SoundingLabel, params.SilentLabel, params.MinSounding)
	return runs, nil
}

// relabelShort gives every `from` interval shorter than shortest the `to` label
// and merges neighbours that end up with the same label.
func relabelShort(runs []Interval, from, to string, shortest float64) []Interval {
	out := make([]Interval, 0, len(runs))
	for _, r := range runs {
		if r.Label == from && r.Duration() < shortest {
			r.Label = to
		}
		if len(out) > 0 && out[len(out)-1].Label == r.Label {
			out[len(out)-1].End = r.End
			continue
		}
		out = append(out, r)
	}
	return out
}
