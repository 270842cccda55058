// Package waveform reduces decoded audio to a fixed number of display peaks.
package waveform

import "math"

// ExtractPeaks splits samples into n windows and returns the peak absolute
// amplitude of each, normalized so the loudest window is exactly 1.0.
//
// The last window absorbs the remainder when len(samples) is not a multiple
// of n. With fewer samples than windows each sample gets its own window and
// the rest stay zero. Silence returns all zeros. n <= 0 returns an empty slice.
func ExtractPeaks(samples []float64, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	peaks := make([]float64, n)
	if len(samples) == 0 {
		return peaks
	}

	if len(samples) < n {
		for i, s := range samples {
			peaks[i] = magnitude(s)
		}
		return normalize(peaks)
	}

	window := len(samples) / n
	for i := 0; i < n; i++ {
		start := i * window
		end := start + window
		if i == n-1 {
			end = len(samples)
		}
		var peak float64
		for _, s := range samples[start:end] {
			if m := magnitude(s); m > peak {
				peak = m
			}
		}
		peaks[i] = peak
	}
	return normalize(peaks)
}

// magnitude treats NaN and infinities as silence
func magnitude(s float64) float64 {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return math.Abs(s)
}

func normalize(peaks []float64) []float64 {
	var max float64
	for _, p := range peaks {
		if p > max {
			max = p
		}
	}
	if max == 0 {
		return peaks
	}
	for i, p := range peaks {
		if p == max {
			peaks[i] = 1
			continue
		}
		peaks[i] = p / max
	}
	return peaks
}

// Downmix averages interleaved frames down to a single channel
func Downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	mono := make([]float64, frames)
	for f := 0; f < frames; f++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += interleaved[f*channels+c]
		}
		mono[f] = sum / float64(channels)
	}
	return mono
}

// Zero returns n silent peaks, used when analysis fails
func Zero(n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	return make([]float64, n)
}
