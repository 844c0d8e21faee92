package player

import "time"

// Output format handed to the audio device.
const (
	SampleRate     = 44100
	Channels       = 2
	BytesPerSample = 2
	PeriodSamples  = 1024

	// PeriodBytes is the largest slice a single pull may return.
	PeriodBytes = PeriodSamples * Channels * BytesPerSample

	// ResampleBufferBytes holds one resampled frame: a second of 48k stereo s16, plus half.
	ResampleBufferBytes = 48000 * 16 * 2 / 8 * 3 / 2

	frameBytes = Channels * BytesPerSample
)

// BytesInDuration returns the number of output bytes covering d, rounded down to whole
// sample frames.
func BytesInDuration(d time.Duration) int {
	samples := int64(SampleRate) * int64(d) / int64(time.Second)
	return int(samples) * frameBytes
}

// Duration returns the playback time of n output bytes.
func Duration(n int) time.Duration {
	return time.Duration(n/frameBytes) * time.Second / SampleRate
}

// PeriodDuration is how often the device asks for a period.
func PeriodDuration() time.Duration {
	return Duration(PeriodBytes)
}
