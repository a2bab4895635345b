package domain

import "time"

// Audio is a WAV recording held in memory together with its header facts.
type Audio struct {
	Name       string
	Data       []byte
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration

	// URI is set once the recording has been archived.
	URI string
}
