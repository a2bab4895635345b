package infrastructure

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"call-filter/domain"

	"github.com/go-audio/wav"
)

var ErrInvalidWAV = errors.New("invalid WAV file")

// InspectWAV validates a WAV file and reads its header.
func InspectWAV(name string, data []byte) (*domain.Audio, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWAV, name)
	}
	if d.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: %s is not PCM (format %d)", ErrInvalidWAV, name, d.WavAudioFormat)
	}
	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidWAV, name, err)
	}
	bytesPerSec := int64(d.SampleRate) * int64(d.NumChans) * int64(d.BitDepth) / 8
	if bytesPerSec == 0 {
		return nil, fmt.Errorf("%w: %s has an empty format chunk", ErrInvalidWAV, name)
	}
	duration := time.Duration(d.PCMLen() * int64(time.Second) / bytesPerSec)

	return &domain.Audio{
		Name:       name,
		Data:       data,
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
		Duration:   duration,
	}, nil
}
