// Package wavtest builds small PCM WAV files for tests.
package wavtest

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Tone returns a mono 16-bit PCM WAV of a 440 Hz tone.
func Tone(sampleRate int, seconds float64) []byte {
	n := int(float64(sampleRate) * seconds)
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
	}
	return PCM16(sampleRate, 1, samples)
}

// PCM16 encodes interleaved 16-bit samples as a canonical 44-byte-header WAV.
func PCM16(sampleRate, channels int, samples []int16) []byte {
	dataSize := len(samples) * 2
	buf := &bytes.Buffer{}

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*channels*2))
	binary.Write(buf, binary.LittleEndian, uint16(channels*2))
	binary.Write(buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	binary.Write(buf, binary.LittleEndian, samples)

	return buf.Bytes()
}
