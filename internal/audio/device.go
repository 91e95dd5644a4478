// SPDX-License-Identifier: MIT
package audio

import "time"

// Device represents an audio device as reported by the host audio
// backend.
type Device struct {
	ID                      int
	Name                    string
	MaxInputChannels        int
	MaxOutputChannels       int
	DefaultSampleRate       float64
	DefaultLowInputLatency  time.Duration
	DefaultHighInputLatency time.Duration
}
