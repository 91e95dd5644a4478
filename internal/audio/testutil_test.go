// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"

	"audio/pkg/utils"
)

const (
	testSampleRate = 44100.0
	testFrameSize  = 512

	lowThreshold  = int32(1000000)
	highThreshold = int32(1000000000)
)

var (
	testBuffer  = utils.GenerateSineWave(testFrameSize, testSampleRate, 440)
	quietBuffer = scaleBuffer(utils.GenerateSineWave(testFrameSize, testSampleRate, 440), 0.001)
	loudBuffer  = utils.GenerateSineWave(testFrameSize, testSampleRate, 440)
)

func scaleBuffer(buf []int32, scale float64) []int32 {
	out := make([]int32, len(buf))
	for i, v := range buf {
		out[i] = int32(float64(v) * scale)
	}
	return out
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

func absFloat(v float64) float64 {
	return math.Abs(v)
}
