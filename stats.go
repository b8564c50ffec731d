package pixpipe

import "fmt"

// Stats holds sampled frame statistics. Channel values are folded into one
// 64-bucket histogram of 4-value-wide bins.
type Stats struct {
	NumSamples int
	RGBAverage [3]uint8
	Histogram  [64]uint32
}

// defaultStatsSamples is plenty for exposure estimation on common frames.
const defaultStatsSamples = 1000

// Stats samples random pixels from the input frame and returns channel
// averages and a luminance histogram. Pixels with all channels above 0xf0
// count in the histogram but are dropped from the averages, so a clipped
// highlight does not drag exposure estimation; the divisor stays the full
// sample count, biasing the averages low when highlights clip. Zero
// numSamples picks a default.
func (img *Image) Stats(numSamples int) (*Stats, error) {
	if img.err != nil {
		return nil, img.err
	}

	if img.buffer == nil {
		return nil, ErrNoInput
	}

	if numSamples <= 0 {
		numSamples = defaultStatsSamples
	}

	srcFmt := img.fmt
	if img.first != nil {
		srcFmt = img.first.base().fmt
	}

	st := &Stats{NumSamples: numSamples}

	var sum [3]uint32
	var rgb [3]byte

	for i := 0; i < numSamples; i++ {
		if err := sampleRandomRGB(img.buffer, srcFmt, rgb[:]); err != nil {
			return nil, fmt.Errorf("frame statistics: %w", err)
		}

		st.Histogram[rgb[0]>>2]++
		st.Histogram[rgb[1]>>2]++
		st.Histogram[rgb[2]>>2]++

		// Over-exposed pixels would skew the averages toward white.
		if rgb[0] > 0xf0 && rgb[1] > 0xf0 && rgb[2] > 0xf0 {
			continue
		}

		sum[0] += uint32(rgb[0])
		sum[1] += uint32(rgb[1])
		sum[2] += uint32(rgb[2])
	}

	st.RGBAverage[0] = uint8(sum[0] / uint32(numSamples))
	st.RGBAverage[1] = uint8(sum[1] / uint32(numSamples))
	st.RGBAverage[2] = uint8(sum[2] / uint32(numSamples))

	return st, nil
}

// YMean returns the median bucket of the luminance histogram scaled back to
// a 0..255 value.
func (s *Stats) YMean() uint8 {
	total := uint32(0)
	for _, n := range s.Histogram {
		total += n
	}

	seen := uint32(0)

	for i, n := range s.Histogram {
		seen += n

		if seen >= total/2 {
			return uint8(i * 256 / len(s.Histogram))
		}
	}

	return 0
}
