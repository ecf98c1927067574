// Package patterns finds local extrema in price series and classifies the
// eight chart-pattern shapes used by the composite signal generator.
package patterns

// FindExtrema scans the series for local peaks and troughs. For each index
// with a full window on both sides it computes the window's price range and
// a sensitivity-scaled threshold; prices within 5% of that threshold from
// the window max (min) are marked as peaks (troughs). Windows with zero
// range carry no extremum. Adjacent indices of the same extremum type are
// intentionally not merged: overlapping detections are treated as
// reinforcing evidence downstream.
func FindExtrema(prices []float64, window int, sensitivity float64) (peaks, troughs []int) {
	n := len(prices)
	if window < 1 || n < 2*window+1 {
		return nil, nil
	}

	for i := window; i < n-window; i++ {
		winMax, winMin := prices[i-window], prices[i-window]
		for j := i - window + 1; j <= i+window; j++ {
			if prices[j] > winMax {
				winMax = prices[j]
			}
			if prices[j] < winMin {
				winMin = prices[j]
			}
		}

		priceRange := winMax - winMin
		if priceRange <= 0 {
			continue
		}
		threshold := priceRange * (1 - sensitivity/2)

		if prices[i] >= winMax-threshold*0.05 {
			peaks = append(peaks, i)
		}
		if prices[i] <= winMin+threshold*0.05 {
			troughs = append(troughs, i)
		}
	}
	return peaks, troughs
}
