package technical

// SMA calculates Simple Moving Average for the given period.
// Values before index period-1 are left at zero (undefined).
func SMA(data []float64, period int) []float64 {
	n := len(data)
	if n < period || period <= 0 {
		return nil
	}

	result := make([]float64, n)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	result[period-1] = sum / float64(period)

	for i := period; i < n; i++ {
		sum += data[i] - data[i-period]
		result[i] = sum / float64(period)
	}

	return result
}

// EMA calculates Exponential Moving Average for the given period.
// The seed is the SMA of the first `period` values.
func EMA(data []float64, period int) []float64 {
	return emaCalc(data, period)
}

func emaCalc(data []float64, period int) []float64 {
	n := len(data)
	if n == 0 || period <= 0 {
		return make([]float64, n)
	}

	ema := make([]float64, n)
	k := 2.0 / float64(period+1)

	// Seed with SMA of first `period` values.
	if n < period {
		return ema
	}
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	ema[period-1] = sum / float64(period)

	for i := period; i < n; i++ {
		ema[i] = data[i]*k + ema[i-1]*(1-k)
	}

	return ema
}
