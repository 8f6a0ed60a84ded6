package report

import (
	"fmt"
	"math"
)

// Reducer folds a cluster's metric values into one score. Reducers receive
// only finite values and at least one of them.
type Reducer func(values []float64) float64

// Mean is the default reducer.
func Mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Min returns the smallest value.
func Min(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		m = math.Min(m, v)
	}
	return m
}

// Max returns the largest value.
func Max(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		m = math.Max(m, v)
	}
	return m
}

// ReducerByName resolves a reducer from configuration.
func ReducerByName(name string) (Reducer, error) {
	switch name {
	case "", "mean":
		return Mean, nil
	case "min":
		return Min, nil
	case "max":
		return Max, nil
	}
	return nil, fmt.Errorf("unknown reducer %q (valid: mean, min, max)", name)
}
