package vectorindex

import (
	"fmt"
	"math"
)

// Metric is the similarity function of an index. It is fixed for the index's
// lifetime and recorded in every snapshot.
type Metric string

const (
	// MetricCosine scores by cosine similarity in [-1, 1].
	MetricCosine Metric = "cosine"
	// MetricL2 scores by 1/(1+d) where d is the Euclidean distance, so closer is higher.
	MetricL2 Metric = "l2"
)

func ParseMetric(s string) (Metric, error) {
	m := Metric(s)
	if err := m.Validate(); err != nil {
		return "", err
	}
	return m, nil
}

func (m Metric) Validate() error {
	switch m {
	case MetricCosine, MetricL2:
		return nil
	}
	return fmt.Errorf("unknown similarity metric %q", string(m))
}

// score compares a query against a stored vector. norm is the stored vector's
// precomputed magnitude, used by cosine only.
func (m Metric) score(query []float32, queryNorm float64, vec []float32, norm float64) float64 {
	switch m {
	case MetricL2:
		var sum float64
		for i := range query {
			d := float64(query[i]) - float64(vec[i])
			sum += d * d
		}
		return 1 / (1 + math.Sqrt(sum))
	default:
		if queryNorm == 0 || norm == 0 {
			return 0
		}
		var dot float64
		for i := range query {
			dot += float64(query[i]) * float64(vec[i])
		}
		return dot / (queryNorm * norm)
	}
}

func magnitude(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
