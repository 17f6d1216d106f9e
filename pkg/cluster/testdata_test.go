package cluster

// threeRows is the A/B/C example: A and B identical, C an order of magnitude larger
func threeRows() []Row {
	return []Row{
		{TimestampField: 0, "A": 1, "B": 1, "C": 10},
		{TimestampField: 1, "A": 2, "B": 2, "C": 20},
		{TimestampField: 2, "A": 3, "B": 3, "C": 30},
	}
}

func seriesOf(name string, samples ...[2]float64) *Series {
	s := NewSeries(name)
	for _, p := range samples {
		s.Set(int64(p[0]), p[1])
	}
	return s
}
