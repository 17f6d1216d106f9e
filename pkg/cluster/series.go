package cluster

// Series is one dimension projected out of the row sequence.
// Samples are sparse: timestamps where the dimension had no value are absent.
// Keys iterate in insertion order, which is the order rows were scanned.
type Series struct {
	Name string

	keys   []int64
	values map[int64]float64
}

// NewSeries creates an empty series for a dimension
func NewSeries(name string) *Series {
	return &Series{
		Name:   name,
		values: make(map[int64]float64),
	}
}

// Set stores a sample. Re-setting an existing timestamp replaces the value
// but keeps the timestamp's original position.
func (s *Series) Set(ts int64, value float64) {
	if _, exists := s.values[ts]; !exists {
		s.keys = append(s.keys, ts)
	}
	s.values[ts] = value
}

// Get returns the value at ts
func (s *Series) Get(ts int64) (float64, bool) {
	v, ok := s.values[ts]
	return v, ok
}

// Keys returns the timestamps in insertion order
func (s *Series) Keys() []int64 {
	return s.keys
}

// Len returns the number of samples
func (s *Series) Len() int {
	return len(s.keys)
}

// BuildSeries reshapes row-oriented samples into one Series per dimension.
// Row i's timestamp is its TimestampField, or i when the field is missing.
// Dimensions with no values produce empty series.
func BuildSeries(rows []Row, dimensions []string) []*Series {
	series := make([]*Series, len(dimensions))
	for d, dimension := range dimensions {
		s := NewSeries(dimension)
		for i, row := range rows {
			if value, ok := row[dimension]; ok {
				s.Set(row.Timestamp(i), value)
			}
		}
		series[d] = s
	}
	return series
}
