package utils

// FloatPtr returns a pointer to f, for optional numeric descriptor fields.
func FloatPtr(f float64) *float64 {
	return &f
}

// FloatValue dereferences f, treating nil as zero.
func FloatValue(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
