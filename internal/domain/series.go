package domain

// Sample is one recorded point of a subscribed message. A nil Time or a
// missing/null entry in Data marks the value as absent.
type Sample struct {
	Time *float64      `json:"time"`
	Data map[string]any `json:"data"`
}

// Field returns the named field value and whether it is present.
func (s Sample) Field(name string) (any, bool) {
	if s.Data == nil {
		return nil, false
	}
	v, ok := s.Data[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Series is the recorded history of one field of one subscribed message.
type Series struct {
	Component string   `json:"component"`
	Message   string   `json:"message"`
	Field     string   `json:"field"`
	Samples   []Sample `json:"samples"`
}

// Len reports the number of samples, counting absent ones.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Samples)
}
