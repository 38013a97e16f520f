package query

// Type is the classification of caller input text.
type Type string

// Query type constants.
const (
	StreetAddress Type = "street_address"
	JustANumber   Type = "just_a_number"
	StopRequest   Type = "stop_request"
	Intersection  Type = "intersection"
	Unknown       Type = "unknown"
)

// NoID is the identifier returned when the text carries no usable stop id.
const NoID = -1

// IsValid checks if the type is one of the supported values.
func (t Type) IsValid() bool {
	switch t {
	case StreetAddress, JustANumber, StopRequest, Intersection, Unknown:
		return true
	}
	return false
}

// RestrictsLayers reports whether the type narrows the upstream layers filter.
func (t Type) RestrictsLayers() bool {
	return t == StreetAddress || t == Intersection || t == StopRequest
}

// IsStopLookup reports whether results should be prioritized as transit stops.
func (t Type) IsStopLookup() bool {
	return t == StopRequest || t == JustANumber
}

// IsAddressLookup reports whether results should be prioritized as addresses.
func (t Type) IsAddressLookup() bool {
	return t == StreetAddress || t == Intersection
}
