package fetcher

// Result represents the outcome of a successful fetch.
// It is sent by value through the results channel from worker goroutines
// to the single writer, which discards it once the row is on disk.
type Result struct {
	// Symbol is the symbol echoed back by the service. It may differ in case
	// or form from the requested ticker.
	Symbol string

	// Closes is the ordered close-price series. A nil entry means the
	// service reported null for that period.
	Closes []*float64
}
