package testutil

// FixedRunID returns the same run ID every time.
//
// Unlike resolver.FixedGenerator, which hands out a sequence, this suits
// tests that synthesize the same manifest repeatedly and compare output.
type FixedRunID string

// Generate returns the fixed ID, or "run-test" when empty.
func (id FixedRunID) Generate() string {
	if id == "" {
		return "run-test"
	}
	return string(id)
}
