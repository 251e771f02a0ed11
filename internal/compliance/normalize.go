package compliance

import "golang.org/x/text/unicode/norm"

// Normalize applies NFC normalization to a string crossing the engine
// boundary. Vaccine labels, submitter identities, and metadata are all
// normalized before validation and storage so that visually identical
// labels ("µ" composed vs. decomposed) key the same registry entry.
func Normalize(s string) string {
	return norm.NFC.String(s)
}
