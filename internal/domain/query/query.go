package query

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/ragrec/internal/domain"
)

// MaxFieldLength bounds profile and input sizes in bytes.
const MaxFieldLength = 8000

// Query is a single recommendation request: who is asking and what they ask for.
type Query struct {
	profile string
	input   string
}

// New validates and creates a Query. Input is required, profile is optional.
func New(profile, input string) (Query, error) {
	if strings.TrimSpace(input) == "" {
		return Query{}, fmt.Errorf("%w: input is required", domain.ErrInvalidQuery)
	}
	if len(input) > MaxFieldLength {
		return Query{}, fmt.Errorf("%w: input too long (max %d bytes)", domain.ErrInvalidQuery, MaxFieldLength)
	}
	if len(profile) > MaxFieldLength {
		return Query{}, fmt.Errorf("%w: profile too long (max %d bytes)", domain.ErrInvalidQuery, MaxFieldLength)
	}
	return Query{profile: profile, input: input}, nil
}

// Profile returns the user's free-text taste profile.
func (q Query) Profile() string { return q.profile }

// Input returns the user's request text.
func (q Query) Input() string { return q.input }

// RetrievalText is the text embedded to find relevant corpus items:
// the profile followed by the input, so both steer retrieval.
func (q Query) RetrievalText() string {
	p := strings.TrimSpace(q.profile)
	in := strings.TrimSpace(q.input)
	if p == "" {
		return in
	}
	return p + "\n" + in
}
