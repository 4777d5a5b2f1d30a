package recommend

import (
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kailas-cloud/ragrec/internal/domain"
	"github.com/kailas-cloud/ragrec/internal/domain/recommendation"
)

// Reasons reported with an empty outcome.
const (
	ReasonInvalidJSON    = "Invalid JSON"
	ReasonNoMatches      = "No matches"
	ReasonNoValidEntries = "No valid recommendations"
)

// Verdict is the validator's decision on one model answer.
// Exactly one of Recommendations and Reason is set.
type Verdict struct {
	Recommendations []recommendation.Recommendation
	Reason          string
}

// Err describes a rejected answer for logging. Nil when recommendations survived.
func (v Verdict) Err() error {
	if v.Reason == "" {
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrParseFailure, v.Reason)
}

// Validate parses raw model output into at most recommendation.MaxPerResponse
// entries, in model order. Entries missing a non-empty string title, a numeric
// score within [0, 1] or a string reason are dropped. Validate never fails:
// unusable output yields a Verdict with a Reason.
func Validate(raw string) Verdict {
	body := stripCodeFence(raw)
	if !gjson.Valid(body) {
		return Verdict{Reason: ReasonInvalidJSON}
	}
	doc := gjson.Parse(body)
	if !doc.IsObject() {
		return Verdict{Reason: ReasonInvalidJSON}
	}
	list := doc.Get("recommendations")
	if !list.IsArray() {
		return Verdict{Reason: ReasonInvalidJSON}
	}

	entries := list.Array()
	if len(entries) == 0 {
		return Verdict{Reason: ReasonNoMatches}
	}

	recs := make([]recommendation.Recommendation, 0, len(entries))
	for _, e := range entries {
		if r, ok := parseEntry(e); ok {
			recs = append(recs, r)
		}
	}
	if len(recs) == 0 {
		return Verdict{Reason: ReasonNoValidEntries}
	}
	return Verdict{Recommendations: recommendation.Truncate(recs)}
}

func parseEntry(e gjson.Result) (recommendation.Recommendation, bool) {
	if !e.IsObject() {
		return recommendation.Recommendation{}, false
	}
	title, score, reason := e.Get("title"), e.Get("score"), e.Get("reason")
	if title.Type != gjson.String || strings.TrimSpace(title.Str) == "" {
		return recommendation.Recommendation{}, false
	}
	if score.Type != gjson.Number || math.IsNaN(score.Num) || score.Num < 0 || score.Num > 1 {
		return recommendation.Recommendation{}, false
	}
	if reason.Type != gjson.String {
		return recommendation.Recommendation{}, false
	}
	return recommendation.Recommendation{
		Title:  title.Str,
		Score:  score.Num,
		Reason: reason.Str,
	}, true
}

// stripCodeFence unwraps a ```json ... ``` block, which chat models often
// emit even when asked for bare JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	nl := strings.IndexByte(s, '\n')
	if nl < 0 {
		return s
	}
	s = s[nl+1:]
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
