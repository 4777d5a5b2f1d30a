package recommendation

// MaxPerResponse caps the number of recommendations returned for one query.
const MaxPerResponse = 3

// Recommendation is one validated entry of the model's answer.
type Recommendation struct {
	Title  string  `json:"title"`
	Score  float64 `json:"score"` // [0,1]
	Reason string  `json:"reason"`
}

// Truncate keeps the first MaxPerResponse entries in their given order.
func Truncate(recs []Recommendation) []Recommendation {
	if len(recs) > MaxPerResponse {
		return recs[:MaxPerResponse]
	}
	return recs
}
