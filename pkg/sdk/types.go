package ragrec

// Item is a corpus entry. ID and Text are required; Title may be empty.
type Item struct {
	ID    string
	Title string
	Text  string
	Tags  map[string]string
}

// Recommendation is one validated suggestion from the model.
type Recommendation struct {
	Title  string
	Score  float64
	Reason string
}

// Outcome statuses.
const (
	StatusSuccess = "success"
	StatusEmpty   = "empty"
	StatusFailed  = "failed"
)

// Outcome is the result of one Recommend call. Exactly one of the three
// shapes is populated:
//   - success: Recommendations (1 to 3) and Backend
//   - empty: Reason (the model answered but nothing usable survived)
//   - failed: Kind, Stage and Message
type Outcome struct {
	Status          string
	Recommendations []Recommendation
	Reason          string
	Backend         string
	Kind            string
	Stage           string
	Message         string
	Err             error
}

// IngestReport summarizes an Add or Ingest call.
type IngestReport struct {
	Items    int
	BySource map[string]int
}
