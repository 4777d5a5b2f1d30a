package corpus

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/ragrec/internal/db"
	"github.com/kailas-cloud/ragrec/internal/domain/item"
)

const (
	fieldItemID = "item_id"
	fieldTitle  = "title"
	fieldText   = "text"
	fieldTags   = "tags"
	fieldSeq    = "seq"
	fieldVector = "vector"
)

var returnFields = []string{fieldItemID, fieldTitle, fieldText, fieldTags, fieldSeq}

// buildHashFields converts a vectorized item into a flat map for HSET.
func buildHashFields(v item.Vectorized, seq int64) (map[string]string, error) {
	m := map[string]string{
		fieldItemID: v.Item.ID(),
		fieldTitle:  v.Item.Title(),
		fieldText:   v.Item.Text(),
		fieldSeq:    strconv.FormatInt(seq, 10),
		fieldVector: db.VectorToBytes(v.Vector),
	}
	if tags := v.Item.Tags(); len(tags) > 0 {
		data, err := json.Marshal(tags)
		if err != nil {
			return nil, fmt.Errorf("marshal tags of %q: %w", v.Item.ID(), err)
		}
		m[fieldTags] = string(data)
	}
	return m, nil
}

// parseHashFields converts returned search fields back into an item and its sequence number.
func parseHashFields(m map[string]string) (item.CorpusItem, int64, error) {
	seq, err := strconv.ParseInt(m[fieldSeq], 10, 64)
	if err != nil {
		return item.CorpusItem{}, 0, fmt.Errorf("parse seq: %w", err)
	}
	var tags map[string]string
	if raw := m[fieldTags]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			return item.CorpusItem{}, 0, fmt.Errorf("parse tags: %w", err)
		}
	}
	return item.Reconstruct(m[fieldItemID], m[fieldTitle], m[fieldText], tags), seq, nil
}
