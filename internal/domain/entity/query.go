package entity

import "strings"

// BooleanQuery is the raw logic expression over entity identifiers,
// e.g. "user123 AND (device456 OR ip789)". It is parsed exactly once
// by the query validator; the domain only carries it.
type BooleanQuery struct {
	Expression string   `json:"expression"`
	EntityIDs  []string `json:"entity_ids"`
}

// NewBooleanQuery builds a query over the given entity references.
// The expression is kept verbatim; validation happens in the service layer.
func NewBooleanQuery(expression string, entities []Ref) BooleanQuery {
	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.ID)
	}
	return BooleanQuery{
		Expression: strings.TrimSpace(expression),
		EntityIDs:  ids,
	}
}

// IsEmpty reports whether the query carries no expression
func (q BooleanQuery) IsEmpty() bool {
	return q.Expression == ""
}
