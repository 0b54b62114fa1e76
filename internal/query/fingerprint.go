package query

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/peak-solution/openatfx-sub003/internal/value"
)

// DomainQuery prefixes query fingerprints. The version suffix allows the
// encoding to change without colliding with older fingerprints.
const DomainQuery = "odsq/query/v1"

// Fingerprint returns a stable content hash of q.
//
// Format: hex(SHA256(DomainQuery + 0x00 + canonical JSON of q)). Equal
// queries hash equally regardless of nil versus empty slices. Used to
// correlate log lines and scenario results.
func Fingerprint(q *Query) (string, error) {
	data, err := MarshalCanonical(q)
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(DomainQuery))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MarshalCanonical encodes q deterministically: fixed key order, NFC
// strings, no HTML escaping, empty lists as [].
func MarshalCanonical(q *Query) ([]byte, error) {
	if q == nil {
		return []byte("null"), nil
	}

	cq := canonicalQuery{
		GroupBy: make([]canonicalColumn, 0, len(q.GroupBy)),
		Joins:   make([]canonicalJoin, 0, len(q.Joins)),
		OrderBy: make([]canonicalOrder, 0, len(q.OrderBy)),
		Selects: make([]canonicalSelect, 0, len(q.Selects)),
		Where:   make([]canonicalWhere, 0, len(q.Where)),
	}
	for _, g := range q.GroupBy {
		cq.GroupBy = append(cq.GroupBy, canonicalColumn{Column: nfc(g.Column), Element: g.Element})
	}
	for _, j := range q.Joins {
		cq.Joins = append(cq.Joins, canonicalJoin{
			Relation: nfc(j.Relation),
			Source:   j.Source,
			Target:   j.Target,
			Type:     j.Type.String(),
		})
	}
	for _, o := range q.OrderBy {
		cq.OrderBy = append(cq.OrderBy, canonicalOrder{Ascending: o.Ascending, Column: nfc(o.Column), Element: o.Element})
	}
	for _, s := range q.Selects {
		cq.Selects = append(cq.Selects, canonicalSelect{
			Aggregate: s.Aggregate.String(),
			Column:    nfc(s.Column),
			Element:   s.Element,
		})
	}
	for _, item := range q.Where {
		switch it := item.(type) {
		case Condition:
			cq.Where = append(cq.Where, canonicalWhere{Condition: &canonicalCondition{
				Column:   nfc(it.Column),
				Element:  it.Element,
				Operand:  it.Operand,
				Operator: it.Operator.String(),
			}})
		case Combinator:
			cq.Where = append(cq.Where, canonicalWhere{Combinator: it.String()})
		default:
			return nil, fmt.Errorf("unknown where item type: %T", item)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(cq); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func nfc(s string) string {
	return norm.NFC.String(s)
}

// Field order is alphabetical so the encoding matches sorted-key canonical
// JSON.
type canonicalQuery struct {
	GroupBy []canonicalColumn `json:"group_by"`
	Joins   []canonicalJoin   `json:"joins"`
	OrderBy []canonicalOrder  `json:"order_by"`
	Selects []canonicalSelect `json:"selects"`
	Where   []canonicalWhere  `json:"where"`
}

type canonicalColumn struct {
	Column  string `json:"column"`
	Element int64  `json:"element"`
}

type canonicalOrder struct {
	Ascending bool   `json:"ascending"`
	Column    string `json:"column"`
	Element   int64  `json:"element"`
}

type canonicalJoin struct {
	Relation string `json:"relation"`
	Source   int64  `json:"source"`
	Target   int64  `json:"target"`
	Type     string `json:"type"`
}

type canonicalSelect struct {
	Aggregate string `json:"aggregate"`
	Column    string `json:"column"`
	Element   int64  `json:"element"`
}

type canonicalWhere struct {
	Combinator string              `json:"combinator,omitempty"`
	Condition  *canonicalCondition `json:"condition,omitempty"`
}

type canonicalCondition struct {
	Column   string      `json:"column"`
	Element  int64       `json:"element"`
	Operand  value.Value `json:"operand"`
	Operator string      `json:"operator"`
}
