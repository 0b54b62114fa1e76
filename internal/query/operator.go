package query

import "strings"

// Operator is a condition's comparison operator.
type Operator int

// Operators understood by the parser. Only some are evaluated; see
// Operator.Supported.
const (
	OpEQ Operator = iota + 1
	OpNEQ
	OpLT
	OpGT
	OpLTE
	OpGTE
	OpInSet
	OpNotInSet
	OpLike
	OpNotLike
	OpCIEQ
	OpCINEQ
	OpCILT
	OpCIGT
	OpCILTE
	OpCIGTE
	OpCIInSet
	OpCINotInSet
	OpCILike
	OpCINotLike
	OpIsNull
	OpIsNotNull
	OpBetween
)

var operatorNames = map[Operator]string{
	OpEQ:         "EQ",
	OpNEQ:        "NEQ",
	OpLT:         "LT",
	OpGT:         "GT",
	OpLTE:        "LTE",
	OpGTE:        "GTE",
	OpInSet:      "INSET",
	OpNotInSet:   "NOTINSET",
	OpLike:       "LIKE",
	OpNotLike:    "NOTLIKE",
	OpCIEQ:       "CI_EQ",
	OpCINEQ:      "CI_NEQ",
	OpCILT:       "CI_LT",
	OpCIGT:       "CI_GT",
	OpCILTE:      "CI_LTE",
	OpCIGTE:      "CI_GTE",
	OpCIInSet:    "CI_INSET",
	OpCINotInSet: "CI_NOTINSET",
	OpCILike:     "CI_LIKE",
	OpCINotLike:  "CI_NOTLIKE",
	OpIsNull:     "IS_NULL",
	OpIsNotNull:  "IS_NOT_NULL",
	OpBetween:    "BETWEEN",
}

func (op Operator) String() string {
	if name, ok := operatorNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseOperator maps an operator name (case-insensitive) to its value.
func ParseOperator(name string) (Operator, bool) {
	return lookupName(operatorNames, name)
}

// Supported reports whether the engine evaluates op.
func (op Operator) Supported() bool {
	switch op {
	case OpEQ, OpCIEQ, OpNEQ, OpCINEQ,
		OpLike, OpCILike, OpNotLike, OpCINotLike,
		OpInSet, OpNotInSet,
		OpIsNull, OpIsNotNull:
		return true
	}
	return false
}

// CaseInsensitive reports whether op is a CI_ variant.
func (op Operator) CaseInsensitive() bool {
	switch op {
	case OpCIEQ, OpCINEQ, OpCILT, OpCIGT, OpCILTE, OpCIGTE,
		OpCIInSet, OpCINotInSet, OpCILike, OpCINotLike:
		return true
	}
	return false
}

// Negated reports whether op is the complement of a positive operator.
func (op Operator) Negated() bool {
	switch op {
	case OpNEQ, OpCINEQ, OpNotLike, OpCINotLike, OpNotInSet, OpCINotInSet, OpIsNotNull:
		return true
	}
	return false
}

// Positive returns the positive form of a negated operator, or op itself.
func (op Operator) Positive() Operator {
	switch op {
	case OpNEQ:
		return OpEQ
	case OpCINEQ:
		return OpCIEQ
	case OpNotLike:
		return OpLike
	case OpCINotLike:
		return OpCILike
	case OpNotInSet:
		return OpInSet
	case OpCINotInSet:
		return OpCIInSet
	case OpIsNotNull:
		return OpIsNull
	}
	return op
}

// IsNullTest reports whether op tests presence only.
func (op Operator) IsNullTest() bool {
	return op == OpIsNull || op == OpIsNotNull
}

// IsLike reports whether op is a pattern operator.
func (op Operator) IsLike() bool {
	switch op.Positive() {
	case OpLike, OpCILike:
		return true
	}
	return false
}

// IsSet reports whether op is a membership operator.
func (op Operator) IsSet() bool {
	switch op.Positive() {
	case OpInSet, OpCIInSet:
		return true
	}
	return false
}

// Aggregate is an aggregate function applied to a select.
type Aggregate int

const (
	AggNone Aggregate = iota
	AggCount
	AggDCount
	AggMin
	AggMax
	AggAvg
	AggStdDev
	AggSum
	AggDistinct
	AggPoint
)

var aggregateNames = map[Aggregate]string{
	AggNone:     "NONE",
	AggCount:    "COUNT",
	AggDCount:   "DCOUNT",
	AggMin:      "MIN",
	AggMax:      "MAX",
	AggAvg:      "AVG",
	AggStdDev:   "STDDEV",
	AggSum:      "SUM",
	AggDistinct: "DISTINCT",
	AggPoint:    "POINT",
}

func (a Aggregate) String() string {
	if name, ok := aggregateNames[a]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseAggregate maps an aggregate name (case-insensitive) to its value.
// The empty string is AggNone.
func ParseAggregate(name string) (Aggregate, bool) {
	if name == "" {
		return AggNone, true
	}
	return lookupName(aggregateNames, name)
}

func lookupName[K comparable](names map[K]string, name string) (K, bool) {
	for k, n := range names {
		if strings.EqualFold(n, name) {
			return k, true
		}
	}
	var zero K
	return zero, false
}
