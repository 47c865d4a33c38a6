package artifact

import "strings"

// Kind selects one of the two artifact families. Each family has its own
// pair of tables and its own blob root.
type Kind string

const (
	KindProblem Kind = "problem"
	KindSolver  Kind = "solver"
)

var Kinds = []Kind{KindProblem, KindSolver}

func (k Kind) Valid() bool {
	return k == KindProblem || k == KindSolver
}

// Table is the artifact table and also the blob root directory.
func (k Kind) Table() string {
	return string(k) + "s"
}

func (k Kind) VersionTable() string {
	return string(k) + "_versions"
}

// Tag is the item_type label reported by rating results.
func (k Kind) Tag() string {
	if k == KindProblem {
		return "benchmark"
	}
	return string(k)
}

// ParseTag maps the spellings accepted on the rating path to a kind.
func ParseTag(raw string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "problem", "problems", "benchmark", "benchmarks":
		return KindProblem, true
	case "solver", "solvers":
		return KindSolver, true
	default:
		return "", false
	}
}

// RateTags lists every accepted spelling, for route registration.
var RateTags = []string{"problem", "problems", "benchmark", "benchmarks", "solver", "solvers"}
