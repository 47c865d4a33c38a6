package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/rastion-hub/internal/data/repos"
	"github.com/yungbote/rastion-hub/internal/domain/artifact"
	"github.com/yungbote/rastion-hub/internal/platform/dbctx"
	"github.com/yungbote/rastion-hub/internal/platform/logger"
)

const DefaultCategory = "General"

type keywordRule struct {
	keyword  string
	category string
}

// Rule order is significant: the first keyword found wins.
var problemRules = []keywordRule{
	{"calendar", "Scheduling"},
	{"schedule", "Scheduling"},
	{"planner", "Scheduling"},
	{"planning", "Scheduling"},
	{"timetable", "Scheduling"},
	{"workload", "Scheduling"},
	{"knapsack", "Combinatorial"},
	{"set_cover", "Combinatorial"},
	{"packing", "Combinatorial"},
	{"maxcut", "Graph"},
	{"graph", "Graph"},
	{"portfolio", "Portfolio"},
	{"tsp", "Routing"},
	{"route", "Routing"},
	{"vehicle", "Routing"},
	{"facility", "Routing"},
}

var solverRules = []keywordRule{
	{"qubo", "QUBO"},
	{"qaoa", "Quantum"},
	{"quantum", "Quantum"},
	{"neal", "QUBO"},
	{"tabu", "Heuristic"},
	{"grasp", "Heuristic"},
	{"heuristic", "Heuristic"},
	{"baseline", "Heuristic"},
	{"highs", "MILP"},
	{"ortools", "MILP"},
	{"scip", "MILP"},
	{"mip", "MILP"},
	{"milp", "MILP"},
	{"qp", "QP"},
}

var optimizationClassCategory = map[string]string{
	"milp": "Scheduling",
	"mip":  "Scheduling",
	"qubo": "Graph",
	"qp":   "Portfolio",
}

// ParseManifest decodes a manifest form field. Anything that is not a JSON
// object yields an empty map.
func ParseManifest(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}

// manifestText reads a scalar manifest field as text. Falsy values (blank
// strings, zero, false) read as "".
func manifestText(manifest map[string]any, key string) string {
	switch v := manifest[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		if f, err := v.Float64(); err == nil && f == 0 {
			return ""
		}
		return v.String()
	case bool:
		if !v {
			return ""
		}
		return "True"
	default:
		return ""
	}
}

// InferCategory is pure and total: it always returns a non-empty label.
func InferCategory(kind artifact.Kind, name, description string, manifest map[string]any) string {
	if explicit := manifestText(manifest, "category"); explicit != "" {
		return explicit
	}
	if kind == artifact.KindProblem {
		if cat, ok := optimizationClassCategory[strings.ToLower(manifestText(manifest, "optimization_class"))]; ok {
			return cat
		}
	}
	return inferFromText(kind, name, description)
}

func inferFromText(kind artifact.Kind, name, description string) string {
	rules := solverRules
	if kind == artifact.KindProblem {
		rules = problemRules
	}
	haystack := strings.ToLower(name + " " + description)
	for _, r := range rules {
		if strings.Contains(haystack, r.keyword) {
			return r.category
		}
	}
	return DefaultCategory
}

type CategoryService interface {
	// Backfill assigns a category to every row that lacks one and returns
	// how many rows changed.
	Backfill(ctx context.Context) (int, error)
}

type categoryService struct {
	db           *gorm.DB
	log          *logger.Logger
	artifactRepo repos.ArtifactRepo
}

func NewCategoryService(db *gorm.DB, log *logger.Logger, artifactRepo repos.ArtifactRepo) CategoryService {
	return &categoryService{db: db, log: log.With("service", "CategoryService"), artifactRepo: artifactRepo}
}

func (s *categoryService) Backfill(ctx context.Context) (int, error) {
	changed := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		for _, kind := range artifact.Kinds {
			rows, err := s.artifactRepo.ListUncategorized(dbc, kind)
			if err != nil {
				return fmt.Errorf("list uncategorized %s: %w", kind.Table(), err)
			}
			for _, a := range rows {
				cat := inferFromText(kind, a.Name, a.Description)
				if err := s.artifactRepo.SetCategory(dbc, kind, a.ID, cat); err != nil {
					return fmt.Errorf("set category on %s %d: %w", kind, a.ID, err)
				}
				changed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		s.log.Info("Backfilled categories", "count", changed)
	}
	return changed, nil
}
