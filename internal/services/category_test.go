package services

import (
	"context"
	"testing"

	"github.com/yungbote/rastion-hub/internal/data/repos"
	"github.com/yungbote/rastion-hub/internal/data/repos/testutil"
	"github.com/yungbote/rastion-hub/internal/domain/artifact"
	"github.com/yungbote/rastion-hub/internal/platform/dbctx"
)

func TestInferCategory(t *testing.T) {
	cases := []struct {
		name     string
		kind     artifact.Kind
		title    string
		desc     string
		manifest string
		want     string
	}{
		{"explicit wins", artifact.KindProblem, "tsp", "", `{"category":"  Custom  "}`, "Custom"},
		{"blank explicit ignored", artifact.KindProblem, "tsp", "", `{"category":"   "}`, "Routing"},
		{"optimization class", artifact.KindProblem, "anything", "", `{"optimization_class":"MILP"}`, "Scheduling"},
		{"optimization class qubo", artifact.KindProblem, "x", "", `{"optimization_class":"qubo"}`, "Graph"},
		{"optimization class qp", artifact.KindProblem, "x", "", `{"optimization_class":"qp"}`, "Portfolio"},
		{"optimization class ignored for solvers", artifact.KindSolver, "x", "", `{"optimization_class":"milp"}`, "General"},
		{"unknown class falls through", artifact.KindProblem, "knapsack", "", `{"optimization_class":"lp"}`, "Combinatorial"},
		{"first keyword wins", artifact.KindProblem, "graph schedule", "", "", "Scheduling"},
		{"description searched", artifact.KindProblem, "x", "A Vehicle fleet", "", "Routing"},
		{"solver qubo before quantum", artifact.KindSolver, "quantum qubo", "", "", "QUBO"},
		{"solver neal", artifact.KindSolver, "Neal annealer", "", "", "QUBO"},
		{"solver milp via mip", artifact.KindSolver, "my-mip-solver", "", "", "MILP"},
		{"solver qp", artifact.KindSolver, "osqp", "", "", "QP"},
		{"default", artifact.KindSolver, "mystery", "", "", "General"},
		{"invalid manifest", artifact.KindProblem, "x", "", `{not json`, "General"},
		{"array manifest", artifact.KindProblem, "x", "", `["category"]`, "General"},
		{"numeric category", artifact.KindProblem, "x", "", `{"category": 42}`, "42"},
		{"fractional category", artifact.KindProblem, "x", "", `{"category": 1.5}`, "1.5"},
		{"zero category ignored", artifact.KindProblem, "tsp", "", `{"category": 0}`, "Routing"},
		{"float zero category ignored", artifact.KindProblem, "tsp", "", `{"category": 0.0}`, "Routing"},
		{"true category", artifact.KindProblem, "tsp", "", `{"category": true}`, "True"},
		{"false category ignored", artifact.KindProblem, "tsp", "", `{"category": false}`, "Routing"},
		{"object category ignored", artifact.KindProblem, "tsp", "", `{"category": {"a": 1}}`, "Routing"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := InferCategory(tc.kind, tc.title, tc.desc, ParseManifest(tc.manifest))
			if got != tc.want {
				t.Fatalf("InferCategory: want=%q got=%q", tc.want, got)
			}
		})
	}
}

func TestCategoryBackfill(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, ctx, db, "backfill")
	p := testutil.SeedArtifact(t, ctx, db, artifact.KindProblem, owner.ID, "Weekly planner", "1", "")
	s := testutil.SeedArtifact(t, ctx, db, artifact.KindSolver, owner.ID, "tabu-search", "1", "")
	kept := testutil.SeedArtifact(t, ctx, db, artifact.KindSolver, owner.ID, "other", "1", "")

	artifactRepo := repos.NewArtifactRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}
	if err := artifactRepo.SetCategory(dbc, artifact.KindSolver, kept.ID, "Custom"); err != nil {
		t.Fatalf("SetCategory: %v", err)
	}
	if err := artifactRepo.SetCategory(dbc, artifact.KindProblem, p.ID, "  "); err != nil {
		t.Fatalf("SetCategory blank: %v", err)
	}

	svc := NewCategoryService(db, testutil.Logger(t), artifactRepo)
	n, err := svc.Backfill(ctx)
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if n != 2 {
		t.Fatalf("Backfill changed: want=2 got=%d", n)
	}

	checks := []struct {
		kind artifact.Kind
		id   uint
		want string
	}{
		{artifact.KindProblem, p.ID, "Scheduling"},
		{artifact.KindSolver, s.ID, "Heuristic"},
		{artifact.KindSolver, kept.ID, "Custom"},
	}
	for _, c := range checks {
		got, _ := artifactRepo.GetByID(dbc, c.kind, c.id)
		if got.CategoryOrEmpty() != c.want {
			t.Fatalf("%s %d category: want=%q got=%q", c.kind, c.id, c.want, got.CategoryOrEmpty())
		}
	}

	n, err = svc.Backfill(ctx)
	if err != nil || n != 0 {
		t.Fatalf("Backfill second run: want=0 got=%d err=%v", n, err)
	}
}
