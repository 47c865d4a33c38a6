package artifact

import "testing"

func TestSanitizeSegment(t *testing.T) {
	cases := map[string]string{
		"Knapsack 0/1":    "Knapsack-0-1",
		"  ..weird..  ":   "weird",
		"../../etc":       "etc",
		"v1.2.3-beta_x":   "v1.2.3-beta_x",
		"日本語":             "item",
		"---":             "item",
		"a   b\t\tc":      "a-b-c",
		".hidden-":        "hidden",
		"max cut (dense)": "max-cut-dense",
	}
	for in, want := range cases {
		if got := SanitizeSegment(in); got != want {
			t.Fatalf("SanitizeSegment(%q): want=%q got=%q", in, want, got)
		}
	}
}

func TestBlobKey(t *testing.T) {
	got := BlobKey(KindSolver, 12, "My Solver", "1.0 rc")
	want := "solvers/12/My-Solver/1.0-rc.zip"
	if got != want {
		t.Fatalf("BlobKey: want=%q got=%q", want, got)
	}
	if got := DownloadFilename("My Solver", "1.0 rc"); got != "My-Solver-1.0-rc.zip" {
		t.Fatalf("DownloadFilename: want=%q got=%q", "My-Solver-1.0-rc.zip", got)
	}
}

func TestParseTag(t *testing.T) {
	for _, tag := range RateTags {
		if _, ok := ParseTag(tag); !ok {
			t.Fatalf("ParseTag(%q): want ok", tag)
		}
	}
	if k, _ := ParseTag(" Benchmarks "); k != KindProblem || k.Tag() != "benchmark" {
		t.Fatalf("ParseTag(Benchmarks): want=%q got=%q", KindProblem, k)
	}
	if k, _ := ParseTag("SOLVER"); k != KindSolver || k.Tag() != "solver" {
		t.Fatalf("ParseTag(SOLVER): want=%q got=%q", KindSolver, k)
	}
	if _, ok := ParseTag("widgets"); ok {
		t.Fatalf("ParseTag(widgets): want !ok")
	}
}
