package architecture_test

import (
	"bufio"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// Layers, innermost first. A layer may import only layers listed before it.
var layerOrder = []string{"platform", "domain", "data", "services", "observability", "http", "app"}

func TestImportBoundaries(t *testing.T) {
	root := moduleRoot(t)
	modulePath, err := readModulePath(filepath.Join(root, "go.mod"))
	if err != nil {
		t.Fatalf("read module path: %v", err)
	}

	type violation struct {
		file string
		imp  string
	}
	var violations []violation
	fset := token.NewFileSet()

	walkErr := filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		layer := layerOf(strings.TrimPrefix(rel, "internal/"))
		if layer < 0 {
			return nil
		}

		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range f.Imports {
			imp, err := strconv.Unquote(spec.Path.Value)
			if err != nil || !strings.HasPrefix(imp, modulePath+"/internal/") {
				continue
			}
			if target := layerOf(strings.TrimPrefix(imp, modulePath+"/internal/")); target > layer {
				violations = append(violations, violation{file: rel, imp: imp})
			}
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk internal/: %v", walkErr)
	}

	if len(violations) > 0 {
		var b strings.Builder
		b.WriteString("import boundary violations:\n")
		for _, v := range violations {
			fmt.Fprintf(&b, "- %s imports %q\n", v.file, v.imp)
		}
		t.Fatal(b.String())
	}
}

func TestLayerOf(t *testing.T) {
	cases := map[string]int{
		"platform/logger/logger.go": 0,
		"data/repos/artifact":       2,
		"http":                      5,
		"architecture/x_test.go":    -1,
	}
	for in, want := range cases {
		if got := layerOf(in); got != want {
			t.Fatalf("layerOf(%q): want=%d got=%d", in, want, got)
		}
	}
}

// layerOf maps a path below internal/ to its index in layerOrder, or -1.
func layerOf(rel string) int {
	top, _, _ := strings.Cut(rel, "/")
	for i, name := range layerOrder {
		if top == name {
			return i
		}
	}
	return -1
}

func moduleRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("go.mod not found")
		}
		dir = parent
	}
}

func readModulePath(goModPath string) (string, error) {
	f, err := os.Open(goModPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if mp, ok := strings.CutPrefix(line, "module "); ok {
			if mp = strings.TrimSpace(mp); mp != "" {
				return mp, nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("module path not found in %s", goModPath)
}
