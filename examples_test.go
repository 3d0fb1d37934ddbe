package verifycache_test

import (
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/positivef/verifycache"
	"github.com/spf13/afero"
)

// lint stands in for an expensive linter invocation.
func lint(fs afero.Fs, path string) verifycache.Result {
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		msg := err.Error()
		return verifycache.Result{FilePath: path, Error: &msg}
	}
	result := verifycache.Result{FilePath: path, Passed: true, Violations: []verifycache.Violation{}, DurationMS: 180}
	if len(content) > 40 {
		result.Passed = false
		result.Violations = append(result.Violations, verifycache.Violation{
			Code: "E501", Message: "Line too long", Line: 1, Column: 41,
		})
	}
	return result
}

func Example() {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/project/app.py", []byte("print('hello')\n"), 0o644)

	cache, err := verifycache.Open("/project/.verifycache", verifycache.WithFs(fs))
	if err != nil {
		log.Fatal(err)
	}
	defer cache.Close()

	for i := 0; i < 2; i++ {
		result, hit := cache.Get("/project/app.py")
		if !hit {
			fmt.Println("cache miss, running linter")
			result = lint(fs, "/project/app.py")
			cache.Put("/project/app.py", result, verifycache.ModeFast)
		} else {
			fmt.Println("cache hit")
		}
		fmt.Printf("passed=%v violations=%d\n", result.Passed, len(result.Violations))
	}

	// Output:
	// cache miss, running linter
	// passed=true violations=0
	// cache hit
	// passed=true violations=0
}

func ExampleCache_ValidateIntegrity() {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/project/a.py", []byte("a = 1\n"), 0o644)
	_ = afero.WriteFile(fs, "/project/b.py", []byte("b = 2\n"), 0o644)

	cache, err := verifycache.Open("/project/.verifycache", verifycache.WithFs(fs))
	if err != nil {
		log.Fatal(err)
	}

	cache.Put("/project/a.py", lint(fs, "/project/a.py"), verifycache.ModeFast)
	cache.Put("/project/b.py", lint(fs, "/project/b.py"), verifycache.ModeFast)
	_ = fs.Remove("/project/b.py")

	report := cache.ValidateIntegrity()
	fmt.Println("valid:", report.Valid)
	fmt.Println("orphaned:", report.Orphaned)

	// Output:
	// valid: 1
	// orphaned: [/project/b.py]
}

func TestVerificationWorkflow(t *testing.T) {
	isDebug := os.Getenv("VERIFYCACHE_DEBUG") != "" // Set to dump cache state while troubleshooting.
	fs := afero.NewMemMapFs()
	now := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)

	cache, err := verifycache.Open("/repo/.verifycache",
		verifycache.WithFs(fs),
		verifycache.WithNowFunc(func() time.Time { return now }),
		verifycache.WithMaxEntries(10),
	)
	if err != nil {
		t.Fatalf("Failed to open cache: %v", err)
	}

	files := map[string]string{
		"/repo/short.py": "x = 1\n",
		"/repo/long.py":  "value = 'this line is definitely longer than forty characters'\n",
	}
	for path, content := range files {
		if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
	}

	verified := 0
	check := func(path string) verifycache.Result {
		if result, hit := cache.Get(path); hit {
			return result
		}
		verified++
		result := lint(fs, path)
		cache.Put(path, result, verifycache.ModeDeep)
		return result
	}

	for round := 0; round < 3; round++ {
		if got := check("/repo/short.py"); !got.Passed {
			t.Errorf("round %d: short.py should pass", round)
		}
		if got := check("/repo/long.py"); got.Passed || len(got.Violations) != 1 {
			t.Errorf("round %d: long.py should fail with one violation, got %+v", round, got)
		}
	}

	if verified != 2 {
		t.Errorf("linter ran %d times, want 2", verified)
	}

	stats := cache.Stats()
	if isDebug {
		spew.Dump(stats)
		spew.Dump(cache.Entries())
	}
	if stats.Hits != 4 || stats.Misses != 2 {
		t.Errorf("hits=%d misses=%d, want 4 and 2", stats.Hits, stats.Misses)
	}

	// A content change forces one more verification.
	if err := afero.WriteFile(fs, "/repo/short.py", []byte("x = 2\n"), 0o644); err != nil {
		t.Fatalf("Failed to rewrite short.py: %v", err)
	}
	future := time.Now().Add(time.Hour)
	if err := fs.Chtimes("/repo/short.py", future, future); err != nil {
		t.Fatalf("Failed to touch short.py: %v", err)
	}
	check("/repo/short.py")
	if verified != 3 {
		t.Errorf("linter ran %d times after edit, want 3", verified)
	}

	// Expiry forces the rest.
	now = now.Add(verifycache.DefaultTTL)
	check("/repo/long.py")
	if verified != 4 {
		t.Errorf("linter ran %d times after expiry, want 4", verified)
	}
}
