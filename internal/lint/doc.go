// Package lint runs an external linter over source files and memoizes the
// outcome in a verifycache.Cache.
//
// A [Runner] shells out to the configured command (ruff by default) and turns
// its JSON report into a verifycache.Result. A [Checker] puts the cache in
// front of a Runner: unchanged files are answered from the cache, concurrent
// requests for the same file share one linter invocation, and [Checker.CheckAll]
// fans out across a bounded number of workers.
package lint
