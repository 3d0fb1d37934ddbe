// Verifycache lints source files and caches the results by file content.
//
// Files whose content is unchanged since the last run are answered from a
// JSON cache on disk instead of re-running the linter, with deterministic
// exit codes suitable for CI gating and git hooks.
//
// Usage:
//
//	verifycache check src/            # lint every .py file under src/
//	verifycache check --mode deep a.py  # run the deep linter configuration
//	verifycache cache show            # print cache statistics
//	verifycache cache validate        # drop entries for changed or deleted files
//	verifycache cache clear           # forget everything
package main
