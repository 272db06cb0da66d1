// Package e2e drives a real browser through the task board, one subtest per
// dataset record. Without BASE_URL the suite serves the demo board seeded from
// the same dataset. SKIP_BROWSER=true skips the suite, E2E_ENGINE picks the
// engine (playwright, rod or http).
package e2e
