// Package dedupe runs the near-duplicate batch job: it walks a root of leaf
// audio folders, embeds every clip in a folder with a similarity model,
// scores the clips against each other and persists one neighbor-map artifact
// per folder.
//
// Folders are independent units of work scheduled on a fixed worker pool. A
// unit whose artifact already exists is skipped, never rewritten, so the job
// can be re-run over a partially processed dataset. A failing unit is logged
// and terminates only itself.
package dedupe
