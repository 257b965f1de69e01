// Package matcher drives title resolution: interactive search, single-title
// matching and concurrent batch runs.
//
// A batch is partitioned once. Inputs with a known catalog id are fetched in
// batches, titles already in the record cache resolve immediately, and the
// rest are fed to a bounded pool of workers. Each worker runs the pipeline of
// cached or paged search, filtering, fallback resolution and ranking, and
// writes its result at the input's own index. Progress is reported once per
// input.
//
// Cancellation comes from the context and is checked before each dequeue and
// before each network call. A catalog rate limit stops the whole run.
package matcher
