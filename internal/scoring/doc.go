// Package scoring compares manga titles and turns the comparison into a
// calibrated 0-100 confidence.
//
// CompareTitles runs a fixed chain of strategies (exact, article-only, season
// suffix, containment, token overlap, edit distance) and stops at the first
// one that clears its threshold. Calibrate maps the resulting 0..1 score onto
// the non-linear confidence bands shown to users. Nothing in this package
// performs I/O, returns an error, or panics on odd input.
package scoring
