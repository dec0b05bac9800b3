// Package matcher associates field labels with value text by spatial layout.
//
// Given every recognized line of one frame and an ordered list of target
// labels, FindAssociations locates each label's own line and then the value
// line whose vertical center falls strictly inside the label line's vertical
// span. No semantic parsing of the value text is attempted: readouts such as
// "120 mL" are matched only because they sit in the same horizontal band as
// the "Volume" label.
//
// # Algorithm
//
// For each label, in list order:
//
//  1. The first line whose content equals the label exactly (case-sensitive,
//     no trimming) is the label line. None found means no association.
//  2. minY and maxY are the smallest and largest corner y of the label line.
//  3. Every line whose content differs from the label line's content is a
//     candidate; its center is the mean of its four corner y values. A
//     candidate qualifies when minY < center < maxY.
//  4. The qualifying candidate chosen by the tie-break policy is the value.
//
// Exclusion in step 3 is keyed to the label line found in step 1, so a line
// carrying a different label's text may still be picked as a value.
//
// # Tie-Breaking
//
// FirstFound (the default) returns the first qualifying line in input order.
// Input order is whatever the OCR engine produced and is not a ranking.
// NearestHorizontal instead picks the candidate whose horizontal center is
// closest to the label line's, which separates side-by-side readouts that
// share a band; equal distances fall back to input order.
//
// # Errors
//
// A missing label or value is the common case and is reported as absence,
// never as an error. The only error is a line whose corner count is not four,
// which is a violation of the engine contract.
package matcher
