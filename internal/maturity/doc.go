// Package maturity turns raw detections into ripeness labels, an aggregate
// score, and a harvest recommendation.
//
// The three stages are independent pure functions, applied in order:
//
//   - Classify/ClassifyAll label each detection from the HSV statistics of
//     its cropped region (or keep the model's label when it supplied one),
//     returning populated copies rather than mutating the pipeline's
//     output.
//   - Aggregate folds the labels into a Distribution: per-class counts,
//     percentages, and the weighted 0-100 maturity score.
//   - Recommend maps the Distribution onto fixed harvest-timing and
//     quality bands.
//
// Nothing here can fail: bad crops degrade to the unknown label, empty
// detection lists produce the all-zero distribution and the do-not-harvest
// recommendation. Every function is safe for concurrent use.
package maturity
