// Package model provides primary detector backends for the detection
// pipeline.
//
// Two adapters implement detection.Primary:
//
//   - Remote posts the frame to a dedicated inference service and reads a
//     JSON detection list back. This is the production backend.
//   - Ollama prompts a local vision model for bounding boxes. Accuracy
//     depends entirely on the model; it exists for experimenting without a
//     trained detector.
//
// Both adapters tolerate a dead backend. The pipeline treats their errors
// as "no detections" and falls back to color segmentation, so a missing
// model degrades the analysis instead of failing it.
package model
