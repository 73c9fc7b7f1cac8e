// Package server implements the HTTP API of the analysis service.
//
// The server fronts the analysis pipeline with a JSON API: uploads go in,
// analysis results, history pages and CSV exports come out. All responses
// are JSON except the CSV exports and the stored-file routes.
//
// # Routes
//
// Analysis:
//   - POST /upload: analyze one image (multipart field "image" or "file")
//   - POST /batch_upload: analyze several images (field "images")
//   - GET /results/{name}: re-run analysis on a stored upload
//
// History:
//   - GET /history?page&per_page: paged records, newest first
//   - DELETE /history/{id}: remove a record and its stored files
//   - GET /export, GET /export/{id}: CSV download
//
// Files and diagnostics:
//   - GET /uploads/{name}, GET /processed/{name}: stored images
//   - GET /api/health, GET /api/model_info, GET /api/stats
//   - GET /: service descriptor
//
// Every route passes through CORS and request-logging middleware. Errors
// are returned as {"error": "..."} with a matching status code.
package server
