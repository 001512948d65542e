// Package httpapi exposes the submission engine over HTTP.
//
// Routes:
//
//	POST /webhook                        ingest a form webhook
//	GET  /                               service info and stats
//	GET  /health                         store liveness
//	GET  /metrics                        stats and notifier failures
//	GET  /submissions?status=            list submissions
//	GET  /submissions/{id}               one submission
//	POST /submissions/{id}/approve       decide
//	POST /submissions/{id}/reject        decide
//	POST /bulk/approve?category=         bulk approve
//	POST /bulk/reject?older_than=        bulk reject by age
//	POST /maintenance/cleanup?retention= retention cleanup
//	POST /maintenance/restore            rebuild from the journal
//	GET  /export?status=                 CSV export
//	POST /telegram                       bot updates (inline buttons)
//
// Error bodies always carry the engine error code and, when there is one,
// the submission id.
package httpapi
