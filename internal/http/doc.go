// Package http provides HTTP handlers and middleware for the seminar API.
//
// The router exposes the following endpoints:
//   - GET /plans, POST /plans, GET /plans/{id}, DELETE /plans/{id}: semester
//     plan management. POST /plans/{id}/slots and GET /plans/{id}/slots manage
//     the plan's seminar slots.
//   - GET /rooms, POST /rooms, PUT /rooms/{id}, DELETE /rooms/{id}: room
//     catalog. Deletion takes an optional `reassign_to` query parameter naming
//     the room that inherits existing references.
//   - GET /speakers, POST /speakers, PUT /speakers/{id}, DELETE /speakers/{id}:
//     canonical speaker identities.
//   - GET /suggestions, POST /suggestions, GET/PATCH/DELETE /suggestions/{id}:
//     speaker suggestions; listing filters on `plan_id` and `speaker_id`.
//     PATCH /suggestions/{id}/workflow updates the checklist,
//     POST /suggestions/{id}/tokens issues a speaker link, and
//     POST /suggestions/{id}/assign turns the suggestion into a seminar.
//   - POST /slots/{id}/release frees a slot while keeping its seminar;
//     DELETE /slots/{id} removes an unassigned slot.
//   - GET /seminars (`?orphans=true` lists unlinked ones), GET/PATCH/DELETE
//     /seminars/{id}, PUT /seminars/{id}/details, POST/GET /seminars/{id}/files,
//     GET/DELETE /files/{id}.
//   - GET/POST /speaker/availability, GET/POST /speaker/info and
//     GET /speaker/status: token-authenticated speaker pages; the token travels
//     in the `token` query parameter.
//   - POST /admin/backups, GET /admin/backups, POST /admin/restore,
//     POST /admin/restore/confirm, POST /admin/reset, POST /admin/reset/confirm:
//     password-gated destructive surface; restore and reset require the
//     two-step confirmation token.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
