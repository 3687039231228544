// Package api serves the HTTP interface used by the web front end and by
// scripts: CRUD over stored stories and video configs, render submission,
// job history, finished outputs and on-demand story fetching.
//
// Routes live under /api. JSON field names are snake_case to match the
// story and video config files on disk. Errors are returned as
// {"error": "..."} with a status derived from the services error taxonomy.
// When an API token is configured every route except /api/health requires
// "Authorization: Bearer <token>".
package api
