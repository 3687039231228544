// Package preflight provides readiness checks for the external services
// and filesystem paths storyreel depends on.
//
// The "storyreel check" command prints every result, and the serve command
// runs RunAll once at startup so a misconfigured host fails before the
// first render instead of halfway through one.
//
// Checks for optional integrations are skipped when the integration is not
// configured.
package preflight
