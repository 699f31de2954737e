// Package preflight provides readiness checks for the paths, credentials and
// external binaries Super Wire depends on.
//
// These checks run in two contexts:
//   - "superwire serve" logs every failed check at startup so a
//     misconfigured deployment is obvious before the first POST.
//   - "superwire status" prints all results and can additionally check the
//     generative backend with CheckLLM.
//
// Checks never fail a command on their own.
package preflight
