// Package release resolves and downloads published artifacts for a service.
//
// It queries a release-listing endpoint (a GitHub-style "latest release"
// JSON document with a tag name and a collection of downloadable assets),
// picks the first artifact matching the catalog's platform filter, and
// streams it to a scratch file. Selection is case-sensitive, first match
// wins, and there is no retry policy: a failed transfer is a fatal,
// immediately-reported error.
package release
