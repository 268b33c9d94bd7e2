// Package receipt records what an install produced.
//
// A receipt is a small YAML document written after a successful install:
// the release version, the artifact it came from, and base64 SHA-512
// checksums of every installed file. The status command reads receipts to
// report installed versions and compare them against published releases.
package receipt
