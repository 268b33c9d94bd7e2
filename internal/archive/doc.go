// Package archive unpacks downloaded release bundles and locates the
// directory holding executable binaries inside the extracted tree.
//
// Supported formats are .zip and .tar.gz/.tgz. Extraction preserves file
// modes, rejects entries that would escape the extraction root, and always
// targets an isolated directory so concurrent installs of different
// services cannot collide.
package archive
