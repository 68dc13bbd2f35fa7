// SPDX-License-Identifier: MPL-2.0

// Package framework is the module runtime. It installs modules from
// locations, binds each module revision to a content provider, persists the
// installed set, and runs resolution attempts through the resolver hooks.
//
// Content comes from the connect negotiator when it claims a location;
// otherwise the location is a directory or a zip archive on disk. Revisions
// are immutable once published: Update binds a new revision and only then
// closes the previous one.
package framework
