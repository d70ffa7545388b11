// Package watcher drives the resource registry from filesystem changes.
//
// It polls the watched directory on a fixed delay, diffs the listing
// against the previous snapshot of modification times, and translates the
// diff into registry adds and removes plus resource-updated notifications
// for subscribed sessions. Detection is snapshot based: there is no inode
// or identity tracking, so a delete-and-recreate within one interval is
// observed as a modification. An unreadable directory stops the loop with
// a terminal error rather than spinning silently.
package watcher
