// Package session holds the identity of the user logged in to the blog API
// and the last error shown to them.
//
// # Overview
//
// A Store is created once per process from durable storage and injected into
// every consumer (account flows, views, the interactive shell). It is the
// single source of truth for "who is logged in": consumers read it instead of
// re-deriving identity from storage.
//
// # Durable State
//
// The identity lives in three storage slots:
//
//	token      bearer credential, read directly by the API client
//	userEmail  identity email
//	userName   display name
//
// The session counts as logged in only when both token and userEmail are
// present. Partial state (an email without a token, or the reverse) is
// treated as logged out. Setters write storage first and memory second, so a
// fresh process always reconstructs the same state. The last error is never
// persisted.
//
// # Synchronization
//
// Several quill processes can share the same storage. The Store never polls;
// Listen attaches it to a storage.Notifier and runs ExternalSyncCheck once
// the listener is in place and again on every change notice, so a login or
// logout in another process is reflected here.
package session
