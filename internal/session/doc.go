// Package session persists the single in-flight wizard session.
//
// A Session is a plain value object. Stores save it as one JSON document
// under a fixed key; the SQLite implementation keeps that document in a
// small key/value table. Unreadable or partial documents load as "no
// session" so a corrupt file never blocks the wizard. A file lock keeps a
// second wizard process from sharing the same state directory.
package session
