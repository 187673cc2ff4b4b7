// Package models defines the persisted entities of jamx.
//
// There is one: [Addition], a row per track that jamx added to the playlist.
// It is append-only; nothing is updated or deleted once written.
//
// Persistent entities implement [Model]. [AppendOnlyRepository] is the
// storage contract for entities that are only ever inserted and read back.
package models
