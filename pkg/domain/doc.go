package domain

// domain package contains the Domain Models and Interfaces for granary, a
// Debian-style archive publishing service.
//
// `domain/granary` package exposes the root object for the application.
// Entrypoints should instantiate the Granary object and use it to interact
// with the domain.
//
// `domain/ENTITY.go` has high-level entities (Domain Model types) and
// functions. For example, `domain/publication.go` contains the
// `SourcePublication` and `BinaryPublication` entities.
//
// `domain/CONCERN` directories contain the "physical" representation of a
// concern, usually the RDB. For example, `domain/publishing/db/publishing.go`
// declares the database interface for the publication ledger, and
// `domain/publishing/db/postgres` implements it.
//
// `domain/CONCERN/interface.go` exposes the client interface to handle that
// concern.
//
// # Entities
//
// Core entities in the domain are:
//
// - `upload`: One item in an archive's upload queue. It bundles a source
// release, per-architecture builds and/or custom files, and moves through
// NEW -> UNAPPROVED/ACCEPTED -> DONE/REJECTED. Accepting an upload runs the
// conflict checks (duplicate version, duplicate filename) and "realising" it
// creates publications.
//
// - `publication`: One row of the append-only publishing ledger, recording
// "this release was published to this archive/series/pocket with these
// overrides". Publications are created PENDING, become PUBLISHED when written
// to the pool and indexes, and end up SUPERSEDED/DELETED/OBSOLETE.
// Superseding is decided by the dominator (domain/domination).
//
// - `copy job`: A durable, resumable description of a cross-archive or
// cross-series copy. Realised by the copy-job runner, which creates
// publications shaped exactly like a native upload's.
//
// And others:
//
// - `pool`: The content-addressed on-disk file tree every publication's files
// are placed into (domain/pool).
//
// - `registry`: Archives, distributions, series, architectures and the
// suite-modification rules gating acceptance (domain/registry).
//
// - `initseries`: Pre-flight checks and execution for initializing a new
// series from parent series (domain/initseries).
