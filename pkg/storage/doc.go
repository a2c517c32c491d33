// Package storage defines the persistence interfaces for users and CRM
// entities, with an in-memory implementation for development and tests
// and a PostgreSQL implementation for production.
//
// All entity operations are tenant-scoped: a record is only ever
// visible through its own tenant id. Business-rule validation lives
// with the callers; this layer persists and retrieves.
package storage
