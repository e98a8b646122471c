// Package core provides the business logic for importing leads into a
// relational table whose columns may grow on demand.
//
// This package has no transport dependencies. The HTTP server, the CLI,
// and tests all drive it through [Service], backed by any [Store].
//
// # Pipeline
//
// One import is one batch, processed inside a single transaction:
//
//  1. [Inspector] reads the table's column snapshot.
//  2. [FieldMapper] resolves every header: explicit column, new column
//     (created by [Evolver] through ALTER TABLE), or auto-detection by
//     label and synonym.
//  3. [RowNormalizer] turns each raw row into a [LeadRecord]: required
//     fields defaulted, status coerced, created_at reformatted, blank
//     emails replaced by a per-batch placeholder.
//  4. [Importer] upserts each record under its own savepoint, so a
//     rejected row is rolled back alone and counted in error_rows.
//  5. The transaction commits. On failure neither rows nor new columns persist.
//
// # Error Handling
//
// Failures that abort a batch are returned as [*ImportError] carrying a
// [ErrorKind]: KindInput (malformed request), KindSchema (reserved or
// invalid column, disallowed type, unreadable schema) and KindStore
// (transaction failures). Per-row failures never abort; they show up in
// [ImportResult.ErrorRows].
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - IMP001-IMP006: Import errors (schema, limits, request shape)
//   - DB001-DB006: Database errors (duplicates, constraints, connections)
//   - FILE001-FILE005: Spreadsheet errors (size, format, content)
//   - LEAD001: Lead lookups
//
// # Concurrency
//
// [ImportLimiter] bounds how many imports run at once (one by default),
// since concurrent batches could race on column creation.
package core
