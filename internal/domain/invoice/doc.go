// Package invoice provides the domain model for a single self-employment invoice.
//
// This package is responsible for:
//   - Validating raw invoice fields (amount, currency, date, client, description)
//   - Representing an invoice as an immutable value
//   - Re-denominating an invoice into another currency through a Converter
//   - Collecting missing fields interactively through a Prompter
//
// Key Types:
//   - Invoice: immutable value object; every change yields a new Invoice
//   - Input: raw string fields as typed by a user or posted by a form
//   - Prompter: source of interactive answers (terminal, tests)
//
// Validation failures are reported as shared.DomainError values with the
// VALIDATION code and the offending field name set.
package invoice
