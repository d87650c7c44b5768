// SPDX-License-Identifier: MPL-2.0

// Package issue holds the catalog of user-facing problems modhost reports,
// one markdown guide per fault kind plus configuration and search path
// problems, and ActionableError, which carries a failed operation together
// with suggestions and a link into the catalog.
package issue
