// Package domain defines the core business types for the ad group autopilot.
//
// Types in this package are immutable snapshots with no database
// dependencies and no I/O. They are the shared language between the
// repository adapters that fetch settings and the pure calculators that
// consume them.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no redis clients, no context.Context in struct fields
//   - Currency values are decimal.Decimal in cc precision, never float64
//   - Constants and enums belong here
package domain
