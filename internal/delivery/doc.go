// Package delivery collapses an entity's activity, autopilot and
// campaign-stop flags into a single DetailedDeliveryStatus.
//
// Two resolvers exist side by side. CurrentResolver speaks the
// budget-optimization / optimal-bid vocabulary; LegacyResolver speaks the
// autopilot / price-discovery vocabulary of agencies that have not moved
// to realtime autopilot. Clients depend on values unique to each, so they
// share only the steps that are identical.
package delivery
