// Package queries holds the parameterized Cypher statements run against the
// taxpayer/risk/audit graph and maps their rows onto audit types.
//
// TaxpayerQueries backs the chat intents and is read-only. TaskQueries
// manages audit tasks and is the only writer. DashboardQueries computes
// portfolio aggregates. List caps are enforced in the statement and again
// on the returned rows.
package queries
