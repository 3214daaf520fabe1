// Package nutrition holds the classification and eligibility rules applied to
// student weigh-ins: BMI and age arithmetic, BMI and height-for-age status
// tables, latest-record resolution over measurement snapshots, feeding program
// eligibility tiers and growth trends.
//
// Every function is pure and total. Missing data degrades to NA or TierNone and
// degenerate numbers produce sentinel values; nothing in this package returns an
// error. Plausibility checks belong to the callers that accept input.
package nutrition
