// Package check runs the strmap sample scenario: it allocates one record per
// key, populates a table, verifies every lookup, probes a key that was never
// inserted, iterates for a sentinel record, checks the length and removes
// every key again.
//
// The records are owned by the scenario, not by the table. They are only
// dropped after their key has been removed.
package check
