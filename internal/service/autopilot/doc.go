// Package autopilot runs the nightly budget job.
//
// The job walks every live ad group in bounded chunks. For each chunk it
// prefetches all settings, allocations and ledgers, runs the pure budget
// calculators, and stores the results. I/O failures retry the whole chunk;
// a bad ad group only loses that ad group.
//
// Repository implementations live in repository/postgres/.
package autopilot
