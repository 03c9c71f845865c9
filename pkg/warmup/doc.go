// Package warmup drives a sender warm-up: recipients read from a CSV file
// are split into cohorts whose size grows every send period, and each cohort
// gets its own list and cloned newsletter scheduled at the cohort's send time.
//
// # Ramp
//
// With Interval 500, IntervalStep 200 and a one-day SendInterval, a file of
// 1300 rows starting on day D yields cohorts of 500, 700 and 100 recipients
// sent on D, D+1 and D+2.
//
// # Workflow
//
// Every cohort runs the same steps in order:
//
//  1. create list <prefix>_<label>
//  2. clone the source newsletter as <prefix>_<label>
//  3. upload recipients in chunks of at most ChunkSize (50 max)
//  4. attach the list to the newsletter
//  5. schedule the newsletter at the cohort's send time
//
// The first failure aborts the run with a *StepError. Completed steps are
// recorded in a ProgressStore under the run ID, so calling Run again with the
// same RunID resumes where the previous run stopped.
package warmup
