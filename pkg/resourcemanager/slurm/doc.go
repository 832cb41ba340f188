// Package slurm implements producer.JobSource by shelling out to sacct, the
// one resource-manager adapter spec.md §1 explicitly leaves unspecified
// ("specified only by what the core consumes"). It exists so `sonar jobs`
// and the daemon's jobs probe have a real, runnable default against an
// actual Slurm installation; any other resource manager would supply its
// own JobSource implementation instead.
package slurm
