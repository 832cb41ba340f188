package producer

import (
	"context"
	"fmt"
	"math"
	"os/user"
	"sort"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"github.com/nordichpc/sonar/pkg/accelerator"
	"github.com/nordichpc/sonar/pkg/config"
	"github.com/nordichpc/sonar/pkg/envelope"
	"github.com/nordichpc/sonar/pkg/platform"
	"github.com/nordichpc/sonar/pkg/sampledata"
)

// sampleClockTicksPerSecond matches pkg/platform/linux's USER_HZ assumption;
// the sample producer works in ticks until the final conversion to seconds
// so accumulator deltas stay exact.
const sampleClockTicksPerSecond = 100

// defaultSystemUIDFloor is the uid below which exclude-system-jobs drops a
// process. The floor is fixed; no configuration option changes it.
const defaultSystemUIDFloor = 1000

// defaultMinResidentKiB is the resident-memory companion threshold to
// min-cpu-time (spec.md §4.2's "second threshold"); the spec leaves it
// unconfigured, so sonar fixes it at 64 MiB.
const defaultMinResidentKiB = 64 * 1024

var usernameFold = cases.Fold()

// SampleProducer assembles one Sample envelope per firing: process
// enumeration, job attribution, CPU-time accumulation, GPU attribution,
// rollup, and filtering, per spec.md §4.2.
type SampleProducer struct {
	Platform     platform.Platform
	Accelerators []accelerator.Accelerator
	Config       config.SampleConfig
	Meta         envelope.Meta
	Cluster      string
	Accumulator  *Accumulator

	// RetentionSamples bounds accumulator entries surviving a disappeared
	// pid, expressed in multiples of Config.Cadence (spec.md §4.2 default: 2).
	RetentionSamples int

	uidCacheMu sync.Mutex
	uidCache   map[int64]string
}

// NewSampleProducer builds a SampleProducer with the spec's default
// retention of two sample intervals.
func NewSampleProducer(p platform.Platform, accels []accelerator.Accelerator, cfg config.SampleConfig, meta envelope.Meta, cluster string, acc *Accumulator) *SampleProducer {
	return &SampleProducer{
		Platform:         p,
		Accelerators:     accels,
		Config:           cfg,
		Meta:             meta,
		Cluster:          cluster,
		Accumulator:      acc,
		RetentionSamples: 2,
	}
}

// Produce assembles the sample envelope(s) for one firing: one data
// envelope, plus a trailing errors envelope if any subsystem failed without
// aborting the rest of the firing.
func (p *SampleProducer) Produce(ctx context.Context) []sampledata.Envelope {
	now := p.Platform.Now()
	node, err := p.Platform.Hostname()
	if err != nil {
		return []sampledata.Envelope{p.errorEnvelope(now, "", err)}
	}

	snaps, err := p.Platform.Processes()
	if err != nil {
		return []sampledata.Envelope{p.errorEnvelope(now, node, err)}
	}

	var errs []envelope.ErrorRecord

	ownSID, err := p.Platform.OwnSessionID()
	if err != nil {
		errs = append(errs, p.errRecord(now, node, fmt.Errorf("own session id: %w", err)))
		ownSID = -1
	}

	byPID := make(map[int32]platform.ProcessSnapshot, len(snaps))
	for _, s := range snaps {
		byPID[s.PID] = s
	}

	jobOf := make(map[int32]int64, len(snaps))
	for _, s := range snaps {
		jobOf[s.PID] = p.attributeJob(ctx, s, byPID, ownSID)
	}

	minStart := make(map[int64]time.Time)
	jobUID := make(map[int64]int64)
	for _, s := range snaps {
		job := jobOf[s.PID]
		if t, ok := minStart[job]; !ok || s.StartTime.Before(t) {
			minStart[job] = s.StartTime
			jobUID[job] = s.UID
		}
	}

	jobProcesses := make(map[int64]map[int32]*sampledata.Process)
	allProcs := make(map[int32]*sampledata.Process, len(snaps))
	presentKeys := make(map[AccumulatorKey]bool, len(snaps))

	for _, s := range snaps {
		key := AccumulatorKey{PID: s.PID, StartTime: s.StartTime}
		presentKeys[key] = true

		cum := s.UtimeTicks + s.StimeTicks
		cpuTimeSeconds := ticksToSeconds(cum)

		var cpuAvg float64
		if wall := now.Sub(s.StartTime).Seconds(); wall > 0 {
			cpuAvg = cpuTimeSeconds / wall * 100
		}

		prev, hasPrev := p.Accumulator.observe(key, now, cum)
		cpuUtil := cpuAvg
		if hasPrev {
			if deltaWall := now.Sub(prev.WallTime).Seconds(); deltaWall > 0 {
				cpuUtil = ticksToSeconds(diffTicks(cum, prev.Ticks)) / deltaWall * 100
			}
		}

		proc := &sampledata.Process{
			PID:            s.PID,
			ParentPID:      s.PPID,
			Cmd:            s.Comm,
			CpuAvgPercent:  cpuAvg,
			CpuUtilPercent: cpuUtil,
			CpuTimeSeconds: cpuTimeSeconds,
			VirtualKiB:     s.VirtualKiB,
			ResidentKiB:    s.ResidentKiB,
		}

		if p.filtered(s, proc) {
			continue
		}

		job := jobOf[s.PID]
		if jobProcesses[job] == nil {
			jobProcesses[job] = make(map[int32]*sampledata.Process)
		}
		jobProcesses[job][s.PID] = proc
		allProcs[s.PID] = proc
	}

	p.Accumulator.prune(now, presentKeys, time.Duration(p.retentionSamples())*p.Config.Cadence)

	gpuStates, gpuErrs := p.attributeGPUs(allProcs, jobProcesses)
	errs = append(errs, toErrorRecords(now, node, p.Cluster, gpuErrs)...)

	var cpus []int64
	if p.Config.Load {
		cpus, err = p.Platform.PerCoreJiffies()
		if err != nil {
			errs = append(errs, p.errRecord(now, node, err))
		}
	}

	jobs := make([]sampledata.Job, 0, len(jobProcesses))
	for job, procsByPID := range jobProcesses {
		procs := make([]*sampledata.Process, 0, len(procsByPID))
		for _, proc := range procsByPID {
			procs = append(procs, proc)
		}
		if p.Config.Rollup {
			procs = rollup(procs, byPID)
		}
		sort.Slice(procs, func(i, j int) bool { return procs[i].PID < procs[j].PID })

		deref := make([]sampledata.Process, len(procs))
		for i, pr := range procs {
			deref[i] = *pr
		}

		jobs = append(jobs, sampledata.Job{
			Job:       job,
			User:      p.usernameFor(jobUID[job]),
			Epoch:     minStart[job].Unix(),
			Processes: deref,
		})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Job < jobs[j].Job })

	attrs := sampledata.Attributes{
		Time:   envelope.Timestamp(now),
		Node:   envelope.Hostname(node),
		System: sampledata.System{Cpus: cpus, Gpus: gpuStates},
		Jobs:   jobs,
	}

	out := []sampledata.Envelope{envelope.NewData(envelope.DataTypeSample, p.Meta, attrs)}
	if len(errs) > 0 {
		out = append(out, envelope.NewError[sampledata.Attributes](p.Meta, errs...))
	}
	return out
}

func (p *SampleProducer) retentionSamples() int {
	if p.RetentionSamples <= 0 {
		return 2
	}
	return p.RetentionSamples
}

// attributeJob implements spec.md §4.2's process→job ordering: the resource
// manager's answer if non-zero, else (in batchless mode) the session id of
// the pid's topmost session-leader ancestor distinct from sonar's own
// session, else 0.
func (p *SampleProducer) attributeJob(ctx context.Context, s platform.ProcessSnapshot, byPID map[int32]platform.ProcessSnapshot, ownSID int32) int64 {
	if job, err := p.Platform.ResourceManagerJob(s.PID); err == nil && job != 0 {
		return job
	}

	if !p.Config.Batchless {
		return sampledata.UngroupedJob
	}

	var topLeaderSID int32 = -1
	visited := make(map[int32]bool)
	cur := s
	for {
		if cur.SID == cur.PID && cur.SID != ownSID {
			topLeaderSID = cur.SID
		}
		if visited[cur.PID] {
			break
		}
		visited[cur.PID] = true
		parent, ok := byPID[cur.PPID]
		if !ok || parent.PID == cur.PID {
			break
		}
		cur = parent
	}
	if topLeaderSID == -1 {
		return sampledata.UngroupedJob
	}
	return int64(topLeaderSID)
}

// filtered reports whether proc should be dropped by the configured filter
// policies: min-cpu-time (with its resident-memory companion and empty-GPU
// condition), exclude-system-jobs, and excluded-users.
func (p *SampleProducer) filtered(s platform.ProcessSnapshot, proc *sampledata.Process) bool {
	if p.Config.MinCPUTime > 0 &&
		time.Duration(proc.CpuTimeSeconds*float64(time.Second)) < p.Config.MinCPUTime &&
		len(proc.Gpus) == 0 &&
		proc.ResidentKiB < defaultMinResidentKiB {
		return true
	}
	if p.Config.ExcludeSystemJobs && s.UID >= 0 && s.UID < defaultSystemUIDFloor {
		return true
	}
	if len(p.Config.ExcludedUsers) > 0 {
		name := p.usernameFor(s.UID)
		folded := usernameFold.String(name)
		for _, excluded := range p.Config.ExcludedUsers {
			if folded == usernameFold.String(excluded) {
				return true
			}
		}
	}
	return false
}

// attributeGPUs joins each accelerator's per-process report onto the
// already-built process map, synthesizing a ghost entry for any pid a GPU
// reports that the process snapshot never saw (spec.md §4.2). The owning
// GPU's failing bitmask is OR-ed into every ProcessGpu entry it contributes.
func (p *SampleProducer) attributeGPUs(allProcs map[int32]*sampledata.Process, jobProcesses map[int64]map[int32]*sampledata.Process) ([]sampledata.GpuState, []error) {
	var states []sampledata.GpuState
	var errs []error

	for _, accel := range p.Accelerators {
		count, err := accel.DeviceCount()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: device count: %w", accel.Manufacturer(), err))
			continue
		}
		for i := 0; i < count; i++ {
			state, err := accel.State(i)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: card %d state: %w", accel.Manufacturer(), i, err))
				continue
			}
			states = append(states, sampledata.GpuState{
				Index:            state.Index,
				Fan:              state.Fan,
				ComputeMode:      state.ComputeMode,
				PerformanceState: state.PerformanceState,
				MemoryUsedKiB:    state.MemoryUsedKiB,
				CeUtil:           state.CeUtilPercent,
				MemoryUtil:       state.MemoryUtilPercent,
				TemperatureC:     state.TemperatureC,
				PowerWatts:       state.PowerWatts,
				CeClockMHz:       state.CeClockMHz,
				MemoryClockMHz:   state.MemoryClockMHz,
				Failing:          state.Failing,
			})

			procs, err := accel.Processes(i)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: card %d processes: %w", accel.Manufacturer(), i, err))
				continue
			}
			for _, gp := range procs {
				target, ok := allProcs[gp.PID]
				if !ok {
					target = &sampledata.Process{PID: gp.PID, Cmd: sampledata.GhostCmd}
					allProcs[gp.PID] = target
					if jobProcesses[sampledata.UngroupedJob] == nil {
						jobProcesses[sampledata.UngroupedJob] = make(map[int32]*sampledata.Process)
					}
					jobProcesses[sampledata.UngroupedJob][gp.PID] = target
				}
				target.Gpus = append(target.Gpus, sampledata.ProcessGpu{
					Index:         state.Index,
					GpuUtil:       gp.GpuUtilPercent,
					GpuMemoryUtil: gp.MemoryUtilPercent,
					GpuMemoryKiB:  gp.MemoryUsedKiB,
					Failing:       state.Failing,
				})
			}
		}
	}
	return states, errs
}

// rollup merges processes sharing (cmd, uid, ppid) that have no children
// with a distinct cmd, per spec.md §4.2. Conservation: the sum of
// (rolledup+1)*cpu_time is preserved by construction, since the merged
// cpu_time is the per-member mean of the group's CPU time while the memory
// and CPU-percentage fields are summed.
func rollup(procs []*sampledata.Process, byPID map[int32]platform.ProcessSnapshot) []*sampledata.Process {
	hasDistinctChild := make(map[int32]bool)
	cmdOf := make(map[int32]string)
	for _, pr := range procs {
		cmdOf[pr.PID] = pr.Cmd
	}
	for _, pr := range procs {
		if parentCmd, ok := cmdOf[pr.ParentPID]; ok && parentCmd != pr.Cmd {
			hasDistinctChild[pr.ParentPID] = true
		}
	}

	type groupKey struct {
		cmd  string
		uid  int64
		ppid int32
	}
	groups := make(map[groupKey][]*sampledata.Process)
	var standalone []*sampledata.Process
	var order []groupKey

	for _, pr := range procs {
		if hasDistinctChild[pr.PID] {
			standalone = append(standalone, pr)
			continue
		}
		snap := byPID[pr.PID]
		key := groupKey{cmd: pr.Cmd, uid: snap.UID, ppid: pr.ParentPID}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], pr)
	}

	out := standalone
	for _, key := range order {
		members := groups[key]
		if len(members) == 1 {
			out = append(out, members[0])
			continue
		}
		sort.Slice(members, func(i, j int) bool { return members[i].PID < members[j].PID })
		merged := *members[0]
		merged.RolledUp = len(members) - 1
		totalCPUTime := merged.CpuTimeSeconds
		for _, m := range members[1:] {
			totalCPUTime += m.CpuTimeSeconds
			merged.VirtualKiB += m.VirtualKiB
			merged.ResidentKiB += m.ResidentKiB
			merged.CpuAvgPercent += m.CpuAvgPercent
			merged.CpuUtilPercent += m.CpuUtilPercent
			merged.Gpus = append(merged.Gpus, m.Gpus...)
		}
		// cpu_time is stored as the per-member mean so that
		// (rolledup+1)*cpu_time recovers the group's total CPU time
		// (spec's rollup-conservation property), while the memory fields
		// above are true sums across the group.
		merged.CpuTimeSeconds = totalCPUTime / float64(len(members))
		out = append(out, &merged)
	}
	return out
}

func (p *SampleProducer) usernameFor(uid int64) string {
	if uid < 0 {
		return ""
	}
	p.uidCacheMu.Lock()
	defer p.uidCacheMu.Unlock()
	if p.uidCache == nil {
		p.uidCache = make(map[int64]string)
	}
	if name, ok := p.uidCache[uid]; ok {
		return name
	}
	name := fmt.Sprintf("%d", uid)
	if u, err := user.LookupId(name); err == nil {
		name = u.Username
	}
	p.uidCache[uid] = name
	return name
}

func (p *SampleProducer) errorEnvelope(now time.Time, node string, err error) sampledata.Envelope {
	return envelope.NewError[sampledata.Attributes](p.Meta, p.errRecord(now, node, err))
}

func (p *SampleProducer) errRecord(now time.Time, node string, err error) envelope.ErrorRecord {
	return envelope.ErrorRecord{
		Time:    envelope.Timestamp(now),
		Cluster: p.Cluster,
		Node:    envelope.Hostname(node),
		Detail:  err.Error(),
	}
}

func toErrorRecords(now time.Time, node string, cluster string, errs []error) []envelope.ErrorRecord {
	out := make([]envelope.ErrorRecord, 0, len(errs))
	for _, err := range errs {
		out = append(out, envelope.ErrorRecord{
			Time:    envelope.Timestamp(now),
			Cluster: cluster,
			Node:    envelope.Hostname(node),
			Detail:  err.Error(),
		})
	}
	return out
}

// ticksToSeconds converts cumulative USER_HZ ticks to seconds, saturating
// instead of overflowing per spec.md §4.2's edge case.
func ticksToSeconds(ticks uint64) float64 {
	const maxTicks = math.MaxInt64 / sampleClockTicksPerSecond
	if ticks > maxTicks {
		ticks = maxTicks
	}
	return float64(ticks) / sampleClockTicksPerSecond
}

// diffTicks computes cur-prev, floored at 0 so a reporting glitch (cur <
// prev without a start_time change) cannot produce a negative cpu_util.
func diffTicks(cur, prev uint64) uint64 {
	if cur < prev {
		return 0
	}
	return cur - prev
}
