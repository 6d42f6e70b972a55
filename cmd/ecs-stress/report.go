package main

import (
	"fmt"
	"io"
	"runtime"
	"slices"
	"text/template"
	"time"

	"github.com/plus3/ecsfilter/ecs"
)

type Report struct {
	// Configuration
	Scenario Scenario

	// Results
	TotalUpdates   int64
	TotalTime      time.Duration
	UpdateTime     Stats
	Worlds         []*WorldResult
	GCPauseMetrics bool
	MemStatsStart  runtime.MemStats
	MemStatsEnd    runtime.MemStats
}

type Stats struct {
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	Samples []time.Duration
}

func (s *Stats) Finalize() {
	if len(s.Samples) == 0 {
		return
	}

	var total time.Duration
	s.Min = s.Samples[0]
	s.Max = s.Samples[0]

	for _, sample := range s.Samples {
		if sample < s.Min {
			s.Min = sample
		}
		if sample > s.Max {
			s.Max = sample
		}
		total += sample
	}
	s.Avg = total / time.Duration(len(s.Samples))
}

// Collect merges the per-world frame samples into the report totals.
func (r *Report) Collect(results []*WorldResult) {
	r.Worlds = slices.DeleteFunc(slices.Clone(results), func(res *WorldResult) bool { return res == nil })
	slices.SortFunc(r.Worlds, func(a, b *WorldResult) int { return a.Index - b.Index })

	r.UpdateTime = Stats{}
	r.TotalUpdates = 0
	for _, res := range r.Worlds {
		r.UpdateTime.Samples = append(r.UpdateTime.Samples, res.UpdateTime.Samples...)
		r.TotalUpdates += int64(len(res.UpdateTime.Samples))
	}
	r.UpdateTime.Finalize()
}

// Systems merges scheduler stats of the same system across worlds.
func (r *Report) Systems() []ecs.SystemStats {
	var merged []ecs.SystemStats
	for _, res := range r.Worlds {
		if res.Scheduler == nil {
			continue
		}
		for _, stat := range res.Scheduler.Systems {
			i := slices.IndexFunc(merged, func(s ecs.SystemStats) bool { return s.Name == stat.Name })
			if i < 0 {
				merged = append(merged, stat)
				continue
			}
			m := &merged[i]
			m.ExecutionCount += stat.ExecutionCount
			m.TotalDuration += stat.TotalDuration
			m.MinDuration = min(m.MinDuration, stat.MinDuration)
			m.MaxDuration = max(m.MaxDuration, stat.MaxDuration)
		}
	}
	for i := range merged {
		if merged[i].ExecutionCount > 0 {
			merged[i].AvgDuration = merged[i].TotalDuration / time.Duration(merged[i].ExecutionCount)
		}
	}
	slices.SortFunc(merged, func(a, b ecs.SystemStats) int { return a.Sort - b.Sort })
	return merged
}

func (r *Report) Generate(w io.Writer) error {
	const reportTemplate = `
# ECS Stress Test Report

## Test Configuration
- **Run Duration:** {{.Scenario.Duration}}
- **Frame Limit:** {{if .Scenario.MaxFrames}}{{.Scenario.MaxFrames}}{{else}}none{{end}}
- **Worlds:** {{.Scenario.Worlds}}
- **Initial Entities per World:** {{.Scenario.Entities}}
- **Churn:** {{.Scenario.Churn}}
- **Seed:** {{.Scenario.Seed}}

## Performance Results
- **Total Updates:** {{.TotalUpdates}}
- **Total Test Time:** {{.TotalTime}}
- **Update Time (Frame):**
  - **Avg:** {{.UpdateTime.Avg}}
  - **Min:** {{.UpdateTime.Min}}
  - **Max:** {{.UpdateTime.Max}}

## Systems
| System | Sort | Executions | Avg | Min | Max |
|--------|------|------------|-----|-----|-----|
{{- range .Systems}}
| {{.Name}} | {{.Sort}} | {{.ExecutionCount}} | {{.AvgDuration}} | {{.MinDuration}} | {{.MaxDuration}} |
{{- end}}

## Worlds
{{- range .Worlds}}
### World {{.Index}}
- **Frames:** {{.Scheduler.Frames}} (avg {{.UpdateTime.Avg}}, max {{.UpdateTime.Max}})
- **Entities at End:** {{.World.EntityCount}}
- **Expired:** {{.Expired}}
- **Membership Events:** {{.Entered}} entered, {{.Exited}} exited
{{- range $name, $count := .Removed}}
  - exits caused by removing {{$name}}: {{$count}}
{{- end}}

| System | Filter | Expression | Matches |
|--------|--------|------------|---------|
{{- range .World.Filters}}
| {{.System}} | {{.Name}} | {{.Expression}} | {{.Matches}} |
{{- end}}
{{end}}
## Memory Usage (Raw Bytes)
- Heap Alloc:     {{.MemStatsStart.HeapAlloc}} (start) -> {{.MemStatsEnd.HeapAlloc}} (end) -> delta: {{bsub .MemStatsEnd.HeapAlloc .MemStatsStart.HeapAlloc}}
- Total Alloc:    {{.MemStatsStart.TotalAlloc}} (start) -> {{.MemStatsEnd.TotalAlloc}} (end) -> delta: {{bsub .MemStatsEnd.TotalAlloc .MemStatsStart.TotalAlloc}}
- Sys Memory:     {{.MemStatsStart.Sys}} (start) -> {{.MemStatsEnd.Sys}} (end) -> delta: {{bsub .MemStatsEnd.Sys .MemStatsStart.Sys}}
- Num GC:         {{.MemStatsStart.NumGC}} (start) -> {{.MemStatsEnd.NumGC}} (end) -> delta: {{usub .MemStatsEnd.NumGC .MemStatsStart.NumGC}}
- Heap End (MiB): {{mb .MemStatsEnd.HeapAlloc}}

{{if .GCPauseMetrics}}
## GC Pause Durations
- **Total GC Pause:** {{.MemStatsEnd.PauseTotalNs | ns}}
- **Num GC Cycles:** {{ usub .MemStatsEnd.NumGC .MemStatsStart.NumGC }}
{{end}}
`

	fm := template.FuncMap{
		"mb": func(v any) string {
			switch val := v.(type) {
			case uint64:
				return fmt.Sprintf("%.2f", float64(val)/1024/1024)
			case int64:
				return fmt.Sprintf("%.2f", float64(val)/1024/1024)
			default:
				return "N/A"
			}
		},
		"bsub": func(a, b uint64) int64 {
			return int64(a) - int64(b)
		},
		"usub": func(a, b uint32) uint32 {
			return a - b
		},
		"ns": func(ns uint64) string {
			return time.Duration(ns).String()
		},
	}

	tmpl, err := template.New("report").Funcs(fm).Parse(reportTemplate)
	if err != nil {
		return err
	}

	return tmpl.Execute(w, r)
}
