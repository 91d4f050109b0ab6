package service

import (
	"time"

	"github.com/trace-callgraph/internal/statistics"
	"github.com/trace-callgraph/internal/storage"
)

// BuildReport summarizes one build. It is also written as the build's
// summary file.
type BuildReport struct {
	BuildID     string                    `json:"build_id"`
	Source      string                    `json:"source"`
	Start       int64                     `json:"start"`
	End         int64                     `json:"end"`
	Threads     int                       `json:"threads"`
	Intervals   int                       `json:"intervals"`
	Elapsed     time.Duration             `json:"elapsed_ns"`
	TotalTime   int64                     `json:"total_time"`
	TopFuncs    []statistics.TopFuncEntry `json:"top_funcs"`
	ThreadStats []statistics.ThreadEntry  `json:"thread_stats"`
	Files       []string                  `json:"files,omitempty"`
	Artifacts   []storage.Artifact        `json:"artifacts,omitempty"`
}
