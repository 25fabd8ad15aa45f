package ports

// ProgressReporter receives progress from long-running operations such as
// per-gene regression fits and null ensemble construction. Implementations
// must be safe for concurrent use.
type ProgressReporter interface {
	Report(stage string, done, total int)
}

// NoProgress discards progress reports
type NoProgress struct{}

func (NoProgress) Report(string, int, int) {}
