package watcher

// ChangeAnalysis tells a reader of the watched file what to do next.
type ChangeAnalysis struct {
	NeedReopen   bool // the file was replaced or removed; start over at offset 0
	NeedRead     bool // new data may be available
	ChangedFiles []string
}

// AnalyzeChanges determines how a tailing reader reacts to a debounced event.
func AnalyzeChanges(event ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{
		ChangedFiles: event.Paths,
	}

	switch event.Type {
	case ChangeTypeCreate:
		analysis.NeedReopen = true
		analysis.NeedRead = true

	case ChangeTypeRemove:
		// Drain what the old handle still holds; a later create reopens.
		analysis.NeedReopen = true

	case ChangeTypeWrite:
		analysis.NeedRead = true
	}

	return analysis
}
