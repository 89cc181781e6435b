// Package types defines the core data structures for fmove
package types

import "time"

// FileEntry is a snapshot of one file taken at listing time
type FileEntry struct {
	Index     int       `json:"index,omitempty"` // 1-based position in the listing
	Name      string    `json:"name"`
	FullPath  string    `json:"fullPath"`
	SizeBytes uint64    `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
	Extension string    `json:"extension,omitempty"`
}

// RuleKind identifies the form of a selection expression
type RuleKind int

const (
	RuleIndexList RuleKind = iota
	RuleAll
	RuleRange
	RuleGlob
	RuleCancel
)

func (k RuleKind) String() string {
	switch k {
	case RuleAll:
		return "all"
	case RuleRange:
		return "range"
	case RuleGlob:
		return "glob"
	case RuleCancel:
		return "cancel"
	default:
		return "index-list"
	}
}

// Rule is a parsed selection expression
type Rule struct {
	Kind    RuleKind
	Indices []int  // 1-based, RuleIndexList only
	Low     int    // 1-based inclusive, RuleRange only
	High    int    // 1-based inclusive, RuleRange only
	Pattern string // RuleGlob only
}

// Selection is the result of applying a Rule to a listing
type Selection struct {
	Rule      Rule
	Files     []FileEntry
	Cancelled bool
}

// Empty reports whether nothing was selected without the user cancelling
func (s Selection) Empty() bool {
	return !s.Cancelled && len(s.Files) == 0
}

// CleaningRules controls how file names are normalized
type CleaningRules struct {
	Enabled            bool `json:"enabled"`
	ReplaceUmlauts     bool `json:"replaceUmlauts"`
	RemoveSpaces       bool `json:"removeSpaces"`
	RemoveSpecialChars bool `json:"removeSpecialChars"`
}

// Mode selects whether files are moved or copied
type Mode string

const (
	ModeMove Mode = "move"
	ModeCopy Mode = "copy"
)

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	return m == ModeMove || m == ModeCopy
}

// PlanEntry pairs a file with the name it will get at the destination
type PlanEntry struct {
	File         FileEntry `json:"file"`
	ResolvedName string    `json:"resolvedName"`
	Changed      bool      `json:"changed"`
	Warning      string    `json:"warning,omitempty"`
}

// Plan represents the execution plan structure
type Plan struct {
	Version        string        `json:"version"`
	CreatedAt      time.Time     `json:"createdAt"`
	SourceDir      string        `json:"sourceDir"`
	DestinationDir string        `json:"destinationDir"`
	Mode           Mode          `json:"mode"`
	Rules          CleaningRules `json:"rules"`
	Entries        []PlanEntry   `json:"entries"`
}

// ChangedCount returns how many entries get a new name
func (p *Plan) ChangedCount() int {
	n := 0
	for _, e := range p.Entries {
		if e.Changed {
			n++
		}
	}
	return n
}

// WarningCount returns how many entries carry a cleaning warning
func (p *Plan) WarningCount() int {
	n := 0
	for _, e := range p.Entries {
		if e.Warning != "" {
			n++
		}
	}
	return n
}

// Status is the result of applying one plan entry
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// ErrorKind classifies a failed plan entry
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindNotFound           ErrorKind = "not_found"
	KindPermission         ErrorKind = "permission"
	KindCollisionExhausted ErrorKind = "collision_exhausted"
	KindIO                 ErrorKind = "io"
)

// Outcome is the per-file result of an apply run
type Outcome struct {
	File      FileEntry `json:"file"`
	FinalName string    `json:"finalName,omitempty"`
	Status    Status    `json:"status"`
	Kind      ErrorKind `json:"kind,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Summary aggregates the outcomes of one apply run
type Summary struct {
	RunID        string    `json:"runId"`
	Started      time.Time `json:"started"`
	Finished     time.Time `json:"finished"`
	Outcomes     []Outcome `json:"outcomes"`
	SuccessCount int       `json:"successCount"`
	ErrorCount   int       `json:"errorCount"`
	SkippedCount int       `json:"skippedCount"`
}

// Record adds an outcome and updates the counters
func (s *Summary) Record(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Status {
	case StatusSuccess:
		s.SuccessCount++
	case StatusSkipped:
		s.SkippedCount++
	case StatusFailed:
		s.ErrorCount++
	}
}

// Decision is the operator's answer to a preview
type Decision int

const (
	DecisionAbort Decision = iota
	DecisionProceed
)

func (d Decision) String() string {
	if d == DecisionProceed {
		return "proceed"
	}
	return "abort"
}

// ExtensionGroup summarizes the files sharing one extension
type ExtensionGroup struct {
	Extension string
	Count     int
	TotalSize uint64
}

// InspectReport is the detail view of a plan
type InspectReport struct {
	Groups  []ExtensionGroup
	Largest []FileEntry
	Oldest  []FileEntry
}

// EntryStatus is the pre-apply state of one plan entry
type EntryStatus string

const (
	EntryOK            EntryStatus = "ok"
	EntrySourceMissing EntryStatus = "source_missing"
	EntryCollision     EntryStatus = "collision"
	EntrySamePath      EntryStatus = "same_path"
)

// CheckResult holds the check result for a single plan entry
type CheckResult struct {
	Entry    PlanEntry
	Status   EntryStatus
	Detail   string
	Expected string // name the entry would be stored under
}

// CheckReport holds the overall check report
type CheckReport struct {
	Total    int
	ByStatus map[EntryStatus]int
	Results  []CheckResult
	AllOK    bool
}

// Manifest is the record written next to every backup
type Manifest struct {
	ID             string `json:"id"`
	SourcePath     string `json:"sourcePath"`
	CreatedAt      string `json:"createdAt"`
	FileCount      int    `json:"fileCount"`
	TotalSizeBytes int64  `json:"totalSizeBytes"`
}

// Profile represents the .fmove.conf.json file in a source directory
type Profile struct {
	Version  string         `json:"version,omitempty"`
	Cleaning *CleaningRules `json:"cleaning,omitempty"`
	Exclude  []string       `json:"exclude,omitempty"`
	Mode     Mode           `json:"mode,omitempty"`
}

// RunOptions holds the inputs of one pipeline run
type RunOptions struct {
	SourceDir      string
	DestinationDir string
	Rules          CleaningRules
	Mode           Mode
	Preview        bool
	Backup         bool
	Selection      string // non-interactive selection expression, empty to ask
	Exclude        []string
}

// ApplyOptions holds options for the apply operation
type ApplyOptions struct {
	DryRun     bool
	OnProgress func(done, total int, outcome Outcome)
}
