package nfc

import "fmt"

// SectorLine is the outcome for one sector of a dump.
type SectorLine struct {
	Key            string
	Authenticated  bool
	FailureMarker  string         // set when Authenticated is false
	Classification Classification // nil when Authenticated is false
}

// Line renders the sector the way the console reporter prints it.
func (l SectorLine) Line() string {
	if !l.Authenticated {
		return fmt.Sprintf("%s: authentication failed (%s)", l.Key, l.FailureMarker)
	}
	return fmt.Sprintf("--- %s --- %s", l.Key, Render(l.Classification))
}

// SectorReport is the classified form of a SectorDump.
type SectorReport struct {
	UID     string
	Type    string
	Sectors []SectorLine
}

// Lines renders every sector line in order.
func (r SectorReport) Lines() []string {
	lines := make([]string, 0, len(r.Sectors))
	for _, s := range r.Sectors {
		lines = append(lines, s.Line())
	}
	return lines
}

// CountByKind tallies classified sectors; failed sectors are not counted.
func (r SectorReport) CountByKind() map[Kind]int {
	counts := make(map[Kind]int)
	for _, s := range r.Sectors {
		if s.Authenticated {
			counts[s.Classification.Kind()]++
		}
	}
	return counts
}

// FailedSectors returns the number of sectors that could not be authenticated.
func (r SectorReport) FailedSectors() int {
	n := 0
	for _, s := range r.Sectors {
		if !s.Authenticated {
			n++
		}
	}
	return n
}

// BuildReport classifies every authenticated sector of dump. Sectors that
// failed authentication are reported with their marker and never classified.
func BuildReport(dump *SectorDump, classifier *Classifier) SectorReport {
	if classifier == nil {
		classifier = DefaultClassifier
	}
	report := SectorReport{}
	if dump == nil {
		return report
	}
	report.UID = dump.UID
	report.Type = dump.Type
	report.Sectors = make([]SectorLine, 0, len(dump.Sectors))

	for _, entry := range dump.Sectors {
		line := SectorLine{Key: entry.Key}
		if blocks, ok := entry.State.Blocks(); ok {
			line.Authenticated = true
			line.Classification = classifier.Classify(blocks)
		} else {
			line.FailureMarker = entry.State.FailureMarker()
		}
		report.Sectors = append(report.Sectors, line)
	}
	return report
}
