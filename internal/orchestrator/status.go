package orchestrator

import (
	"sort"

	"extsort/internal/organizer"
	"extsort/internal/scanner"
)

// PlanResult describes what a pass would do, without doing it.
type PlanResult struct {
	Root       string
	Prefix     string
	Sources    []*SourcePlan  // In listing order
	ByKey      map[string]int // Files per extension key across all sources
	GrandTotal int
	Bytes      int64
}

// SourcePlan contains the planned moves of one source directory.
type SourcePlan struct {
	Directory string
	ByKey     map[string][]organizer.Move
	Total     int
	Bytes     int64
}

// Plan lists and classifies every file a pass over opts would move. It never
// touches the filesystem beyond reading directories.
func Plan(opts Options) (*PlanResult, error) {
	result := &PlanResult{
		Root:   opts.Root,
		Prefix: opts.Prefix,
		ByKey:  make(map[string]int),
	}

	sources, err := scanner.SourceDirs(opts.Root, opts.Prefix)
	if err != nil {
		return nil, err
	}

	for _, dir := range sources {
		files, err := scanner.Scan(dir.FullPath)
		if err != nil {
			return nil, err
		}

		sp := &SourcePlan{
			Directory: dir.FullPath,
			ByKey:     make(map[string][]organizer.Move),
		}
		for _, file := range files {
			m := organizer.PlanMove(opts.Root, file)
			sp.ByKey[m.Key] = append(sp.ByKey[m.Key], m)
			sp.Total++
			sp.Bytes += m.Size
			result.ByKey[m.Key]++
		}

		result.Sources = append(result.Sources, sp)
		result.GrandTotal += sp.Total
		result.Bytes += sp.Bytes
	}

	return result, nil
}

// Keys returns the extension keys of the plan, sorted.
func (p *PlanResult) Keys() []string {
	return sortedKeys(p.ByKey)
}

// Keys returns the extension keys of the source directory, sorted.
func (sp *SourcePlan) Keys() []string {
	keys := make([]string, 0, len(sp.ByKey))
	for k := range sp.ByKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
