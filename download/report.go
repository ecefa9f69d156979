package download

import (
	"fmt"
	"sort"

	"github.com/maruel/natural"
	"go.uber.org/multierr"
)

// Result of a single font download: either Path is set or Err is.
type Result struct {
	Name   string // local file name
	URL    string
	Path   string
	Size   int64
	Format string // detected file type extension, empty if unknown
	Err    error
}

// OK reports successful download.
func (r Result) OK() bool {
	return r.Err == nil
}

// Report collects results of all downloads of a run.
type Report struct {
	Results []Result
}

// Downloaded returns number of successfully stored fonts.
func (r *Report) Downloaded() int {
	count := 0
	for _, res := range r.Results {
		if res.OK() {
			count++
		}
	}
	return count
}

// Failed returns unsuccessful results ordered by file name.
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if !res.OK() {
			failed = append(failed, res)
		}
	}
	sort.SliceStable(failed, func(i, j int) bool {
		return natural.Less(failed[i].Name, failed[j].Name)
	})
	return failed
}

// Err combines all download errors, nil when everything was downloaded.
func (r *Report) Err() error {
	var err error
	for _, res := range r.Failed() {
		err = multierr.Append(err, fmt.Errorf("%s: %w", res.Name, res.Err))
	}
	return err
}
