package controller

import (
	"fmt"
	"strings"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/ddns"
)

// Report collects the outcomes of one run, in configuration order.
type Report struct {
	Outcomes []ddns.Outcome
}

// Succeeded returns the number of entries that were updated or already current.
func (r *Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Succeeded {
			n++
		}
	}
	return n
}

// Failed returns the number of entries that ended in the Failed state.
func (r *Report) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// Err aggregates the errors of all failed entries, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("entry %d: %w", o.Seq, o.Err))
		}
	}
	return utilerrors.NewAggregate(errs)
}

// String returns a human-readable summary of the run.
func (r *Report) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%d entries, %d succeeded, %d failed\n", len(r.Outcomes), r.Succeeded(), r.Failed())
	for _, o := range r.Outcomes {
		status := "ok"
		if !o.Succeeded {
			status = "FAILED"
		}
		fmt.Fprintf(&b, "  [%d] %s via %s: %s", o.Seq, o.Service, o.UpdateMethod, status)
		if o.IP != "" {
			fmt.Fprintf(&b, " ip=%s", o.IP)
		}
		if o.Err != nil {
			fmt.Fprintf(&b, " error=%q", o.Err.Error())
		}
		fmt.Fprintln(&b)
	}

	return b.String()
}
