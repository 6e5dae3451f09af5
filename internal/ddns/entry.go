package ddns

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
)

// State is the lifecycle position of an Entry.
type State int

const (
	StateConstructed State = iota
	StateProcessing
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "Constructed"
	case StateProcessing:
		return "Processing"
	case StateSucceeded:
		return "Succeeded"
	case StateFailed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Outcome is the result of processing one entry.
type Outcome struct {
	Seq          int
	Service      string
	UpdateMethod string
	IP           string
	Succeeded    bool
	Err          error
}

// Entry binds one address source to one DNS service for a single run.
type Entry struct {
	seq         int
	serviceName string
	methodName  string
	source      AddressSource
	service     Service
	state       State
	log         logr.Logger
}

// NewEntry returns an entry in the Constructed state. seq is the 1-based
// position of the entry in the configuration.
func NewEntry(seq int, serviceName string, service Service, methodName string, source AddressSource, log logr.Logger) *Entry {
	return &Entry{
		seq:         seq,
		serviceName: serviceName,
		methodName:  methodName,
		source:      source,
		service:     service,
		state:       StateConstructed,
		log:         log,
	}
}

// Seq returns the 1-based position of the entry in the configuration.
func (e *Entry) Seq() int { return e.seq }

// State returns the current lifecycle state.
func (e *Entry) State() State { return e.state }

// Process fetches the current address and hands it to the service. Failures
// are reported in the returned Outcome and leave the entry in StateFailed.
func (e *Entry) Process(ctx context.Context) Outcome {
	e.state = StateProcessing
	out := Outcome{Seq: e.seq, Service: e.serviceName, UpdateMethod: e.methodName}

	e.log.V(1).Info("processing entry", "entry", e.seq, "service", e.serviceName, "updatemethod", e.methodName)

	ip, err := e.source.GetIP(ctx)
	if err != nil {
		if !errors.Is(err, ErrAddressUnavailable) {
			err = fmt.Errorf("%w: %w", ErrAddressUnavailable, err)
		}
		return e.fail(out, err)
	}
	out.IP = ip
	e.log.V(1).Info("determined current address", "entry", e.seq, "ip", ip)

	ok, err := e.service.Update(ctx, ip)
	if err != nil {
		if !errors.Is(err, ErrServiceUpdateFailed) {
			err = fmt.Errorf("%w: %w", ErrServiceUpdateFailed, err)
		}
		return e.fail(out, err)
	}
	if !ok {
		return e.fail(out, fmt.Errorf("%w: %s reported failure", ErrServiceUpdateFailed, e.serviceName))
	}

	e.state = StateSucceeded
	out.Succeeded = true
	e.log.V(1).Info("successful update on entry", "entry", e.seq, "ip", ip)
	return out
}

func (e *Entry) fail(out Outcome, err error) Outcome {
	e.state = StateFailed
	out.Err = err
	return out
}
