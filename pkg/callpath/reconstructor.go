// Package callpath pairs enter and exit probe events into completed call
// paths.
package callpath

import (
	"github.com/danpilch/pidflame/pkg/probe"
	"github.com/sirupsen/logrus"
)

// Sink receives completed call paths, names in root-to-leaf order.
type Sink interface {
	Insert(names []string, start, end uint64)
}

// Stats counts what the reconstructor did with the events it was handed.
type Stats struct {
	Enters     int `json:"enters"`
	Exits      int `json:"exits"`
	Completed  int `json:"completed"`
	StrayExits int `json:"stray_exits"`
	Dropped    int `json:"dropped"` // unknown kind or empty name
	Discarded  int `json:"discarded"`
}

type openPath struct {
	names []string
	start uint64
}

// Reconstructor tracks open call paths by identifier. It is not safe for
// concurrent use; the sampling loop owns it.
type Reconstructor struct {
	open   map[uint64]*openPath
	sink   Sink
	stats  Stats
	logger *logrus.Logger
}

// NewReconstructor creates a reconstructor emitting into sink.
func NewReconstructor(sink Sink, logger *logrus.Logger) *Reconstructor {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	return &Reconstructor{
		open:   make(map[uint64]*openPath),
		sink:   sink,
		logger: logger,
	}
}

// Handle applies one event.
func (r *Reconstructor) Handle(ev probe.RawEvent) {
	switch ev.Kind {
	case probe.Enter:
		if ev.Name == "" {
			r.stats.Dropped++
			return
		}
		r.stats.Enters++
		p, ok := r.open[ev.PathID]
		if !ok {
			// The creating Enter seeds the path with its name and is then
			// appended like every other Enter, so the entry frame appears
			// twice.
			p = &openPath{names: []string{ev.Name}, start: ev.Timestamp}
			r.open[ev.PathID] = p
		}
		p.names = append(p.names, ev.Name)

	case probe.Exit:
		r.stats.Exits++
		p, ok := r.open[ev.PathID]
		if !ok {
			r.stats.StrayExits++
			return
		}
		delete(r.open, ev.PathID)
		r.stats.Completed++
		r.sink.Insert(p.names, p.start, ev.Timestamp)

	default:
		r.stats.Dropped++
		r.logger.WithFields(logrus.Fields{
			"kind": ev.Kind,
			"path": ev.PathID,
		}).Debug("Dropping event of unknown kind")
	}
}

// OpenPaths returns how many call paths are waiting for their exit.
func (r *Reconstructor) OpenPaths() int {
	return len(r.open)
}

// Discard drops every open path at window end and returns how many there
// were.
func (r *Reconstructor) Discard() int {
	n := len(r.open)
	if n > 0 {
		r.logger.WithField("open", n).Debug("Discarding unfinished call paths")
	}
	r.stats.Discarded += n
	clear(r.open)
	return n
}

// Stats returns a snapshot of the counters.
func (r *Reconstructor) Stats() Stats {
	return r.stats
}
