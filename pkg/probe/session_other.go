//go:build !linux

package probe

import (
	"github.com/cilium/ebpf/perf"
	"github.com/sirupsen/logrus"
)

// Session is unavailable outside Linux.
type Session struct{}

func CheckProcess(pid int) error {
	return ErrNotLinux
}

func Open(opts Options, logger *logrus.Logger) (*Session, error) {
	return nil, ErrNotLinux
}

func (s *Session) Reader() *perf.Reader {
	return nil
}

func (s *Session) Close() error {
	return nil
}
