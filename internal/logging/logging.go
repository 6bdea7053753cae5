// Package logging wraps logrus with the named-component convention the
// teacher repo used ad hoc via log.Printf component prefixes
// (internal/driven/analyzer.go: "🔵 Analyst analyzing ...",
// "✅ ... complete"). Every pipeline component gets its own named
// logger so log lines are greppable by subsystem without parsing
// free-text prefixes.
package logging

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	once sync.Once
	base *logrus.Logger
)

func root() *logrus.Logger {
	once.Do(func() {
		base = logrus.New()
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		base.SetOutput(os.Stderr)
		base.SetLevel(logrus.InfoLevel)
	})
	return base
}

// Configure sets the root logger's level and, if dir is non-empty,
// additionally writes to "<dir>/<dataset>.log" alongside stderr.
func Configure(levelName string, dir string, dataset string) error {
	r := root()
	lvl, err := logrus.ParseLevel(levelName)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	r.SetLevel(lvl)

	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(dir+"/"+dataset+".log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	r.SetOutput(&multiWriter{stderr: os.Stderr, file: f})
	return nil
}

type multiWriter struct {
	stderr *os.File
	file   *os.File
}

func (m *multiWriter) Write(p []byte) (int, error) {
	m.file.Write(p)
	return m.stderr.Write(p)
}

// Logger is a component-scoped entry. Fields is shorthand for
// logrus.Fields so callers don't need to import logrus directly.
type Logger = *logrus.Entry

// Fields is shorthand for logrus.Fields.
type Fields = logrus.Fields

// For returns a component-scoped logger, e.g. logging.For("crawler.enabavki").
func For(component string) Logger {
	return root().WithField("component", component)
}
