// Package obs provides the shared structured logger for the kernel.
package obs

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	base     *logrus.Logger
	baseOnce sync.Once
)

// Logger returns the shared logrus logger, configured once on first use.
func Logger() *logrus.Logger {
	baseOnce.Do(func() {
		base = logrus.New()
		base.SetOutput(os.Stderr)
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		base.SetLevel(logrus.InfoLevel)
		if lvl := os.Getenv("NEOAGENT_LOG_LEVEL"); lvl != "" {
			if parsed, err := logrus.ParseLevel(lvl); err == nil {
				base.SetLevel(parsed)
			}
		}
	})
	return base
}

// For returns a logger scoped to a component name, e.g. "knowledge.graph".
func For(component string) *logrus.Entry {
	return Logger().WithField("component", component)
}
