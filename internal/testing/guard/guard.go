// Package guard flips the process into test mode when imported, so binaries
// and app wiring skip runtime side effects such as banner logging.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("RINDE_TEST_MODE") == "" {
			_ = os.Setenv("RINDE_TEST_MODE", "1")
		}
	})
}
