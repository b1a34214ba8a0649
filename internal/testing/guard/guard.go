// Package guard flips the process into test mode as a side effect of
// being imported, before any package init that reads the flag.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("PRESSROOM_TEST_MODE") == "" {
			_ = os.Setenv("PRESSROOM_TEST_MODE", "1")
		}
	})
}
