package sgc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/natefinch/atomic"
)

// DumpStats writes a JSON snapshot of the collector's current Stats to
// path, replacing any existing file atomically (no reader ever observes a
// partially written snapshot), matching the teacher's lock.go use of
// natefinch/atomic.WriteFile for its own state file.
func (c *Collector) DumpStats(path string) error {
	if err := c.checkLive(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c.Stats(), "", "  ")
	if err != nil {
		return fmt.Errorf("sgc: marshaling stats: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("sgc: writing stats file %q: %w", path, err)
	}
	return nil
}
