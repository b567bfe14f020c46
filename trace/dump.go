package trace

import (
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/spsim/loader"
)

// DumpMemory writes words to w, one %08x word per line.
func DumpMemory(w io.Writer, words []uint32) error {
	return loader.Format(w, words)
}

// DumpMemoryFile creates path and dumps words into it.
func DumpMemoryFile(path string, words []uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create memory dump: %w", err)
	}

	if err := DumpMemory(f, words); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write memory dump %s: %w", path, err)
	}

	return f.Close()
}
