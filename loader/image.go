// Package loader reads SP memory images.
//
// A memory image is a text file with one 32-bit word per line written as
// hexadecimal (the format produced by the SP assembler). Line i holds the
// word at address i. The same image initializes both the instruction and the
// data memory.
package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// MaxWords is the number of addressable words in an SP memory.
const MaxWords = 1 << 16

// ErrMalformedImage is returned when an image line is not a 32-bit hex word.
var ErrMalformedImage = errors.New("malformed memory image")

// Image is a memory image ready to be injected into the SRAMs.
type Image struct {
	// Name is the path or label the image was loaded from.
	Name string
	// Words holds the image contents starting at address 0.
	Words []uint32
}

// Lines returns the number of words the image defines.
func (img *Image) Lines() int {
	return len(img.Words)
}

// Load opens and parses a memory image file.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory image: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	img.Name = path

	return img, nil
}

// Parse reads a memory image from r. Blank lines are skipped. Words past
// MaxWords are ignored.
func Parse(r io.Reader) (*Image, error) {
	img := &Image{}
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() && len(img.Words) < MaxWords {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		line = strings.TrimPrefix(strings.TrimPrefix(line, "0x"), "0X")
		word, err := strconv.ParseUint(line, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %q", ErrMalformedImage, lineNo, scanner.Text())
		}

		img.Words = append(img.Words, uint32(word))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read memory image: %w", err)
	}

	return img, nil
}

// Format writes words in image format, one word per line.
func Format(w io.Writer, words []uint32) error {
	bw := bufio.NewWriter(w)
	for _, word := range words {
		if _, err := fmt.Fprintf(bw, "%08x\n", word); err != nil {
			return err
		}
	}
	return bw.Flush()
}
