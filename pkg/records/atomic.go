package records

import (
	"os"

	"github.com/riegeli-go/riegeli/pkg/fileutil"
)

// WriteFileAtomic writes a complete record file to outPath, visible to
// other processes only once the whole file is written: records are
// written to a temporary file in tmpDir via writeFunc, then the temporary
// file is renamed into place.
func WriteFileAtomic(tmpDir, outPath string, opts WriterOptions, writeFunc func(w *Writer) error) error {
	return fileutil.WriteTmpThenMove(tmpDir, outPath, func(tmpPath string) error {
		f, err := os.Create(tmpPath)
		if err != nil {
			return err
		}
		defer f.Close()

		w, err := NewWriter(f, opts)
		if err != nil {
			return err
		}
		if err := writeFunc(w); err != nil {
			return err
		}
		return w.Close()
	})
}
