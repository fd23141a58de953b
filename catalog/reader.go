package catalog

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"
)

const defaultReadSize = 4 << 20 // 4 MB

// Reader streams records from a catalog file, one CSV row per line.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader wraps r with a scanner sized for long query rows.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(bufio.NewReaderSize(r, defaultReadSize))
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	return &Reader{scanner: scanner}
}

// Next returns the next record. ok is false at EOF.
func (r *Reader) Next() (rec QueryRecord, ok bool, err error) {
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if len(line) == 0 {
			continue
		}
		rec, err = ParseRow(line)
		if err != nil {
			return QueryRecord{}, false, err
		}
		return rec, true, nil
	}
	if err := r.scanner.Err(); err != nil {
		return QueryRecord{}, false, err
	}
	return QueryRecord{}, false, nil
}

// ReadAll drains r into an in-memory catalog.
func ReadAll(r io.Reader) ([]QueryRecord, error) {
	cr := NewReader(r)
	var recs []QueryRecord
	for {
		rec, ok, err := cr.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return recs, nil
		}
		recs = append(recs, rec)
	}
}

// Load reads a whole catalog from path, or from STDIN when path is empty.
func Load(path string) ([]QueryRecord, error) {
	if path == "" {
		return ReadAll(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open catalog %s", path)
	}
	defer f.Close()
	recs, err := ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read catalog %s", path)
	}
	return recs, nil
}

// WriteAll writes records as catalog rows to w.
func WriteAll(w io.Writer, recs []QueryRecord) error {
	bw := bufio.NewWriter(w)
	for _, rec := range recs {
		if _, err := bw.WriteString(rec.Row()); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Save writes records to path, creating or truncating it.
func Save(path string, recs []QueryRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "cannot create catalog %s", path)
	}
	if err := WriteAll(f, recs); err != nil {
		f.Close()
		return errors.Wrapf(err, "cannot write catalog %s", path)
	}
	return f.Close()
}
