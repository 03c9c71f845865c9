package warmup

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Sternrassler/sendgrid-newsletter/pkg/client"
)

// ErrRowShape is returned when a CSV row does not have one field per key.
var ErrRowShape = errors.New("csv row does not match column keys")

// RowError locates a malformed CSV row.
type RowError struct {
	Line int
	Got  int
	Want int
}

// Error implements the error interface.
func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v: got %d fields, want %d", e.Line, ErrRowShape, e.Got, e.Want)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RowError) Unwrap() error {
	return ErrRowShape
}

// ReadRecipients reads header-less CSV rows into recipients keyed by keys,
// in file order. Every row must have exactly len(keys) fields.
func ReadRecipients(r io.Reader, keys []string) ([]client.Recipient, error) {
	if len(keys) == 0 {
		keys = DefaultKeys
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var out []client.Recipient
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}

		if len(record) != len(keys) {
			line, _ := reader.FieldPos(0)
			return nil, &RowError{Line: line, Got: len(record), Want: len(keys)}
		}

		rec := make(client.Recipient, len(keys))
		for i, key := range keys {
			rec[key] = record[i]
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadRecipientsFile opens path and reads it with ReadRecipients.
func ReadRecipientsFile(path string, keys []string) ([]client.Recipient, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recipients: %w", err)
	}
	defer f.Close()

	return ReadRecipients(f, keys)
}
