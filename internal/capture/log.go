package capture

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/moamenhredeen/oasrec/internal/models"
)

// maxLine bounds a single exchange in the log
const maxLine = 16 << 20

// WriteExchanges writes exchanges as JSON Lines
func WriteExchanges(w io.Writer, exchanges []models.Exchange) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, ex := range exchanges {
		if err := enc.Encode(ex); err != nil {
			return fmt.Errorf("failed to write exchange %s: %w", ex.Key(), err)
		}
	}
	return nil
}

// AppendFile appends exchanges to the log at path, creating it if needed
func AppendFile(path string, exchanges []models.Exchange) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open exchange log: %w", err)
	}
	if err := WriteExchanges(f, exchanges); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadExchanges reads a JSON Lines log. Lines that do not decode are
// logged and skipped; blank lines are ignored.
func ReadExchanges(r io.Reader, log *zap.Logger) ([]models.Exchange, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var exchanges []models.Exchange
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ex models.Exchange
		if err := json.Unmarshal(raw, &ex); err != nil {
			log.Warn("skipping undecodable exchange", zap.Int("line", line), zap.Error(err))
			continue
		}
		exchanges = append(exchanges, ex)
	}
	if err := sc.Err(); err != nil {
		return exchanges, fmt.Errorf("failed to read exchange log: %w", err)
	}
	return exchanges, nil
}

// ReadFiles reads and concatenates the logs at paths, in order. Missing
// files are an error.
func ReadFiles(paths []string, log *zap.Logger) ([]models.Exchange, error) {
	var all []models.Exchange
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("failed to open exchange log: %w", err)
		}
		exchanges, err := ReadExchanges(f, log)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		all = append(all, exchanges...)
	}
	return all, nil
}

// ErrNoExchanges is returned when there is nothing to generate from
var ErrNoExchanges = errors.New("no exchanges recorded")
