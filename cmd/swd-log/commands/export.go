package commands

import (
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/swdkit/swd-go/pkg/log"
)

// RunExport writes the events matching filter to w in the given format
// (jsonl or csv).
func RunExport(path, format string, filter log.Filter, w io.Writer) error {
	var export func(*log.Reader, io.Writer) error
	switch format {
	case "jsonl":
		export = exportJSONL
	case "csv":
		export = exportCSV
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	return export(reader, w)
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}

var csvHeader = []string{
	"timestamp", "session_id", "direction", "layer", "category", "target",
	"type", "message_id", "address", "size", "value", "data", "status", "duration_ns",
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := cw.Write(csvRow(event)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(event log.Event) []string {
	row := make([]string, len(csvHeader))
	row[0] = event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	row[1] = event.SessionID
	row[2] = event.Direction.String()
	row[3] = event.Layer.String()
	row[4] = event.Category.String()
	row[5] = event.Target

	switch {
	case event.Access != nil:
		acc := event.Access
		row[6] = acc.Operation.String()
		if acc.MessageID != 0 {
			row[7] = strconv.FormatUint(uint64(acc.MessageID), 10)
		}
		row[8] = fmt.Sprintf("0x%08x", acc.Address)
		if acc.Size > 0 {
			row[9] = strconv.FormatUint(uint64(acc.Size), 10)
		}
		if acc.Value != nil {
			row[10] = fmt.Sprintf("0x%08x", *acc.Value)
		}
		row[11] = hex.EncodeToString(acc.Data)
		if acc.Status != nil {
			row[12] = acc.Status.String()
		}
		if acc.Duration > 0 {
			row[13] = strconv.FormatInt(acc.Duration.Nanoseconds(), 10)
		}
	case event.Frame != nil:
		row[6] = "frame"
		row[9] = strconv.Itoa(event.Frame.Size)
		row[11] = hex.EncodeToString(event.Frame.Data)
	case event.StateChange != nil:
		row[6] = "state"
	case event.Error != nil:
		row[6] = "error"
		if event.Error.Address != nil {
			row[8] = fmt.Sprintf("0x%08x", *event.Error.Address)
		}
	default:
		row[6] = "unknown"
	}
	return row
}
