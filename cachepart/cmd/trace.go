package cmd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sarchlab/cachepart/mem/cache/partitioning"
)

// access is one line of a trace.
type access struct {
	Partition partitioning.PartitionID
	Address   uint64
}

func readTraceFile(path string) ([]access, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	accesses, err := readTrace(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return accesses, nil
}

// readTrace parses "partition,address" records. Addresses may be decimal or
// prefixed with 0x. A header line and lines starting with # are skipped.
func readTrace(r io.Reader) ([]access, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	var accesses []access

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return accesses, nil
		}

		if err != nil {
			return nil, err
		}

		line, _ := reader.FieldPos(0)

		if line == 1 && strings.EqualFold(record[0], "partition") {
			continue
		}

		a, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		accesses = append(accesses, a)
	}
}

func parseRecord(record []string) (access, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(record[0]), 10, 64)
	if err != nil {
		return access{}, fmt.Errorf("invalid partition %q", record[0])
	}

	addr, err := strconv.ParseUint(strings.TrimSpace(record[1]), 0, 64)
	if err != nil {
		return access{}, fmt.Errorf("invalid address %q", record[1])
	}

	return access{
		Partition: partitioning.PartitionID(id),
		Address:   addr,
	}, nil
}
