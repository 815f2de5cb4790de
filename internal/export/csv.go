package export

import (
	"bufio"
	"encoding/csv"
	"io"
)

// WriteCSV writes the combined export: each section is its name on one
// line, its rows, then a blank line. Fields are quoted as needed.
func WriteCSV(w io.Writer, in Input) error {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)

	blank := func() error {
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
		_, err := bw.WriteString("\n")
		return err
	}

	for _, s := range sections(in) {
		if err := cw.Write([]string{s.name}); err != nil {
			return err
		}
		for _, row := range s.rows {
			if row == nil {
				if err := blank(); err != nil {
					return err
				}
				continue
			}
			record := make([]string, len(row))
			for i, v := range row {
				record[i] = cellString(v)
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		if err := blank(); err != nil {
			return err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Flush()
}
