package analysis

import (
	"strconv"

	"github.com/jesbu1/rl-starter-files/core"
)

type RowWriter interface {
	WriteRow([]string) error
}

// CSVAnalyzer writes one row per report, preceded by the header on the first
// report when writeHeader is set.
type CSVAnalyzer struct {
	writer      RowWriter
	writeHeader bool
}

var _ core.Analyzer = &CSVAnalyzer{}

func NewCSVAnalyzer(w RowWriter, writeHeader bool) *CSVAnalyzer {
	return &CSVAnalyzer{
		writer:      w,
		writeHeader: writeHeader,
	}
}

func (c *CSVAnalyzer) Analyze(r *core.UpdateReport) error {
	header, data := Fields(r)
	if c.writeHeader {
		if err := c.writer.WriteRow(header); err != nil {
			return err
		}
		c.writeHeader = false
	}
	row := make([]string, len(data))
	for i, v := range data {
		row[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return c.writer.WriteRow(row)
}
