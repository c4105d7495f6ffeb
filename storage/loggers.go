package storage

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	txtLogFile = "log.txt"
	csvLogFile = "log.csv"
)

// messageFormatter prints only the message, so log.txt reads like console
// output.
type messageFormatter struct{}

func (messageFormatter) Format(e *logrus.Entry) ([]byte, error) {
	return append([]byte(e.Message), '\n'), nil
}

// TxtLogger returns a logger writing to stdout and to log.txt in modelDir.
// The returned closer closes the file.
func TxtLogger(modelDir string, stdout io.Writer) (*logrus.Logger, io.Closer, error) {
	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return nil, nil, errors.Wrapf(err, "creating %s", modelDir)
	}
	f, err := os.OpenFile(filepath.Join(modelDir, txtLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening text log")
	}
	logger := logrus.New()
	logger.SetFormatter(messageFormatter{})
	logger.SetOutput(io.MultiWriter(stdout, f))
	logger.SetLevel(logrus.InfoLevel)
	return logger, f, nil
}

// CSVLogger appends rows to log.csv and flushes after every row.
type CSVLogger struct {
	file   *os.File
	writer *csv.Writer
	empty  bool
}

func NewCSVLogger(modelDir string) (*CSVLogger, error) {
	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", modelDir)
	}
	f, err := os.OpenFile(filepath.Join(modelDir, csvLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "opening csv log")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "opening csv log")
	}
	return &CSVLogger{
		file:   f,
		writer: csv.NewWriter(f),
		empty:  info.Size() == 0,
	}, nil
}

// Empty reports whether the file had no rows when it was opened.
func (c *CSVLogger) Empty() bool {
	return c.empty
}

func (c *CSVLogger) WriteRow(row []string) error {
	if err := c.writer.Write(row); err != nil {
		return errors.Wrap(err, "writing csv row")
	}
	c.writer.Flush()
	return errors.Wrap(c.writer.Error(), "flushing csv log")
}

func (c *CSVLogger) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
