package util

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// writeAtomic writes through a temporary file in the target directory and
// renames it into place, creating the directory when needed.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return errors.Wrap(err, "creating temporary file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "writing %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", tmp.Name())
	}
	return errors.Wrapf(os.Rename(tmp.Name(), path), "renaming to %s", path)
}

func SaveYaml(path string, data interface{}) error {
	buf := new(bytes.Buffer)
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return errors.Wrap(err, "encoding yaml")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "encoding yaml")
	}
	return writeAtomic(path, buf.Bytes())
}

// SaveSnappyJson stores data as snappy-compressed JSON.
func SaveSnappyJson(path string, data interface{}) error {
	bs, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "encoding json")
	}
	return writeAtomic(path, snappy.Encode(nil, bs))
}

func LoadSnappyJson(path string, out interface{}) error {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	bs, err := snappy.Decode(nil, compressed)
	if err != nil {
		return errors.Wrapf(err, "decompressing %s", path)
	}
	return errors.Wrapf(json.Unmarshal(bs, out), "decoding %s", path)
}
