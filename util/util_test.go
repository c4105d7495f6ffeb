package util

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"gopkg.in/yaml.v3"
)

type record struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

func TestFiles(t *testing.T) {
	Convey("Given a fresh directory", t, func() {
		dir := filepath.Join(t.TempDir(), "nested")

		Convey("Snappy JSON round-trips and leaves no temporary files", func() {
			path := filepath.Join(dir, "r.json.sz")
			So(SaveSnappyJson(path, &record{Name: "a", Value: 1.5}), ShouldBeNil)

			out := &record{}
			So(LoadSnappyJson(path, out), ShouldBeNil)
			So(out, ShouldResemble, &record{Name: "a", Value: 1.5})

			entries, err := os.ReadDir(dir)
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 1)
		})

		Convey("Loading a missing file returns the os error", func() {
			err := LoadSnappyJson(filepath.Join(dir, "missing"), &record{})
			So(os.IsNotExist(err), ShouldBeTrue)
		})

		Convey("YAML is written with the yaml tags", func() {
			path := filepath.Join(dir, "config.yaml")
			So(SaveYaml(path, &record{Name: "b", Value: 2}), ShouldBeNil)

			bs, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			out := &record{}
			So(yaml.Unmarshal(bs, out), ShouldBeNil)
			So(out, ShouldResemble, &record{Name: "b", Value: 2})
			So(string(bs), ShouldContainSubstring, "name: b")
		})
	})
}

func TestMisc(t *testing.T) {
	Convey("FormatDuration prints hours, minutes and seconds", t, func() {
		So(FormatDuration(0), ShouldEqual, "0:00:00")
		So(FormatDuration(3723*time.Second), ShouldEqual, "1:02:03")
		So(FormatDuration(1499*time.Millisecond), ShouldEqual, "0:00:01")
	})

	Convey("NewRand is deterministic per seed", t, func() {
		a, b := NewRand(7), NewRand(7)
		So(a.Uint64(), ShouldEqual, b.Uint64())
		So(NewRand(8).Uint64(), ShouldNotEqual, NewRand(7).Uint64())
	})

	Convey("DeviceInfo names the cpu", t, func() {
		So(DeviceInfo(), ShouldStartWith, "cpu (")
	})
}

func TestTerminalPrinter(t *testing.T) {
	Convey("The printer flushes the latest outputs when stopped", t, func() {
		buf := new(bytes.Buffer)
		p := NewTerminalPrinter(buf, time.Hour)
		first := p.NewOutput()
		second := p.NewOutput()
		p.Start(context.Background())

		first.Set("one")
		second.Set("two")
		p.Stop()
		p.Stop()

		out := buf.String()
		So(out, ShouldContainSubstring, "one")
		So(out, ShouldContainSubstring, "two")
		So(strings.Index(out, "one"), ShouldBeLessThan, strings.Index(out, "two"))
	})
}
