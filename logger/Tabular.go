// Package logger implements tabular logging of training progress
package logger

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/samuelfneumann/godqn/utils/intutils"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// ProgressFile is the name of the tab-separated progress file
	ProgressFile = "progress.txt"

	// ConfigFile is the name of the configuration snapshot
	ConfigFile = "config.yaml"
)

// Tabular logs rows of key-value pairs. The columns of the table are
// fixed by the keys of the first row, in the order they were logged.
// Each call to Dump appends the current row to a tab-separated
// progress file and prints it as an aligned table through logrus.
//
// A Tabular is not safe for concurrent use.
type Tabular struct {
	dir  string
	file *os.File
	log  *logrus.Logger

	headers []string
	row     map[string]interface{}
	dumped  bool
}

// NewTabular returns a new Tabular logger which writes its files to
// dir, creating dir if needed. Any existing progress file in dir is
// overwritten.
func NewTabular(dir string, log *logrus.Logger) (*Tabular, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("newTabular: could not create output "+
			"directory: %v", err)
	}

	file, err := os.Create(filepath.Join(dir, ProgressFile))
	if err != nil {
		return nil, fmt.Errorf("newTabular: could not create progress "+
			"file: %v", err)
	}

	if log == nil {
		log = logrus.StandardLogger()
	}
	log.WithField("file", file.Name()).Info("logging progress")

	return &Tabular{
		dir:  dir,
		file: file,
		log:  log,
		row:  make(map[string]interface{}),
	}, nil
}

// Dir returns the output directory of the logger
func (t *Tabular) Dir() string {
	return t.dir
}

// Log sets the value of key in the current row. Keys which were not
// logged in the first row cannot be introduced later, and a key can be
// logged at most once per row.
func (t *Tabular) Log(key string, value interface{}) error {
	if _, ok := t.row[key]; ok {
		return fmt.Errorf("log: key %q already logged in this row", key)
	}

	if !t.dumped {
		t.headers = append(t.headers, key)
	} else if !t.isHeader(key) {
		return fmt.Errorf("log: key %q was not logged in the first row", key)
	}

	t.row[key] = value
	return nil
}

func (t *Tabular) isHeader(key string) bool {
	for _, h := range t.headers {
		if h == key {
			return true
		}
	}
	return false
}

// Dump writes the current row and clears it. Columns which were not
// logged in this row are left empty.
func (t *Tabular) Dump() error {
	values := make([]string, len(t.headers))
	for i, key := range t.headers {
		if v, ok := t.row[key]; ok {
			values[i] = fmt.Sprint(v)
		}
	}

	var out strings.Builder
	if !t.dumped {
		out.WriteString(strings.Join(t.headers, "\t"))
		out.WriteByte('\n')
	}
	out.WriteString(strings.Join(values, "\t"))
	out.WriteByte('\n')

	if _, err := t.file.WriteString(out.String()); err != nil {
		return fmt.Errorf("dump: could not write progress file: %v", err)
	}
	if err := t.file.Sync(); err != nil {
		return fmt.Errorf("dump: could not flush progress file: %v", err)
	}

	t.log.Info("\n" + t.table())

	t.dumped = true
	t.row = make(map[string]interface{})
	return nil
}

// table formats the current row as an aligned two-column table
func (t *Tabular) table() string {
	width := 15
	for _, key := range t.headers {
		width = intutils.Max(width, len(key))
	}

	rule := strings.Repeat("-", width+22)
	var b strings.Builder
	b.WriteString(rule)
	b.WriteByte('\n')
	for _, key := range t.headers {
		v, ok := t.row[key]
		if !ok {
			v = ""
		}
		fmt.Fprintf(&b, "| %*s | %15s |\n", width, key, format(v))
	}
	b.WriteString(rule)
	return b.String()
}

// format formats a value for display
func format(v interface{}) string {
	switch v := v.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Sprint(v)
		}
		return fmt.Sprintf("%.3g", v)
	case float32:
		return fmt.Sprintf("%.3g", v)
	default:
		return fmt.Sprint(v)
	}
}

// SaveConfig writes a YAML snapshot of config to the output directory
func (t *Tabular) SaveConfig(config interface{}) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("saveConfig: could not marshal config: %v", err)
	}

	filename := filepath.Join(t.dir, ConfigFile)
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("saveConfig: could not write config: %v", err)
	}
	t.log.WithField("file", filename).Debug("saved config\n" + string(data))
	return nil
}

// Close closes the progress file
func (t *Tabular) Close() error {
	return t.file.Close()
}
