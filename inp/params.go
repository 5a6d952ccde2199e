// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package inp implements the input data read from parameter files
package inp

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cpmech/gosl/chk"
	"gopkg.in/yaml.v3"
)

// ErrConfig flags invalid or conflicting configuration values
var ErrConfig = errors.New("configuration error")

// Params holds the flat configuration surface: option name => value
//  Note: nested sections are flattened with '/'; e.g. "[solver] nmaxit = 5" => "solver/nmaxit"
type Params map[string]string

// ReadParams reads parameters from file
//  Input:
//   fn -- filename with path. ".yaml", ".yml" and ".json" files are decoded as mappings;
//         any other extension is read as a GetPot-like "key = value" file
func ReadParams(fn string) (o Params, err error) {
	b, err := os.ReadFile(fn)
	if err != nil {
		return nil, chk.Err("cannot read parameters file %q:\n%v", fn, err)
	}
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".yaml", ".yml", ".json":
		return ParseYAML(b)
	}
	return ParseGetPot(b)
}

// ParseGetPot parses "key = value" lines. Values may be quoted with ' or ". Lines starting
// with '#' are comments and "[section]" headers prefix the following keys until "[]" or "[../]"
func ParseGetPot(b []byte) (o Params, err error) {
	o = make(Params)
	prefix := ""
	for i, line := range strings.Split(string(b), "\n") {
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, fmt.Errorf("%w: line %d: malformed section header %q", ErrConfig, i+1, line)
			}
			sec := strings.Trim(line[1:len(line)-1], "./ ")
			prefix = ""
			if sec != "" {
				prefix = sec + "/"
			}
			continue
		}
		eq := strings.Index(line, "=")
		if eq < 1 {
			return nil, fmt.Errorf("%w: line %d: expected 'key = value'; got %q", ErrConfig, i+1, line)
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		if len(val) >= 2 && (val[0] == '\'' || val[0] == '"') && val[len(val)-1] == val[0] {
			val = val[1 : len(val)-1]
		}
		o[prefix+key] = strings.TrimSpace(val)
	}
	return
}

// ParseYAML parses a YAML (or JSON) mapping. Nested mappings are flattened and sequences are
// stored as space-separated lists
func ParseYAML(b []byte) (o Params, err error) {
	var raw map[string]interface{}
	err = yaml.Unmarshal(b, &raw)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot decode mapping: %v", ErrConfig, err)
	}
	o = make(Params)
	flatten(o, "", raw)
	return
}

// Keys returns all keys in ascending order
func (o Params) Keys() (keys []string) {
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return
}

// Has tells whether key is present
func (o Params) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// String returns the value corresponding to key or def if key is absent
func (o Params) String(key, def string) string {
	if v, ok := o[key]; ok {
		return v
	}
	return def
}

// Int returns an integer value
func (o Params) Int(key string, def int) (int, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	res, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%w: %q must be an integer; got %q", ErrConfig, key, v)
	}
	return res, nil
}

// Float returns a real value
func (o Params) Float(key string, def float64) (float64, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	res, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("%w: %q must be a real number; got %q", ErrConfig, key, v)
	}
	return res, nil
}

// Bool returns a boolean value. Accepts true/false, 1/0, t/f
func (o Params) Bool(key string, def bool) (bool, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	res, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%w: %q must be a boolean; got %q", ErrConfig, key, v)
	}
	return res, nil
}

// Floats returns a list of reals stored as a space- or comma-separated string
func (o Params) Floats(key string, def []float64) ([]float64, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	fields := splitList(v)
	res := make([]float64, len(fields))
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return def, fmt.Errorf("%w: %q must be a list of reals; got %q", ErrConfig, key, v)
		}
		res[i] = x
	}
	return res, nil
}

// Ints returns a list of integers stored as a space- or comma-separated string
func (o Params) Ints(key string, def []int) ([]int, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	fields := splitList(v)
	res := make([]int, len(fields))
	for i, f := range fields {
		x, err := strconv.Atoi(f)
		if err != nil {
			return def, fmt.Errorf("%w: %q must be a list of integers; got %q", ErrConfig, key, v)
		}
		res[i] = x
	}
	return res, nil
}

// auxiliary ///////////////////////////////////////////////////////////////////////////////////////

func splitList(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
}

func flatten(o Params, prefix string, v interface{}) {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, sub := range val {
			flatten(o, prefix+k+"/", sub)
		}
	case []interface{}:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = fmt.Sprint(item)
		}
		o[strings.TrimSuffix(prefix, "/")] = strings.Join(items, " ")
	case nil:
		o[strings.TrimSuffix(prefix, "/")] = ""
	default:
		o[strings.TrimSuffix(prefix, "/")] = fmt.Sprint(val)
	}
}

// reader reads many keys and keeps the first error
type reader struct {
	p   Params
	err error
}

func (o *reader) int(key string, v *int) {
	if o.err == nil {
		*v, o.err = o.p.Int(key, *v)
	}
}

func (o *reader) float(key string, v *float64) {
	if o.err == nil {
		*v, o.err = o.p.Float(key, *v)
	}
}

func (o *reader) bool(key string, v *bool) {
	if o.err == nil {
		*v, o.err = o.p.Bool(key, *v)
	}
}

func (o *reader) str(key string, v *string) {
	*v = o.p.String(key, *v)
}

func (o *reader) floats(key string, v *[]float64) {
	if o.err == nil {
		*v, o.err = o.p.Floats(key, *v)
	}
}
