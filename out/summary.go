// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package out

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// Summary records the history of an adaptive run
type Summary struct {
	Key   string          `json:"key"`   // simulation key
	Desc  string          `json:"desc"`  // description
	Steps json.RawMessage `json:"steps"` // results of each adaptive step
}

// Save saves the summary to dirout/key-summary.json
//  steps -- any value encodable as JSON; e.g. []fem.StepResult
func (o *Summary) Save(dirout string, steps interface{}) (fn string, err error) {
	o.Steps, err = json.Marshal(steps)
	if err != nil {
		return "", chk.Err("cannot encode steps of summary:\n%v", err)
	}
	b, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return "", chk.Err("cannot encode summary:\n%v", err)
	}
	fn = o.Key + "-summary.json"
	io.WriteFileD(dirout, fn, bytes.NewBuffer(b))
	return
}

// ReadSummary reads a summary saved by Save. steps, if not nil, receives the decoded steps
func ReadSummary(dirout, key string, steps interface{}) (o *Summary, err error) {
	b, err := os.ReadFile(filepath.Join(dirout, key+"-summary.json"))
	if err != nil {
		return nil, chk.Err("cannot read summary:\n%v", err)
	}
	o = new(Summary)
	err = json.Unmarshal(b, o)
	if err != nil {
		return nil, chk.Err("cannot decode summary:\n%v", err)
	}
	if steps != nil {
		err = json.Unmarshal(o.Steps, steps)
		if err != nil {
			return nil, chk.Err("cannot decode steps of summary:\n%v", err)
		}
	}
	return
}
