package bridge

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/compozy/taskbridge/pkg/ordered"
)

// Result is the parsed standard output of a successful engine run. Objects
// keep the key order the engine wrote them in.
type Result struct {
	raw  []byte
	root *ordered.Object
}

func newResult(raw []byte) (*Result, error) {
	root, err := ordered.ParseObject(raw)
	if err != nil {
		return nil, err
	}
	return &Result{raw: raw, root: root}, nil
}

// NewResult parses a raw engine response.
func NewResult(raw []byte) (*Result, error) {
	return newResult(append([]byte(nil), raw...))
}

func (r *Result) Raw() []byte {
	return r.raw
}

func (r *Result) Root() *ordered.Object {
	return r.root
}

// OutputParameters returns the top-level outputParameters object, or nil.
func (r *Result) OutputParameters() *ordered.Object {
	obj, ok := ordered.ObjectAt(r.root, "outputParameters")
	if !ok {
		return nil
	}
	return obj
}

// Get looks up a gjson path in the raw response,
// e.g. "outputParameters.TASKS".
func (r *Result) Get(path string) gjson.Result {
	return gjson.GetBytes(r.raw, path)
}

func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.root)
}
