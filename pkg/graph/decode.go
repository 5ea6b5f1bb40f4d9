package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrMalformed is returned when the input is not an object with nodes and
	// links arrays.
	ErrMalformed = errors.New("graph: malformed dataset")
	// ErrDuplicateNode is returned when two nodes share an id
	ErrDuplicateNode = errors.New("graph: duplicate node id")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode reads a dataset from JSON. Link endpoints may be bare ids or node
// objects; both are normalized to bare ids.
func Decode(r io.Reader) (Dataset, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Dataset{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for _, key := range []string{"nodes", "links"} {
		v, ok := raw[key]
		if !ok {
			return Dataset{}, fmt.Errorf("%w: missing %q", ErrMalformed, key)
		}
		if t := bytes.TrimSpace(v); len(t) == 0 || t[0] != '[' {
			return Dataset{}, fmt.Errorf("%w: %q is not an array", ErrMalformed, key)
		}
	}

	var ds Dataset
	if err := json.Unmarshal(raw["nodes"], &ds.Nodes); err != nil {
		return Dataset{}, fmt.Errorf("%w: nodes: %v", ErrMalformed, err)
	}
	if err := json.Unmarshal(raw["links"], &ds.Links); err != nil {
		return Dataset{}, fmt.Errorf("%w: links: %v", ErrMalformed, err)
	}
	return ds, nil
}

// UnmarshalJSON accepts string or numeric ids; numbers become their
// decimal form so links can refer to them either way.
func (n *Node) UnmarshalJSON(data []byte) error {
	type plain Node
	var aux struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if t := bytes.TrimSpace(aux.ID); len(t) > 0 && t[0] == '{' {
		return errors.New("id: object ids are not allowed")
	}
	id, err := endpointID(aux.ID)
	if err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*n = Node(aux.plain)
	n.ID = id
	return nil
}

// UnmarshalJSON accepts either "id" or {"id": "..."} for source and target
func (l *Link) UnmarshalJSON(data []byte) error {
	type plain Link
	var aux struct {
		plain
		Source json.RawMessage `json:"source"`
		Target json.RawMessage `json:"target"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	src, err := endpointID(aux.Source)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	tgt, err := endpointID(aux.Target)
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}
	*l = Link(aux.plain)
	l.Source, l.Target = src, tgt
	return nil
}

func endpointID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	case '{':
		var obj struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", err
		}
		if len(obj.ID) > 0 && obj.ID[0] == '{' {
			return "", errors.New("nested endpoint object")
		}
		return endpointID(obj.ID)
	default:
		// numeric ids
		var f json.Number
		if err := json.Unmarshal(raw, &f); err != nil {
			return "", err
		}
		if i, err := strconv.ParseInt(f.String(), 10, 64); err == nil {
			return strconv.FormatInt(i, 10), nil
		}
		return f.String(), nil
	}
}

// Validate checks struct constraints and id uniqueness. Links pointing at
// unknown nodes are allowed; consumers skip them.
func (d Dataset) Validate() error {
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrMalformed, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	seen := make(map[string]struct{}, len(d.Nodes))
	for _, n := range d.Nodes {
		if _, ok := seen[n.ID]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateNode, n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	return nil
}
