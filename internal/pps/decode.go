package pps

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Attrs maps attribute names to their raw string values.
type Attrs map[string]string

// Data is the decoded content of an object file keyed by object name,
// so the timezone attribute reads as data["_CS_TIMEZONE"]["_CS_TIMEZONE"].
type Data map[string]Attrs

// Field returns the raw value of attr in object obj.
func (d Data) Field(obj, attr string) (string, bool) {
	a, ok := d[obj]
	if !ok {
		return "", false
	}
	v, ok := a[attr]
	return v, ok
}

// Decode parses the PPS text format:
//
//	@battery
//	StateOfCharge::37
//	ChargingState:s:NC
//
// Attribute lines are name:encoding:value; the encoding is kept out of the
// value. Deletion lines ("-name") and blank lines are skipped.
func Decode(r io.Reader) (Data, error) {
	data := Data{}
	var cur Attrs
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" || line[0] == '-' {
			continue
		}
		if line[0] == '@' || strings.HasPrefix(line, "+@") {
			name := strings.TrimPrefix(strings.TrimPrefix(line, "+"), "@")
			if name == "" {
				return nil, fmt.Errorf("line %d: empty object name", n)
			}
			if _, ok := data[name]; !ok {
				data[name] = Attrs{}
			}
			cur = data[name]
			continue
		}
		name, rest, ok := strings.Cut(line, ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("line %d: malformed attribute %q", n, line)
		}
		_, value, ok := strings.Cut(rest, ":")
		if !ok {
			return nil, fmt.Errorf("line %d: missing encoding separator in %q", n, line)
		}
		if cur == nil {
			return nil, fmt.Errorf("line %d: attribute before object header", n)
		}
		cur[name] = value
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read pps object: %w", err)
	}
	return data, nil
}

// Encode writes data for a single object in the format Decode reads.
func Encode(w io.Writer, obj string, attrs Attrs) error {
	if _, err := fmt.Fprintf(w, "@%s\n", obj); err != nil {
		return err
	}
	for _, k := range sortedKeys(attrs) {
		if _, err := fmt.Fprintf(w, "%s::%s\n", k, attrs[k]); err != nil {
			return err
		}
	}
	return nil
}
