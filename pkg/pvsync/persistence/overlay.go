// Package persistence implements the XML-backed snapshot/restore overlay for
// writeable process variables.
package persistence

import (
	"encoding/xml"
	"errors"
	"os"
	"sort"
	"sync"

	"github.com/prometheus/common/log"

	"github.com/jabolina/go-pvsync/pkg/pvsync/types"
)

// storedVariable holds one variable's accumulated sample values, either
// freshly loaded from disk or most-recently recorded via Record.
type storedVariable struct {
	name        string
	elementType types.ElementType
	values      map[int]string
}

// Overlay is a types.PersistenceSink that accumulates the most recent
// payload of every writeable PV it is attached to, and flushes them to an
// XML file named "<applicationName>.persist" in the working directory on
// Save.
type Overlay struct {
	mu              sync.Mutex
	applicationName string
	path            string

	loaded  map[string]*storedVariable // keyed by name, populated from disk at construction
	current map[uint64]*storedVariable // keyed by PV unique ID, updated by Record
}

// NewOverlay constructs an Overlay for applicationName, reading and parsing
// "<applicationName>.persist" if it exists. A missing file is not an error;
// a malformed file is downgraded to an empty overlay with a warning.
func NewOverlay(applicationName string) (*Overlay, error) {
	o := &Overlay{
		applicationName: applicationName,
		path:            applicationName + ".persist",
		loaded:          make(map[string]*storedVariable),
		current:         make(map[uint64]*storedVariable),
	}
	if err := o.load(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Overlay) load() error {
	data, err := os.ReadFile(o.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return types.NewRuntimeError("load", err.Error())
	}

	var doc xmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		log.Warnf("pvsync: persistence: failed to parse %s, starting with no persisted values: %v", o.path, err)
		return nil
	}
	for _, v := range doc.Variables {
		et, ok := parseElementType(v.Type)
		if !ok {
			log.Warnf("pvsync: persistence: variable %q has unknown type %q, skipping", v.Name, v.Type)
			continue
		}
		sv := &storedVariable{name: v.Name, elementType: et, values: make(map[int]string, len(v.Values))}
		for _, val := range v.Values {
			sv.values[val.Index] = val.Value
		}
		o.loaded[v.Name] = sv
	}
	return nil
}

// Record implements types.PersistenceSink: it stores the most recent sample
// values for id, overwriting whatever was recorded previously.
func (o *Overlay) Record(id uint64, name string, elementType types.ElementType, samples []types.PersistedSample) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sv, ok := o.current[id]
	if !ok {
		sv = &storedVariable{name: name, elementType: elementType, values: make(map[int]string, len(samples))}
		o.current[id] = sv
	}
	for _, s := range samples {
		sv.values[s.Index] = formatValue(elementType, s.Value)
	}
}

// Save writes every recorded variable to the persistence file, replacing it
// atomically via a rename from a temporary file in the same directory.
func (o *Overlay) Save() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	doc := xmlDocument{Application: o.applicationName}
	names := make([]string, 0, len(o.current))
	byName := make(map[string]*storedVariable, len(o.current))
	for _, sv := range o.current {
		names = append(names, sv.name)
		byName[sv.name] = sv
	}
	sort.Strings(names)

	for _, name := range names {
		sv := byName[name]
		xv := xmlVariable{Name: sv.name, Type: sv.elementType.String()}
		indices := make([]int, 0, len(sv.values))
		for i := range sv.values {
			indices = append(indices, i)
		}
		sort.Ints(indices)
		for _, i := range indices {
			xv.Values = append(xv.Values, xmlValue{Index: i, Value: sv.values[i]})
		}
		doc.Variables = append(doc.Variables, xv)
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return types.NewRuntimeError("save", err.Error())
	}

	tmp := o.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return types.NewRuntimeError("save", err.Error())
	}
	if err := os.Rename(tmp, o.path); err != nil {
		return types.NewRuntimeError("save", err.Error())
	}
	return nil
}

// LoadInto looks up name among the values parsed from disk at construction
// and, if its stored type and length both match T and n, returns the
// decoded payload and true. An unknown name, wrong type or wrong length is
// downgraded to (nil, false) with a warning; the caller is expected to fall
// back to its own default-initialized payload, never to abort. A missing or
// unparsable individual value leaves that element at its zero value, with a
// warning, and the payload is still returned with true.
func LoadInto[T types.Element](o *Overlay, name string, n int) ([]T, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sv, ok := o.loaded[name]
	if !ok {
		log.Warnf("pvsync: persistence: variable %q not found on reload, using defaults", name)
		return nil, false
	}
	want := types.ElementTypeOf[T]()
	if sv.elementType != want {
		log.Warnf("pvsync: persistence: variable %q type mismatch on reload (file has %s, registry wants %s), using defaults", name, sv.elementType, want)
		return nil, false
	}
	if len(sv.values) != n {
		log.Warnf("pvsync: persistence: variable %q length mismatch on reload (file has %d samples, registry wants %d), using defaults", name, len(sv.values), n)
		return nil, false
	}

	out := make([]T, n)
	for i := 0; i < n; i++ {
		raw, ok := sv.values[i]
		if !ok {
			log.Warnf("pvsync: persistence: variable %q missing index %d on reload, using default", name, i)
			continue
		}
		v, err := parseValue[T](raw)
		if err != nil {
			log.Warnf("pvsync: persistence: variable %q index %d failed to parse %q, using default: %v", name, i, raw, err)
			continue
		}
		out[i] = v
	}
	return out, true
}
