package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// KeyValue is a generic set of key-value pairs
//
// expect values to be string, float64, or bool
type KeyValue map[string]interface{}

// Validate checks that every value has an allowed type.
func (kv KeyValue) Validate() error {
	for key, v := range kv {
		switch v.(type) {
		case string, float64, bool:
			continue
		default:
			return fmt.Errorf("key %v is of type %T and not "+
				"string, float64, or bool", key, v)
		}
	}
	return nil
}

// KeyValuePair is a single entry of a KeyValue.
type KeyValuePair struct {
	Key string
	Val interface{}
}

// Pairs returns the key-value pairs in kv, sorted by key
func (kv KeyValue) Pairs() []KeyValuePair {
	var pairs []KeyValuePair
	for key, val := range kv {
		pairs = append(pairs, KeyValuePair{key, val})
	}
	sort.Slice(pairs, func(i int, j int) bool {
		return pairs[i].Key < pairs[j].Key
	})
	return pairs
}

// Clone returns a copy of kv.
func (kv KeyValue) Clone() KeyValue {
	kv2 := make(KeyValue, len(kv))
	for k, v := range kv {
		kv2[k] = v
	}
	return kv2
}

// Extend adds all the pairs in newKv to kv, overwriting existing keys.
func (kv KeyValue) Extend(newKv KeyValue) {
	for k, v := range newKv {
		kv[k] = v
	}
}

// Observation is one benchmark measurement: the measured values plus the
// configuration that produced them. Serialized as JSON lines so runs can be
// appended and post-processed with standard tooling.
type Observation struct {
	Values KeyValue `json:"values"`
	Config KeyValue `json:"config"`
}

// Write appends the serialized observation to w
func (o Observation) Write(w io.Writer) error {
	p, err := json.Marshal(o)
	if err != nil {
		return err
	}
	p = append(p, '\n')
	_, err = w.Write(p)
	return err
}

// ReadObservation gets the next observation in r
func ReadObservation(r io.Reader) (o Observation, err error) {
	d := json.NewDecoder(r)
	err = d.Decode(&o)
	return
}

// ReadObservations reads observations from r until EOF.
func ReadObservations(r io.Reader) ([]Observation, error) {
	var obs []Observation
	d := json.NewDecoder(r)
	for {
		var o Observation
		if err := d.Decode(&o); err != nil {
			if err == io.EOF {
				return obs, nil
			}
			return obs, err
		}
		obs = append(obs, o)
	}
}

// WriteObservations appends all observations to w.
func WriteObservations(w io.Writer, obs []Observation) error {
	for _, o := range obs {
		err := o.Write(w)
		if err != nil {
			return err
		}
	}
	return nil
}
