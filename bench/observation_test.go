package bench

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObservationSerialization(t *testing.T) {
	assert := assert.New(t)
	o := Observation{
		Values: KeyValue{"ops_per_sec": 15430.5},
		Config: KeyValue{"variant": "lockfree", "threads": float64(8)},
	}
	assert.NoError(o.Values.Validate())
	assert.NoError(o.Config.Validate())

	var b bytes.Buffer
	err := o.Write(&b)
	assert.NoError(err)

	o2, err := ReadObservation(&b)
	assert.NoError(err)
	assert.Equal(o, o2, "should read same observation")
}

func TestReadObservations(t *testing.T) {
	assert := assert.New(t)
	obs := []Observation{
		{
			Values: KeyValue{"ops": float64(100)},
			Config: KeyValue{"variant": "mutex", "phase": "fill"},
		},
		{
			Values: KeyValue{"ops": float64(200)},
			Config: KeyValue{"variant": "mutex", "phase": "churn"},
		},
		{
			Values: KeyValue{"ops": float64(300), "ok": true},
			Config: KeyValue{"variant": "spin", "phase": "fill"},
		},
	}

	var b bytes.Buffer
	assert.NoError(WriteObservations(&b, obs))

	got, err := ReadObservations(&b)
	assert.NoError(err)
	assert.Equal(obs, got)
}

func TestReadObservationsEmpty(t *testing.T) {
	got, err := ReadObservations(bytes.NewReader(nil))
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestKeyValueValidate(t *testing.T) {
	kv := KeyValue{"num": 5}
	assert.Error(t, kv.Validate())

	kv = KeyValue{"num": []float64{3, 4}}
	assert.Error(t, kv.Validate())

	kv = KeyValue{"name": "churn", "ops": 12.5, "ok": true}
	assert.NoError(t, kv.Validate())
}

func TestKeyValuePairs(t *testing.T) {
	kv := KeyValue{"z": 1.0, "a": "first", "m": true}
	pairs := kv.Pairs()
	assert.Equal(t, []KeyValuePair{
		{"a", "first"},
		{"m", true},
		{"z", 1.0},
	}, pairs)
}

func TestKeyValueCloneExtend(t *testing.T) {
	assert := assert.New(t)
	kv := KeyValue{"variant": "mutex", "threads": float64(4)}

	kv2 := kv.Clone()
	kv2["variant"] = "spin"
	assert.Equal("mutex", kv["variant"], "clone should not alias")

	kv.Extend(KeyValue{"threads": float64(8), "phase": "fill"})
	assert.Equal(float64(8), kv["threads"])
	assert.Equal("fill", kv["phase"])
}
