package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustObject(t *testing.T, data string) Object {
	t.Helper()
	var o Object
	require.NoError(t, json.Unmarshal([]byte(data), &o))
	return o
}

func TestDecodeEntry_Complete(t *testing.T) {
	e := DecodeEntry(mustObject(t, `{
		"bit_position": 4,
		"args": "0x10",
		"output": "SUCCESS",
		"status": {"class": "Passed", "SDC": false, "events": []},
		"needs_manual_check": false
	}`))

	assert.Empty(t, e.Missing())
	assert.Equal(t, 4, *e.BitPosition)
	assert.Equal(t, "SUCCESS", *e.Output)
	assert.Equal(t, ClassPassed, e.Status.Class)
}

func TestDecodeEntry_MissingAndWrongShape(t *testing.T) {
	e := DecodeEntry(mustObject(t, `{"args": 12, "status": {"class": "weird"}}`))
	assert.Equal(t, []string{KeyArgs, KeyOutput, KeyStatus, KeyNeedsManualCheck}, e.Missing())
}

func TestDecodeEntry_NullIsMissing(t *testing.T) {
	e := DecodeEntry(mustObject(t, `{"args": "", "output": null, "status": null, "needs_manual_check": true}`))
	assert.Equal(t, []string{KeyOutput, KeyStatus}, e.Missing())
}

func TestEncodeRecord_OverlaysSpecFields(t *testing.T) {
	base := mustObject(t, `{"bit_position": 3, "register": "x5"}`)
	bit := 3
	r := TestRecord{
		TestID:      "matmul_3",
		BitPosition: &bit,
		Args:        "-n 4",
		Output:      "ERROR",
		Status:      Status{Class: ClassFailed, Events: []Event{{Kind: EventHalt}}},
	}

	out, err := EncodeRecord(base, r)
	require.NoError(t, err)

	data, err := out.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t,
		`{"bit_position":3,"register":"x5","args":"-n 4","output":"ERROR","status":{"class":"failed","SDC":false,"events":[{"type":"halt"}]},"needs_manual_check":false}`,
		string(data))

	// base is untouched
	assert.Len(t, base, 2)
}

func TestEncodeRecord_AddsBitPositionWhenAbsent(t *testing.T) {
	bit := 9
	out, err := EncodeRecord(Object{}, TestRecord{TestID: "x_9", BitPosition: &bit, Status: EmptyStatus()})
	require.NoError(t, err)

	e := DecodeEntry(out)
	require.NotNil(t, e.BitPosition)
	assert.Equal(t, 9, *e.BitPosition)
	assert.Empty(t, e.Missing())
}
