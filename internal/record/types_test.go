package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassFromResult(t *testing.T) {
	assert.Equal(t, ClassPassed, ClassFromResult(0))
	assert.Equal(t, ClassFailed, ClassFromResult(1))
	assert.Equal(t, ClassOutlier, ClassFromResult(2))
	assert.Equal(t, ClassOutlier, ClassFromResult(-7))
}

func TestParseEventKind_LegacySpelling(t *testing.T) {
	k, err := ParseEventKind("hw-reset")
	require.NoError(t, err)
	assert.Equal(t, EventHWReset, k)

	_, err = ParseEventKind("meltdown")
	assert.Error(t, err)
}

func TestEvent_TrapNullFields(t *testing.T) {
	data, err := json.Marshal(Trap(2, "", ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"trap","scause":2,"sepc":null,"stval":null}`, string(data))
}

func TestEvent_NonTrapHasOnlyType(t *testing.T) {
	data, err := json.Marshal(Event{Kind: EventHalt, Scause: 9})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"halt"}`, string(data))
}

func TestEvent_UnmarshalStringScause(t *testing.T) {
	var e Event
	require.NoError(t, json.Unmarshal([]byte(`{"type":"trap","scause":"0xd","sepc":"80001234","stval":null}`), &e))
	assert.Equal(t, EventTrap, e.Kind)
	assert.Equal(t, 13, e.Scause)
	require.NotNil(t, e.Sepc)
	assert.Equal(t, "80001234", *e.Sepc)
	assert.Nil(t, e.Stval)
}

func TestEvent_InterruptCauseRoundTrip(t *testing.T) {
	code, err := ParseCause("0x8000000000000005")
	require.NoError(t, err)
	assert.Equal(t, "0x8000000000000005", FormatCause(code))

	data, err := json.Marshal(Trap(code, "", ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"trap","scause":9223372036854775813,"sepc":null,"stval":null}`, string(data))

	var e Event
	require.NoError(t, json.Unmarshal(data, &e))
	assert.Equal(t, code, e.Scause)

	require.NoError(t, json.Unmarshal([]byte(`{"type":"trap","scause":"0x8000000000000005"}`), &e))
	assert.Equal(t, code, e.Scause)
}

func TestParseCause(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"0xd", "0xd", true},
		{" 13 ", "0xd", true},
		{"0xffffffffffffffff", "0xffffffffffffffff", true},
		{"-1", "0xffffffffffffffff", true},
		{"0x10000000000000000", "", false},
		{"", "", false},
		{"scause", "", false},
	}
	for _, tt := range tests {
		code, err := ParseCause(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, FormatCause(code), tt.in)
	}
}

func TestEvent_UnmarshalUnknownType(t *testing.T) {
	var e Event
	assert.Error(t, json.Unmarshal([]byte(`{"type":"explosion"}`), &e))
}

func TestStatus_RoundTrip(t *testing.T) {
	in := Status{
		Class: ClassFailed,
		SDC:   true,
		Events: []Event{
			Trap(5, "80000010", "0"),
			{Kind: EventHalt},
			{Kind: EventHWReset},
		},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Status
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestStatus_EmptyEventsIsArray(t *testing.T) {
	data, err := json.Marshal(Status{Class: ClassPassed})
	require.NoError(t, err)
	assert.JSONEq(t, `{"class":"passed","SDC":false,"events":[]}`, string(data))
}

func TestStatus_Normalize(t *testing.T) {
	s := Status{Events: []Event{
		{Kind: EventHWReset},
		Trap(1, "", ""),
		{Kind: EventHalt},
		Trap(7, "", ""),
	}}.Normalize()

	require.Len(t, s.Events, 3)
	assert.Equal(t, EventTrap, s.Events[0].Kind)
	assert.Equal(t, 1, s.Events[0].Scause)
	assert.Equal(t, EventHalt, s.Events[1].Kind)
	assert.Equal(t, EventHWReset, s.Events[2].Kind)
}

func TestStatus_CleanAndConditions(t *testing.T) {
	assert.True(t, Status{Class: ClassPassed}.Clean())
	assert.False(t, Status{Class: ClassPassed, SDC: true}.Clean())

	s := Status{Class: ClassFailed, SDC: true, Events: []Event{{Kind: EventHalt}, {Kind: EventCommFailure}}}
	assert.Equal(t, 3, s.Conditions())
	assert.True(t, s.HasEvent(EventCommFailure))
	assert.False(t, s.HasEvent(EventTrap))
}

func TestEmptyStatus(t *testing.T) {
	s := EmptyStatus()
	assert.Equal(t, ClassOutlier, s.Class)
	assert.True(t, s.Clean())
	assert.NotNil(t, s.Events)
}
