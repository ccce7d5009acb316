package record

import (
	"encoding/json"
	"fmt"
)

// Keys of the fields a result entry must carry.
const (
	KeyArgs             = "args"
	KeyOutput           = "output"
	KeyStatus           = "status"
	KeyNeedsManualCheck = "needs_manual_check"
	KeyBitPosition      = "bit_position"
)

// RequiredKeys lists the fields every reconciled entry must carry.
var RequiredKeys = []string{KeyArgs, KeyOutput, KeyStatus, KeyNeedsManualCheck}

// Entry is the wire form of one result entry. A nil field is absent, or
// present with a value of the wrong shape.
type Entry struct {
	BitPosition      *int
	Args             *string
	Output           *string
	Status           *Status
	NeedsManualCheck *bool
}

// DecodeEntry extracts the typed fields of obj.
func DecodeEntry(obj Object) Entry {
	var e Entry
	e.BitPosition = bitPosition(obj)
	if raw, ok := obj.Get(KeyArgs); ok {
		e.Args = decodePtr[string](raw)
	}
	if raw, ok := obj.Get(KeyOutput); ok {
		e.Output = decodePtr[string](raw)
	}
	if raw, ok := obj.Get(KeyStatus); ok {
		e.Status = decodeStatus(raw)
	}
	if raw, ok := obj.Get(KeyNeedsManualCheck); ok {
		e.NeedsManualCheck = decodePtr[bool](raw)
	}
	return e
}

// Missing returns the required keys that are absent or unusable, in
// RequiredKeys order.
func (e Entry) Missing() []string {
	var missing []string
	if e.Args == nil {
		missing = append(missing, KeyArgs)
	}
	if e.Output == nil {
		missing = append(missing, KeyOutput)
	}
	if e.Status == nil {
		missing = append(missing, KeyStatus)
	}
	if e.NeedsManualCheck == nil {
		missing = append(missing, KeyNeedsManualCheck)
	}
	return missing
}

// EncodeRecord overlays the fields of r onto a copy of base.
// Members of base that r does not own are kept in their original position.
func EncodeRecord(base Object, r TestRecord) (Object, error) {
	out := base.Clone()
	if r.BitPosition != nil {
		if _, ok := out.Get(KeyBitPosition); !ok {
			if err := out.SetValue(KeyBitPosition, *r.BitPosition); err != nil {
				return nil, err
			}
		}
	}
	fields := []struct {
		key   string
		value any
	}{
		{KeyArgs, r.Args},
		{KeyOutput, r.Output},
		{KeyStatus, r.Status},
		{KeyNeedsManualCheck, r.NeedsManualCheck},
	}
	for _, f := range fields {
		if err := out.SetValue(f.key, f.value); err != nil {
			return nil, fmt.Errorf("record %s: %w", r.TestID, err)
		}
	}
	return out, nil
}

func decodePtr[T any](raw json.RawMessage) *T {
	var v *T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

func decodeStatus(raw json.RawMessage) *Status {
	var s *Status
	if err := json.Unmarshal(raw, &s); err != nil || s == nil {
		return nil
	}
	c, err := ParseClass(string(s.Class))
	if err != nil {
		return nil
	}
	s.Class = c
	n := s.Normalize()
	return &n
}
