// -----------------------------------------------------------------------
// Submission - Field parsing for the two accepted wire shapes
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"fmt"
)

// Submission is a parsed and validated job submission
type Submission struct {
	DataType   string
	TLP        int
	Message    string
	Parameters map[string]interface{}
	Force      bool
	Data       string
	Attachment *Attachment
}

// ParseSubmission parses a raw submission document into a Submission.
//
// Two wire shapes are accepted:
//
//	modern: { dataType, tlp?, message?, parameters?, force?, data | attachment }
//	legacy: { attributes: { dataType, tlp?, message?, parameters? }, data | attachment, force? }
//
// When a top-level "attributes" object is present, the legacy shape takes
// precedence. Defaults: tlp=2, message="", parameters={}, force=false.
// All faults are accumulated into a single AttributeCheckingError.
func ParseSubmission(raw map[string]interface{}) (*Submission, error) {
	collector := &ErrorCollector{}

	attrs := raw
	if legacy, ok := raw["attributes"]; ok {
		legacyMap, ok := legacy.(map[string]interface{})
		if !ok {
			collector.Invalid("attributes", fmt.Sprintf("expected an object, got %T", legacy))
			return nil, collector.Err()
		}
		attrs = legacyMap
	}

	sub := &Submission{
		TLP:        2,
		Parameters: map[string]interface{}{},
	}

	// dataType (required)
	switch v := attrs["dataType"].(type) {
	case nil:
		collector.Missing("dataType")
	case string:
		if v == "" {
			collector.Missing("dataType")
		}
		sub.DataType = v
	default:
		collector.Invalid("dataType", fmt.Sprintf("expected a string, got %T", v))
	}

	// tlp (optional, 0-3)
	if v, ok := attrs["tlp"]; ok && v != nil {
		tlp, ok := asInt(v)
		if !ok {
			collector.Invalid("tlp", fmt.Sprintf("expected an integer, got %T", v))
		} else if tlp < 0 || tlp > 3 {
			collector.Invalid("tlp", fmt.Sprintf("expected a value between 0 and 3, got %d", tlp))
		} else {
			sub.TLP = tlp
		}
	}

	// message (optional)
	if v, ok := attrs["message"]; ok && v != nil {
		msg, ok := v.(string)
		if !ok {
			collector.Invalid("message", fmt.Sprintf("expected a string, got %T", v))
		} else {
			sub.Message = msg
		}
	}

	// parameters (optional object)
	if v, ok := attrs["parameters"]; ok && v != nil {
		params, ok := v.(map[string]interface{})
		if !ok {
			collector.Invalid("parameters", fmt.Sprintf("expected an object, got %T", v))
		} else {
			sub.Parameters = params
		}
	}

	// force always lives at the top level, even in the legacy shape
	if v, ok := raw["force"]; ok && v != nil {
		force, ok := v.(bool)
		if !ok {
			collector.Invalid("force", fmt.Sprintf("expected a boolean, got %T", v))
		} else {
			sub.Force = force
		}
	}

	// data | attachment: exactly one, both at the top level
	data, hasData := raw["data"]
	attachment, hasAttachment := raw["attachment"]

	if hasData && data != nil {
		s, ok := data.(string)
		if !ok {
			collector.Invalid("data", fmt.Sprintf("expected a string, got %T", data))
		} else {
			sub.Data = s
		}
	}
	if hasAttachment && attachment != nil {
		att, err := decodeAttachment(attachment)
		if err != nil {
			collector.Add(err)
		} else {
			sub.Attachment = att
		}
	}

	switch {
	case sub.Data == "" && sub.Attachment == nil:
		collector.Missing("data")
	case sub.Data != "" && sub.Attachment != nil:
		collector.Invalid("data", "data and attachment are mutually exclusive")
	}

	if err := collector.Err(); err != nil {
		return nil, err
	}
	return sub, nil
}

func decodeAttachment(value interface{}) (*Attachment, *AttributeError) {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return nil, InvalidAttributeError("attachment", fmt.Sprintf("expected an object, got %T", value))
	}

	// Round-trip through JSON to reuse the struct tags
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, InvalidAttributeError("attachment", err.Error())
	}
	var att Attachment
	if err := json.Unmarshal(data, &att); err != nil {
		return nil, InvalidAttributeError("attachment", err.Error())
	}
	if att.ID == "" {
		return nil, InvalidAttributeError("attachment", "id is required")
	}
	return &att, nil
}

// asInt accepts the numeric shapes JSON and TOML decoding produce
func asInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}
