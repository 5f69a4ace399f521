package codec

import (
	"errors"
	"testing"
)

func TestJSON_DecodeObject(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantErr   bool
		notObject bool
	}{
		{name: "object", input: `{"name":"a"}`},
		{name: "empty object", input: `{}`},
		{name: "array", input: `[1,2]`, wantErr: true, notObject: true},
		{name: "null", input: `null`, wantErr: true, notObject: true},
		{name: "string", input: `"x"`, wantErr: true, notObject: true},
		{name: "truncated", input: `{"name":`, wantErr: true},
		{name: "trailing data", input: `{"a":1} {"b":2}`, wantErr: true},
		{name: "garbage", input: `not json`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := JSON{}.DecodeObject([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeObject(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.notObject && !errors.Is(err, ErrNotObject) {
				t.Errorf("DecodeObject(%q) error = %v, want ErrNotObject", tt.input, err)
			}
		})
	}
}

func TestJSON_NumbersKeepTheirText(t *testing.T) {
	c := JSON{}
	obj, err := c.DecodeObject([]byte(`{"big":12345678901234567890,"f":1.50}`))
	if err != nil {
		t.Fatalf("DecodeObject failed: %v", err)
	}

	out, err := c.Encode(obj)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if string(out) != `{"big":12345678901234567890,"f":1.50}` {
		t.Errorf("Unexpected encoding: %s", out)
	}
}

func TestJSON_EncodeNoHTMLEscape(t *testing.T) {
	out, err := JSON{}.Encode(map[string]interface{}{"html": "<b>&</b>"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if string(out) != `{"html":"<b>&</b>"}` {
		t.Errorf("Unexpected encoding: %s", out)
	}
}

func TestJSON_EncodeUnsupported(t *testing.T) {
	if _, err := (JSON{}).Encode(map[string]interface{}{"ch": make(chan int)}); err == nil {
		t.Error("Expected error encoding a channel")
	}
}
