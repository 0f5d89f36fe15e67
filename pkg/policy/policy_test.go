package policy

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/kondukto-io/portguard/bundle"
)

const decisionQuery = "data.portguard.autorule.decision"

var testCases = map[string]struct {
	data     []byte
	input    []byte
	expected string
}{
	"critical_requires_confirmation": {
		[]byte(`{"require_confirmation": true}`),
		[]byte(`{"risk": "Critical", "well_known": false, "malicious": true, "port": 4444, "protocol": "TCP"}`),
		"warn",
	},
	"critical_blocked": {
		[]byte(`{"require_confirmation": false}`),
		[]byte(`{"risk": "Critical", "well_known": false, "malicious": true, "port": 4444, "protocol": "TCP"}`),
		"block",
	},
	"high_warns": {
		[]byte(`{"require_confirmation": false}`),
		[]byte(`{"risk": "High", "well_known": true, "malicious": false, "port": 3389, "protocol": "TCP"}`),
		"warn",
	},
	"low_well_known_allowed": {
		[]byte(`{"require_confirmation": true}`),
		[]byte(`{"risk": "Low", "well_known": true, "malicious": false, "port": 80, "protocol": "TCP"}`),
		"allow",
	},
	"low_unknown_ignored": {
		[]byte(`{"require_confirmation": true}`),
		[]byte(`{"risk": "Low", "well_known": false, "malicious": false, "port": 700, "protocol": "TCP"}`),
		"none",
	},
	"medium_ignored": {
		nil,
		[]byte(`{"risk": "Medium", "well_known": true, "malicious": false, "port": 22, "protocol": "TCP"}`),
		"none",
	},
}

func TestPolicyAutoRule(t *testing.T) {
	var bundleFS = bundle.Bundle

	for name, test := range testCases {
		p, err := New(bundleFS, test.data)
		if err != nil {
			t.Fatalf("[%s] policy init error: %v", name, err)
		}
		p.AddQuery(decisionQuery)

		result, err := p.EvalString(context.Background(), test.input)
		if err != nil {
			t.Errorf("[%s] eval error: %v", name, err)
		}

		if result != test.expected {
			t.Errorf("[%s] expected decision '%s', got '%s'", name, test.expected, result)
		}
	}
}

func TestPolicyBooleanQuery(t *testing.T) {
	fsys := fstest.MapFS{
		"allow.rego": &fstest.MapFile{Data: []byte("package test\n\nimport future.keywords.if\n\nallow if input.port == data.port\n")},
	}

	p, err := New(fsys, []byte(`{"port": 80}`))
	if err != nil {
		t.Fatalf("policy init error: %v", err)
	}
	p.AddQuery("data.test.allow")

	ok, err := p.Eval(context.Background(), []byte(`{"port": 80}`))
	if err != nil || !ok {
		t.Errorf("Expected allow to be true, got %v (%v)", ok, err)
	}

	ok, err = p.Eval(context.Background(), []byte(`{"port": 81}`))
	if err != nil || ok {
		t.Errorf("Expected allow to be undefined, got %v (%v)", ok, err)
	}
}

func TestPolicyNoModules(t *testing.T) {
	if _, err := New(fstest.MapFS{}, nil); err == nil {
		t.Errorf("Expected error for empty policy filesystem, got nil")
	}
}

func TestPolicyInvalidData(t *testing.T) {
	fsys := fstest.MapFS{
		"allow.rego": &fstest.MapFile{Data: []byte("package test\n\nallow := true\n")},
	}

	testCases := map[string][]byte{
		"truncated": []byte(`{"port": `),
		"not json":  []byte(`port=80`),
		"array":     []byte(`[1, 2]`),
	}

	for name, data := range testCases {
		if _, err := New(fsys, data); err == nil {
			t.Errorf("[%s] Expected error for invalid policy data, got nil", name)
		}
	}
}

func TestPolicyEmptyData(t *testing.T) {
	fsys := fstest.MapFS{
		"allow.rego": &fstest.MapFile{Data: []byte("package test\n\nallow := true\n")},
	}

	p, err := New(fsys, nil)
	if err != nil {
		t.Fatalf("policy init error: %v", err)
	}
	p.AddQuery("data.test.allow")

	ok, err := p.Eval(context.Background(), []byte(`{}`))
	if err != nil || !ok {
		t.Errorf("Expected true, got %v (err: %v)", ok, err)
	}
}
