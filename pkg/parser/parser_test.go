package parser

import (
	"reflect"
	"strings"
	"testing"

	"github.com/kondukto-io/portguard/internal/core/domain"
)

func TestParsePorts(t *testing.T) {
	type caseData struct {
		input    string
		expected []uint32
		fail     bool
	}

	var cases = []caseData{
		{input: "80", expected: []uint32{80}},
		{input: "22, 80,443", expected: []uint32{22, 80, 443}},
		{input: "8000-8003,8001", expected: []uint32{8000, 8001, 8002, 8003}},
		{input: "", expected: nil},
		{input: "0", fail: true},
		{input: "65536", fail: true},
		{input: "90-80", fail: true},
		{input: "http", fail: true},
	}

	for _, c := range cases {
		got, err := ParsePorts(c.input)
		if c.fail {
			if err == nil {
				t.Errorf("Expected an error for %q, got %v", c.input, got)
			}
			continue
		}

		if err != nil {
			t.Errorf("Expected error to be nil for %q, got '%s'", c.input, err)
		}

		if !reflect.DeepEqual(got, c.expected) {
			t.Errorf("Expected %v for %q, got %v", c.expected, c.input, got)
		}
	}
}

func TestParseProtocols(t *testing.T) {
	got, err := ParseProtocols("")
	if err != nil || len(got) != 2 {
		t.Errorf("Expected both protocols, got %v (%v)", got, err)
	}

	got, err = ParseProtocols("udp")
	if err != nil || !reflect.DeepEqual(got, []domain.Protocol{domain.ProtocolUDP}) {
		t.Errorf("Expected [UDP], got %v (%v)", got, err)
	}

	if _, err := ParseProtocols("tcp,icmp"); err == nil {
		t.Error("Expected an error for icmp")
	}
}

func TestParseCatalog(t *testing.T) {
	const doc = `
ports:
  - port: 9200
    protocol: tcp
    service_name: Elasticsearch
    risk_level: medium
    category: Database
  - port: 27374
    service_name: SubSeven
    risk_level: Critical
    category: Malware
    malware_associations: [SubSeven]
`

	entries, err := ParseCatalog(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Expected error to be nil, got '%s'", err)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	if entries[0].Protocol != domain.ProtocolTCP || entries[0].RiskLevel != domain.RiskMedium {
		t.Errorf("Expected TCP/Medium, got %s/%s", entries[0].Protocol, entries[0].RiskLevel)
	}

	if !entries[1].IsMalicious() || entries[1].RiskLevel != domain.RiskCritical {
		t.Errorf("Expected a critical malicious entry, got %+v", entries[1])
	}

	list, err := ParseCatalog(strings.NewReader(`[{"port": 1080, "service_name": "SOCKS", "risk_level": "High"}]`))
	if err != nil || len(list) != 1 || list[0].Port != 1080 {
		t.Errorf("Expected one JSON entry, got %v (%v)", list, err)
	}

	if _, err := ParseCatalog(strings.NewReader("ports:\n  - port: 1\n    protocol: sctp\n")); err == nil {
		t.Error("Expected an error for an unknown protocol")
	}
}
