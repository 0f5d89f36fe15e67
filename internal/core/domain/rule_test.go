package domain

import "testing"

func TestScopedRule(t *testing.T) {
	var port uint32 = 8080

	testCases := map[string]struct {
		scope    RuleScope
		path     string
		port     *uint32
		wantErr  bool
		wantPath string
		wantPort bool
	}{
		"empty scope is process and port": {scope: "", path: "/usr/bin/app", port: &port, wantPath: "/usr/bin/app", wantPort: true},
		"process and port":                {scope: ScopeProcessAndPort, path: "/usr/bin/app", port: &port, wantPath: "/usr/bin/app", wantPort: true},
		"process and port without port":   {scope: ScopeProcessAndPort, path: "/usr/bin/app", wantErr: true},
		"process all ports drops port":    {scope: ScopeProcessAllPorts, path: "/usr/bin/app", port: &port, wantPath: "/usr/bin/app"},
		"process all ports without path":  {scope: ScopeProcessAllPorts, port: &port, wantErr: true},
		"port all processes drops path":   {scope: ScopePortAllProcesses, path: "/usr/bin/app", port: &port, wantPort: true},
		"port all processes without port": {scope: ScopePortAllProcesses, path: "/usr/bin/app", wantErr: true},
		"custom path only":                {scope: ScopeCustom, path: "/usr/bin/app", wantPath: "/usr/bin/app"},
		"custom without criteria":         {scope: ScopeCustom, wantErr: true},
		"unknown scope":                   {scope: "Everything", path: "/usr/bin/app", port: &port, wantErr: true},
	}

	for name, tc := range testCases {
		r, err := ScopedRule(ActionBlock, tc.scope, tc.path, tc.port, ProtocolTCP)
		if tc.wantErr {
			if err == nil {
				t.Errorf("[%s] Expected error, got nil", name)
			}
			continue
		}

		if err != nil {
			t.Errorf("[%s] Expected no error, got %v", name, err)
			continue
		}

		if r.ProcessPath != tc.wantPath {
			t.Errorf("[%s] Expected path %q, got %q", name, tc.wantPath, r.ProcessPath)
		}

		if (r.LocalPort != nil) != tc.wantPort {
			t.Errorf("[%s] Expected port set %v, got %v", name, tc.wantPort, r.LocalPort != nil)
		}

		if r.Direction != DirectionBoth || !r.Enabled || !r.UserCreated {
			t.Errorf("[%s] Expected enabled user rule in both directions, got %+v", name, r)
		}
	}
}
