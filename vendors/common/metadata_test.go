package common

import "testing"

func TestMetadataString(t *testing.T) {
	tests := []struct {
		name      string
		meta      map[string]string
		keys      []string
		wantValue string
		wantFound bool
	}{
		{"nil metadata", nil, []string{"snmp_community"}, "", false},
		{"first key", map[string]string{"snmp_community": "private"}, []string{"snmp_community"}, "private", true},
		{"alias key", map[string]string{"community": "private"}, []string{"snmp_community", "community"}, "private", true},
		{"first key wins", map[string]string{"snmp_community": "a", "community": "b"}, []string{"snmp_community", "community"}, "a", true},
		{"empty value skipped", map[string]string{"snmp_community": "", "community": "b"}, []string{"snmp_community", "community"}, "b", true},
		{"not found", map[string]string{"other": "x"}, []string{"snmp_community"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := MetadataString(tt.meta, tt.keys...)
			if got != tt.wantValue || found != tt.wantFound {
				t.Errorf("MetadataString() = (%q, %v), want (%q, %v)", got, found, tt.wantValue, tt.wantFound)
			}
		})
	}
}

func TestMetadataStringWithDefault(t *testing.T) {
	if got := MetadataStringWithDefault(nil, "public", "snmp_community"); got != "public" {
		t.Errorf("MetadataStringWithDefault() = %q, want public", got)
	}
	if got := MetadataStringWithDefault(map[string]string{"snmp_community": "lan"}, "public", "snmp_community"); got != "lan" {
		t.Errorf("MetadataStringWithDefault() = %q, want lan", got)
	}
}

func TestMetadataPort(t *testing.T) {
	tests := []struct {
		name    string
		meta    map[string]string
		want    int
		wantErr bool
	}{
		{"absent", nil, 161, false},
		{"valid", map[string]string{"snmp_port": "1161"}, 1161, false},
		{"not a number", map[string]string{"snmp_port": "abc"}, 0, true},
		{"zero", map[string]string{"snmp_port": "0"}, 0, true},
		{"too large", map[string]string{"snmp_port": "70000"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MetadataPort(tt.meta, 161, "snmp_port")
			if (err != nil) != tt.wantErr {
				t.Fatalf("MetadataPort() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("MetadataPort() = %d, want %d", got, tt.want)
			}
		})
	}
}
