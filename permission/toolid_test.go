package permission

import "testing"

func TestParseToolID(t *testing.T) {
	tests := []struct {
		raw        string
		wantTarget string
		wantName   string
	}{
		{"dbtarget___retrieve_doc", "dbtarget", "retrieve_doc"},
		{"retrieve_doc", "", "retrieve_doc"},
		{"a___b___c", "a___b", "c"},
		{"___list_tools", "", "list_tools"},
		{"target___", "target", ""},
		{"", "", ""},
		{"x_amz_bedrock_agentcore_search", "", "x_amz_bedrock_agentcore_search"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseToolID(tt.raw)
			if got.Target != tt.wantTarget || got.Name != tt.wantName {
				t.Errorf("ParseToolID(%q) = %+v, want {%q %q}", tt.raw, got, tt.wantTarget, tt.wantName)
			}
		})
	}
}

func TestToolID_String(t *testing.T) {
	for _, raw := range []string{"dbtarget___retrieve_doc", "retrieve_doc", "a___b___c"} {
		if got := ParseToolID(raw).String(); got != raw {
			t.Errorf("ParseToolID(%q).String() = %q", raw, got)
		}
	}
}
