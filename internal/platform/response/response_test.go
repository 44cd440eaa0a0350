package response

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSucceedCarriesData(t *testing.T) {
	t.Parallel()

	resp := Succeed(42, "saved")
	if !resp.Success {
		t.Fatal("Success = false, want true")
	}
	if resp.Data == nil || *resp.Data != 42 {
		t.Fatalf("Data = %v, want 42", resp.Data)
	}
	if err := resp.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestFailDropsEmptyIssues(t *testing.T) {
	t.Parallel()

	resp := Fail[string]("nope", &Issues{})
	if resp.Issues != nil {
		t.Fatalf("Issues = %+v, want nil", resp.Issues)
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got := string(raw); got != `{"success":false,"message":"nope"}` {
		t.Fatalf("json = %s", got)
	}
}

func TestValidateRejectsMixedUnion(t *testing.T) {
	t.Parallel()

	data := "x"
	tests := []struct {
		name string
		resp Response[string]
	}{
		{name: "issues on success", resp: Response[string]{Success: true, Issues: &Issues{Root: []string{"a"}}}},
		{name: "data on failure", resp: Response[string]{Success: false, Data: &data}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if err := tc.resp.Validate(); !errors.Is(err, ErrInvalidResponse) {
				t.Fatalf("Validate() = %v, want %v", err, ErrInvalidResponse)
			}
		})
	}
}

func TestUnmarshalJSONEnforcesUnion(t *testing.T) {
	t.Parallel()

	var ok Response[map[string]int]
	if err := json.Unmarshal([]byte(`{"success":true,"data":{"n":1}}`), &ok); err != nil {
		t.Fatalf("unmarshal success: %v", err)
	}
	if (*ok.Data)["n"] != 1 {
		t.Fatalf("data = %v", ok.Data)
	}

	var bad Response[int]
	if err := json.Unmarshal([]byte(`{"success":false,"data":3}`), &bad); !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("unmarshal failure with data = %v, want %v", err, ErrInvalidResponse)
	}
	if err := json.Unmarshal([]byte(`{"message":"x"}`), &bad); !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("unmarshal without success = %v, want %v", err, ErrInvalidResponse)
	}
}

func TestIssuesBuckets(t *testing.T) {
	t.Parallel()

	var issues Issues
	issues.AddRoot("root problem")
	issues.AddNested("email", "bad email")
	issues.AddNested("email", "too long")
	issues.AddNested("", "also root")
	issues.AddOther("map key problem")

	if got := issues.Len(); got != 5 {
		t.Fatalf("Len() = %d, want 5", got)
	}
	if got := len(issues.Root); got != 2 {
		t.Fatalf("len(Root) = %d, want 2", got)
	}
	if got := issues.Field("email"); len(got) != 2 || got[1] != "too long" {
		t.Fatalf("Field(email) = %v", got)
	}

	clone := issues.Clone()
	clone.AddNested("email", "third")
	if got := len(issues.Field("email")); got != 2 {
		t.Fatalf("original mutated through clone: %d messages", got)
	}
}

func TestNilIssuesAreEmpty(t *testing.T) {
	t.Parallel()

	var issues *Issues
	if !issues.Empty() {
		t.Fatal("nil Issues should be empty")
	}
	if issues.Clone() != nil {
		t.Fatal("Clone() of nil should be nil")
	}
	if issues.Fields() != nil {
		t.Fatal("Fields() of nil should be nil")
	}
}
