package canon

import (
	"testing"
	"time"
)

func TestCanonicalizeSortsKeys(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "already sorted",
			in:   `{"a":1,"b":2}`,
			want: `{"a":1,"b":2}`,
		},
		{
			name: "reversed",
			in:   `{"b":2,"a":1}`,
			want: `{"a":1,"b":2}`,
		},
		{
			name: "nested map",
			in:   `{"z":{"y":1,"x":2},"a":1}`,
			want: `{"a":1,"z":{"x":2,"y":1}}`,
		},
		{
			name: "array order preserved",
			in:   `{"a":[3,1,2],"b":1}`,
			want: `{"a":[3,1,2],"b":1}`,
		},
		{
			name: "array of objects sorts each object",
			in:   `{"a":[{"b":1,"a":2}]}`,
			want: `{"a":[{"a":2,"b":1}]}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Canonicalize([]byte(tc.in))
			if err != nil {
				t.Fatalf("Canonicalize(%q) error: %v", tc.in, err)
			}
			if string(got) != tc.want {
				t.Errorf("Canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestExplicitNullDoesNotCollideWithOmission(t *testing.T) {
	withNull, err := Canonicalize([]byte(`{"a":1,"b":null}`))
	if err != nil {
		t.Fatalf("Canonicalize with null error: %v", err)
	}
	omitted, err := Canonicalize([]byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("Canonicalize without field error: %v", err)
	}
	if string(withNull) == string(omitted) {
		t.Errorf("{a:1,b:null} canonicalized to the same bytes as {a:1}: %q", withNull)
	}
}

func TestMarshalIsDeterministic(t *testing.T) {
	type sample struct {
		B int `json:"b"`
		A int `json:"a"`
	}
	a, err := Marshal(sample{B: 2, A: 1})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	b, err := Marshal(sample{B: 2, A: 1})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(a) != string(b) {
		t.Errorf("Marshal not deterministic: %q vs %q", a, b)
	}
	want := `{"a":1,"b":2}`
	if string(a) != want {
		t.Errorf("Marshal = %q, want %q", a, want)
	}
}

func TestSortStringsDoesNotMutateInput(t *testing.T) {
	in := []string{"c", "a", "b"}
	out := SortStrings(in)
	if in[0] != "c" || in[1] != "a" || in[2] != "b" {
		t.Errorf("SortStrings mutated its input: %v", in)
	}
	want := []string{"a", "b", "c"}
	for i, v := range want {
		if out[i] != v {
			t.Errorf("SortStrings(%v) = %v, want %v", in, out, want)
		}
	}
}

func TestRFC3339MillisFormat(t *testing.T) {
	ts := time.Date(2026, 3, 5, 12, 0, 1, 500000000, time.FixedZone("PST", -8*3600))
	got := RFC3339Millis(ts)
	want := "2026-03-05T20:00:01.500Z"
	if got != want {
		t.Errorf("RFC3339Millis() = %q, want %q", got, want)
	}
}

func TestHashIsStableAndDistinct(t *testing.T) {
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	h3 := Hash([]byte("world"))
	if h1 != h2 {
		t.Errorf("Hash not stable: %q != %q", h1, h2)
	}
	if h1 == h3 {
		t.Errorf("Hash collided for distinct inputs")
	}
	if !IsValidDigest(h1) {
		t.Errorf("Hash produced an invalid digest: %q", h1)
	}
}

func TestHashValueOrderIndependent(t *testing.T) {
	h1, err := HashValue(map[string]interface{}{"a": 1, "b": 2})
	if err != nil {
		t.Fatalf("HashValue error: %v", err)
	}
	h2, err := HashValue(map[string]interface{}{"b": 2, "a": 1})
	if err != nil {
		t.Fatalf("HashValue error: %v", err)
	}
	if h1 != h2 {
		t.Errorf("HashValue depends on map construction order: %q != %q", h1, h2)
	}
}

func TestZeroHash(t *testing.T) {
	if len(ZeroHash) != 64 {
		t.Fatalf("ZeroHash length = %d, want 64", len(ZeroHash))
	}
	if !IsValidDigest(ZeroHash) {
		t.Errorf("ZeroHash is not a valid digest")
	}
	for _, c := range ZeroHash {
		if c != '0' {
			t.Fatalf("ZeroHash contains non-zero character: %q", ZeroHash)
		}
	}
}

func TestIsValidDigest(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want bool
	}{
		{"valid", Hash([]byte("x")), true},
		{"too short", "abcd", false},
		{"non-hex", "zz00000000000000000000000000000000000000000000000000000000000000", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValidDigest(tc.in); got != tc.want {
				t.Errorf("IsValidDigest(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
