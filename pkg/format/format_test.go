package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnitsch/funnelx/pkg/payload"
)

func val(t *testing.T, raw string) payload.Value {
	t.Helper()
	v, err := payload.Parse([]byte(raw))
	require.NoError(t, err)
	return v
}

func TestHeight(t *testing.T) {
	tests := []struct {
		name   string
		feet   payload.Value
		inches payload.Value
		want   string
	}{
		{"five four", val(t, `"feet_five"`), val(t, `"inches_four"`), "5'4''"},
		{"case insensitive", val(t, `"FEET_SIX"`), val(t, `"Inches_Eleven"`), "6'11''"},
		{"missing feet", payload.Absent, val(t, `"inches_four"`), ""},
		{"null feet", val(t, `null`), val(t, `"inches_four"`), ""},
		{"empty inches", val(t, `"feet_five"`), val(t, `""`), ""},
		{"unknown tokens", val(t, `"feet_nine"`), val(t, `"inches_lots"`), "0'0''"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Height(tt.feet, tt.inches))
		})
	}
}

func TestDateOfBirth(t *testing.T) {
	tests := []struct {
		name             string
		day, month, year string
		want             string
	}{
		{"abbreviated month", `4`, `"jun"`, `1990`, "06/04/1990"},
		{"full month name", `"21"`, `"December"`, `"1985"`, "12/21/1985"},
		{"numeric month", `9`, `"3"`, `2001`, "03/09/2001"},
		{"missing day", `null`, `"jun"`, `1990`, ""},
		{"empty year", `4`, `"jun"`, `""`, ""},
		{"unknown month", `4`, `"smarch"`, `1990`, ""},
		{"month out of range", `4`, `13`, `1990`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DateOfBirth(val(t, tt.day), val(t, tt.month), val(t, tt.year))
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "", DateOfBirth(payload.Absent, payload.Absent, payload.Absent))
}

func TestSafeString(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"hello"`, "hello"},
		{`""`, ""},
		{`null`, ""},
		{`165`, "165"},
		{`27.50`, "27.50"},
		{`165.0`, "165.0"},
		{`-3`, "-3"},
		{`12345678901234567890123`, "12345678901234567890123"},
		{`0.12345678901234567890`, "0.12345678901234567890"},
		{`1e2`, "100"},
		{`1.5E+3`, "1500"},
		{`-2.25e1`, "-22.5"},
		{`1.2345678901234567890123e22`, "12345678901234567890123"},
		{`5e-3`, "0.005"},
		{`0.5e1`, "5"},
		{`true`, "True"},
		{`false`, "False"},
		{`["a","b"]`, `["a","b"]`},
		{`{"k":1}`, `{"k":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeString(val(t, tt.raw)), "SafeString(%s)", tt.raw)
	}
	assert.Equal(t, "", SafeString(payload.Absent))
}

func TestState(t *testing.T) {
	assert.Equal(t, "TX", State(val(t, `" tx "`)))
	assert.Equal(t, "", State(payload.Absent))
}

func TestDisqualifiedReasons(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"encoded string", `"{\"reasonsList\":\"bmi too low\"}"`, "bmi too low"},
		{"object", `{"reasonsList":["pregnant","age"]}`, `["pregnant","age"]`},
		{"object without reasons", `{"other":1}`, ""},
		{"plain string", `"not json at all"`, "not json at all"},
		{"number", `42`, "42"},
		{"array", `["x"]`, `["x"]`},
		{"empty", `""`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisqualifiedReasons(val(t, tt.raw)))
		})
	}
}

func TestTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2025-08-01T14:03:09Z", "2025-08-01 14:03:09"},
		{"2025-08-01T14:03:09.123456Z", "2025-08-01 14:03:09"},
		{"2025-08-01T09:03:09-05:00", "2025-08-01 14:03:09"},
		{"2025-08-01T14:03:09", "2025-08-01 14:03:09"},
		{"", ""},
		{"yesterday", "yesterday"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Timestamp(tt.in), "Timestamp(%q)", tt.in)
	}
}
