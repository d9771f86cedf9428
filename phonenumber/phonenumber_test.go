package phonenumber

import (
	"database/sql/driver"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		want       string
		wantSet    bool
		wantErrMsg string
	}{
		{
			name:  "given empty string, then returns unset",
			input: "",
		},
		{
			name:  "given blank string, then returns unset",
			input: "   ",
		},
		{
			name:    "given formatted US number, then prefixes +1",
			input:   "(415) 555-2671",
			want:    "+1 415-555-2671",
			wantSet: true,
		},
		{
			name:    "given dashed US number, then prefixes +1",
			input:   "415-555-2671",
			want:    "+1 415-555-2671",
			wantSet: true,
		},
		{
			name:    "given international number, then keeps its country",
			input:   "+44 20 7946 0958",
			want:    "+44 20 7946 0958",
			wantSet: true,
		},
		{
			name:    "given leading whitespace before plus, then keeps its country",
			input:   "  +14155552671",
			want:    "+1 415-555-2671",
			wantSet: true,
		},
		{
			name:       "given text, then returns error naming the cleaned input",
			input:      "hello",
			wantErrMsg: "invalid phone number `+1hello`",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)

			if tt.wantErrMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSet, got.IsSet())
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestMustParse(t *testing.T) {
	assert.Panics(t, func() { MustParse("hello") })
	assert.True(t, MustParse("4155552671").Equal(MustParse("+1 (415) 555-2671")))
}

func TestPhoneNumber_Scan(t *testing.T) {
	tests := []struct {
		name    string
		src     any
		want    string
		wantErr assert.ErrorAssertionFunc
	}{
		{
			name:    "given NULL, then unset",
			src:     nil,
			wantErr: assert.NoError,
		},
		{
			name:    "given text, then parses it",
			src:     "+1 415-555-2671",
			want:    "+1 415-555-2671",
			wantErr: assert.NoError,
		},
		{
			name:    "given bytes, then parses them",
			src:     []byte("4155552671"),
			want:    "+1 415-555-2671",
			wantErr: assert.NoError,
		},
		{
			name:    "given empty text, then unset",
			src:     "",
			wantErr: assert.NoError,
		},
		{
			name:    "given integer, then returns error",
			src:     int64(4155552671),
			wantErr: assert.Error,
		},
		{
			name:    "given invalid text, then returns error",
			src:     "hello",
			wantErr: assert.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := MustParse("+44 20 7946 0958")

			err := p.Scan(tt.src)

			tt.wantErr(t, err)
			if err == nil {
				assert.Equal(t, tt.want, p.String())
			}
		})
	}
}

func TestPhoneNumber_Value(t *testing.T) {
	v, err := MustParse("4155552671").Value()
	require.NoError(t, err)
	assert.Equal(t, driver.Value("+1 415-555-2671"), v)

	v, err = PhoneNumber{}.Value()
	require.NoError(t, err)
	assert.Equal(t, driver.Value(""), v)
}

func TestPhoneNumber_JSON(t *testing.T) {
	type contact struct {
		Name  string      `json:"name"`
		Phone PhoneNumber `json:"phone"`
	}

	tests := []struct {
		name     string
		contact  contact
		wantJSON string
	}{
		{
			name:     "given set number, then encodes international string",
			contact:  contact{Name: "Ada", Phone: MustParse("4155552671")},
			wantJSON: `{"name":"Ada","phone":"+1 415-555-2671"}`,
		},
		{
			name:     "given unset number, then encodes null",
			contact:  contact{Name: "Ada"},
			wantJSON: `{"name":"Ada","phone":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.contact)
			require.NoError(t, err)
			assert.JSONEq(t, tt.wantJSON, string(data))

			var got contact
			require.NoError(t, json.Unmarshal(data, &got))
			assert.True(t, tt.contact.Phone.Equal(got.Phone))
		})
	}
}

func TestPhoneNumber_UnmarshalJSON_Invalid(t *testing.T) {
	var p PhoneNumber

	assert.Error(t, json.Unmarshal([]byte(`"hello"`), &p))
	assert.Error(t, json.Unmarshal([]byte(`42`), &p))
}

func TestPhoneNumber_Text(t *testing.T) {
	text, err := MustParse("+44 20 7946 0958").MarshalText()
	require.NoError(t, err)

	var p PhoneNumber
	require.NoError(t, p.UnmarshalText(text))
	assert.Equal(t, "+44 20 7946 0958", p.String())
}
