package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peak-solution/openatfx-sub003/internal/value"
)

func TestValueStorageRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		v    value.Value
		text string
	}{
		{"longlong", value.NewLongLong(-42), "-42"},
		{"double", value.NewDouble(0.001), "0.001"},
		{"empty string is present", value.NewString(""), ""},
		{"zero", value.NewLong(0), "0"},
		{"string with comma", value.NewString("a,b"), "a,b"},
		{"string sequence with comma", value.NewStringSeq("a,b", "c"), `["a,b","c"]`},
		{"empty string sequence", value.NewStringSeq(), `[]`},
		{"date sequence", value.Of(value.DateSeq{"20240131"}), `["20240131"]`},
		{"double sequence", value.Of(value.DoubleSeq{0, 0.5, 1}), "0,0.5,1"},
		{"empty longlong sequence", value.NewLongLongSeq(), ""},
		{"enum", value.NewEnum(2), "2"},
		{"empty byte string", value.Of(value.ByteStr{}), ""},
		{"html stays literal", value.NewStringSeq("<a&b>"), `["<a&b>"]`},
		{"byte string sequence", value.Of(value.ByteStrSeq{{0x01, 0xAB}, {}}), `["01 AB",""]`},
		{"single empty byte string", value.Of(value.ByteStrSeq{{}}), `[""]`},
		{"empty byte string sequence", value.Of(value.ByteStrSeq{}), `[]`},
		{
			"extref sequence with separators",
			value.Of(value.ExtRefSeq{
				{Description: "a],b", MimeType: "text/plain", Location: "file:///x],y"},
				{Description: "raw", MimeType: "application/octet-stream", Location: "file:///r.bin"},
			}),
			`["a],b[text/plain,file:///x],y]","raw[application/octet-stream,file:///r.bin]"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := marshalValue(tt.v)
			require.NoError(t, err)
			assert.Equal(t, tt.text, text)

			back, err := unmarshalValue(tt.v.Type, text)
			require.NoError(t, err)
			assert.True(t, back.Present())
			assert.True(t, value.Equal(tt.v, back), "got %v", back)
		})
	}
}

func TestMarshalValue_AbsentHasNoStoredForm(t *testing.T) {
	_, err := marshalValue(value.Absent(value.DTString))
	assert.Error(t, err)
}

func TestUnmarshalValue_Malformed(t *testing.T) {
	_, err := unmarshalValue(value.DSString, "not json")
	assert.Error(t, err)

	_, err = unmarshalValue(value.DSExtRef, `["no brackets"]`)
	assert.Error(t, err)

	_, err = unmarshalValue(value.DTLongLong, "forty-two")
	assert.Error(t, err)
}
