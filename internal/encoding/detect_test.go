package encoding_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/MrJamesThe3rd/stash/internal/encoding"
)

const sample = "Date;Description;Amount\n2026-03-01;Café #car;500,00\n"

func TestToUTF8(t *testing.T) {
	type testCase struct {
		name        string
		input       func(t *testing.T) []byte
		wantCharset encoding.Charset // empty when chardet may pick any latin charset
	}

	tests := []testCase{
		{
			name:        "UTF8Passthrough",
			input:       func(*testing.T) []byte { return []byte(sample) },
			wantCharset: encoding.UTF8,
		},
		{
			name: "UTF8BOMStripped",
			input: func(*testing.T) []byte {
				return append([]byte{0xEF, 0xBB, 0xBF}, sample...)
			},
			wantCharset: encoding.UTF8BOM,
		},
		{
			name: "SingleByteLatin",
			input: func(t *testing.T) []byte {
				b, err := charmap.Windows1252.NewEncoder().Bytes([]byte(sample))
				require.NoError(t, err)

				return b
			},
		},
		{
			name: "UTF16LE",
			input: func(t *testing.T) []byte {
				enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
				b, err := enc.Bytes([]byte(sample))
				require.NoError(t, err)

				return b
			},
			wantCharset: encoding.UTF16LE,
		},
		{
			name: "UTF16BE",
			input: func(t *testing.T) []byte {
				enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
				b, err := enc.Bytes([]byte(sample))
				require.NoError(t, err)

				return b
			},
			wantCharset: encoding.UTF16BE,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, cs, err := encoding.ToUTF8(bytes.NewReader(tt.input(t)))
			require.NoError(t, err)

			if tt.wantCharset != "" {
				assert.Equal(t, tt.wantCharset, cs)
			}

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, sample, string(got))
		})
	}
}

func TestToUTF8_Empty(t *testing.T) {
	r, cs, err := encoding.ToUTF8(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, encoding.UTF8, cs)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestToUTF8_LargerThanSniffWindow(t *testing.T) {
	line := "2026-03-01;Operação #trip;-3,00\n"
	input := bytes.Repeat([]byte(line), 500)

	r, cs, err := encoding.ToUTF8(bytes.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, encoding.UTF8, cs)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, input, got)
}
