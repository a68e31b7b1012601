package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "", want: FormatTable},
		{input: "table", want: FormatTable},
		{input: "JSON", want: FormatJSON},
		{input: " yml ", want: FormatYAML},
		{input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type priorities [][2]string

func (p priorities) Headers() []string { return []string{"Name", "Priority"} }

func (p priorities) Rows() [][]string {
	rows := make([][]string, 0, len(p))
	for _, r := range p {
		rows = append(rows, []string{r[0], r[1]})
	}
	return rows
}

func TestPrint(t *testing.T) {
	table := priorities{{"logging", "0"}, {"api", "100"}}

	t.Run("Table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(&buf, FormatTable, table))
		out := buf.String()
		assert.Contains(t, out, "NAME")
		assert.Contains(t, out, "PRIORITY")
		assert.Contains(t, out, "logging")
		assert.Contains(t, out, "100")
	})

	data := map[string]int{"services": 2}

	t.Run("TableFallsBackToYAML", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(&buf, FormatTable, data))
		assert.Equal(t, "services: 2\n", buf.String())
	})

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(&buf, FormatJSON, data))
		assert.JSONEq(t, `{"services":2}`, buf.String())
	})

	t.Run("Unknown", func(t *testing.T) {
		assert.Error(t, Print(&bytes.Buffer{}, Format("xml"), data))
	})
}

func TestKeyValueTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, KeyValueTable(&buf, [][2]string{
		{"Group", "Audio"},
		{"Emit", Flag(true)},
	}))

	out := buf.String()
	assert.Contains(t, out, "Group")
	assert.Contains(t, out, "Audio")
	assert.Contains(t, out, "on")
}
