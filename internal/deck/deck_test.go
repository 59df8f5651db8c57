// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package deck

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/latex2anki/pkg/types"
)

func TestWrite(t *testing.T) {
	tests := []struct {
		name    string
		records []types.Record
		want    string
	}{
		{
			name: "no records still writes header",
			want: "#separator:|\n#html:true\n",
		},
		{
			name: "plain rows",
			records: []types.Record{
				types.NewRecord("abc1", "Hello"),
				types.NewRecord("abc3", "A", "B", "C"),
			},
			want: "#separator:|\n#html:true\nabc1|Hello\nabc3|A|B|C\n",
		},
		{
			name:    "markup and cloze are not quoted",
			records: []types.Record{types.NewRecord("c", `Q{{c1::a::h}} <b class=x>b</b>`)},
			want:    "#separator:|\n#html:true\nc|Q{{c1::a::h}} <b class=x>b</b>\n",
		},
		{
			name:    "separator in a field is quoted",
			records: []types.Record{types.NewRecord("q", "a|b")},
			want:    "#separator:|\n#html:true\nq|\"a|b\"\n",
		},
		{
			name:    "double quotes are doubled",
			records: []types.Record{types.NewRecord("q", `<a href="x">`)},
			want:    "#separator:|\n#html:true\nq|\"<a href=\"\"x\"\">\"\n",
		},
		{
			name:    "empty identifier and empty field",
			records: []types.Record{types.NewRecord("", "A", "", "C")},
			want:    "#separator:|\n#html:true\n|A||C\n",
		},
		{
			name:    "commas are not special",
			records: []types.Record{types.NewRecord("k", "one, two")},
			want:    "#separator:|\n#html:true\nk|one, two\n",
		},
		{
			name: "lone empty field is quoted",
			records: []types.Record{
				types.NewRecord("", "a"),
				types.NewRecord(""),
				types.NewRecord("z", "b"),
			},
			want: "#separator:|\n#html:true\n|a\n\"\"\nz|b\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, tt.records))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck", "deck.csv")
	require.NoError(t, WriteFile(path, []types.Record{types.NewRecord("u1", "Front", "Back")}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "#separator:|\n#html:true\nu1|Front|Back\n", string(data))
}
