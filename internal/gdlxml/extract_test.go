package gdlxml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `<?xml version="1.0" encoding="UTF-8"?>
<Symbol>
	<ParamSection>
		<Parameter Name="A"/>
	</ParamSection>
</Symbol>`

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
		ok       bool
	}{
		{
			name:     "fenced block with xml tag",
			response: "Here is the result:\n```xml\n" + sampleDoc + "\n```\nDone.",
			want:     sampleDoc,
			ok:       true,
		},
		{
			name:     "fenced block without tag",
			response: "```\n" + sampleDoc + "\n```",
			want:     sampleDoc,
			ok:       true,
		},
		{
			name:     "non-document fence skipped, span found",
			response: "```\nnot xml at all\n```\nBut inline: " + sampleDoc + " trailing prose",
			want:     sampleDoc,
			ok:       true,
		},
		{
			name:     "span inside prose",
			response: "I updated the part as requested.\n\n" + sampleDoc + "\n\nLet me know.",
			want:     sampleDoc,
			ok:       true,
		},
		{
			name:     "bare symbol gets prologue",
			response: "Sure: <Symbol><Script_3D>BLOCK a, b, zzyzx</Script_3D></Symbol> done",
			want:     Prologue + "\n<Symbol><Script_3D>BLOCK a, b, zzyzx</Script_3D></Symbol>",
			ok:       true,
		},
		{
			name:     "whole response is a document",
			response: "  " + sampleDoc + "  ",
			want:     sampleDoc,
			ok:       true,
		},
		{
			name:     "whole response starts with symbol",
			response: "<Symbol Version=\"2\"><ParamSection/></Symbol>",
			want:     "<Symbol Version=\"2\"><ParamSection/></Symbol>",
			ok:       true,
		},
		{
			name:     "no document anywhere",
			response: "I could not complete this task, sorry.",
			want:     "",
			ok:       false,
		},
		{
			name:     "empty response",
			response: "",
			want:     "",
			ok:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.response)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractPrefersFirstMatchingFence(t *testing.T) {
	first := `<?xml version="1.0"?><Symbol><A/></Symbol>`
	second := `<?xml version="1.0"?><Symbol><B/></Symbol>`
	response := "```xml\n" + first + "\n```\n\n```xml\n" + second + "\n```"

	got, ok := Extract(response)
	require.True(t, ok)
	assert.Equal(t, first, got)
}

func TestExtractSynthesizedPrologue(t *testing.T) {
	got, ok := Extract("prefix <Symbol><ParamSection/></Symbol> suffix")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(got, Prologue))
}
