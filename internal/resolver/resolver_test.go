package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePart(t *testing.T, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const shelfPart = `<?xml version="1.0" encoding="UTF-8"?>
<Symbol>
	<ParamSection>
		<Parameter Name="width"/>
		<Parameter Name="depth"/>
		<Parameter Name="shelfCount"/>
	</ParamSection>
	<Script_3D><![CDATA[BLOCK width, depth, 0.02]]></Script_3D>
</Symbol>`

func TestCallNames(t *testing.T) {
	tests := []struct {
		name     string
		document string
		want     []string
	}{
		{
			name:     "quoted form",
			document: `<Script_3D><![CDATA[CALL "shelf_unit" width=1]]></Script_3D>`,
			want:     []string{"shelf_unit"},
		},
		{
			name:     "bare identifier form",
			document: `CALL leg_profile`,
			want:     []string{"leg_profile"},
		},
		{
			name:     "case-insensitive keyword",
			document: `call "shelf_unit"`,
			want:     []string{"shelf_unit"},
		},
		{
			name:     "deduplicated in first-seen order",
			document: `CALL "b_macro"` + "\n" + `CALL "a_macro"` + "\n" + `CALL "B_MACRO"`,
			want:     []string{"b_macro", "a_macro"},
		},
		{
			name:     "no invocations",
			document: `<Symbol><Script_3D>BLOCK 1, 1, 1</Script_3D></Symbol>`,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CallNames(tt.document))
		})
	}
}

func TestResolveFirstRootWins(t *testing.T) {
	src := t.TempDir()
	templates := t.TempDir()
	projectPath := writePart(t, src, "shelf_unit.xml", shelfPart)
	writePart(t, templates, "shelf_unit.xml", shelfPart)

	r := New(src, templates)
	records := r.Resolve(`CALL "shelf_unit"`)

	require.Len(t, records, 1)
	assert.Equal(t, "shelf_unit", records[0].Name)
	assert.Equal(t, projectPath, records[0].SourceLocation)
	assert.Equal(t, "width, depth, shelfCount", records[0].Signature)
	assert.Contains(t, records[0].DefinitionText, "ParamSection")
}

func TestResolveTemplateFallback(t *testing.T) {
	src := t.TempDir()
	templates := t.TempDir()
	templatePath := writePart(t, filepath.Join(templates, "nested"), "leg_profile.xml", shelfPart)

	r := New(src, templates)
	rec, ok := r.ResolveName("leg_profile")

	require.True(t, ok)
	assert.Equal(t, templatePath, rec.SourceLocation)
}

func TestResolveCaseInsensitiveFileMatch(t *testing.T) {
	src := t.TempDir()
	writePart(t, src, "Shelf_Unit.XML", shelfPart)

	r := New(src)
	_, ok := r.ResolveName("shelf_unit")
	assert.True(t, ok)
}

func TestResolveIdempotent(t *testing.T) {
	src := t.TempDir()
	writePart(t, src, "shelf_unit.xml", shelfPart)
	writePart(t, src, "leg_profile.xml", shelfPart)

	document := `CALL "leg_profile"` + "\n" + `CALL "shelf_unit"`
	r := New(src)

	first := r.Resolve(document)
	second := r.Resolve(document)
	assert.Equal(t, first, second)

	// Sorted by name regardless of invocation order.
	require.Len(t, first, 2)
	assert.Equal(t, "leg_profile", first[0].Name)
	assert.Equal(t, "shelf_unit", first[1].Name)
}

func TestUnresolved(t *testing.T) {
	src := t.TempDir()
	writePart(t, src, "shelf_unit.xml", shelfPart)

	r := New(src)
	document := `CALL "shelf_unit"` + "\n" + `CALL "missing_macro"` + "\n" + `CALL "another_gone"`

	missing := r.Unresolved(document)
	assert.Equal(t, []string{"another_gone", "missing_macro"}, missing)
}

func TestResolveMissingRootIsSkipped(t *testing.T) {
	src := t.TempDir()
	writePart(t, src, "shelf_unit.xml", shelfPart)

	r := New(filepath.Join(src, "does-not-exist"), src)
	_, ok := r.ResolveName("shelf_unit")
	assert.True(t, ok)
}

func TestFormatForPrompt(t *testing.T) {
	assert.Empty(t, FormatForPrompt(nil))

	records := []DependencyRecord{{
		Name:           "shelf_unit",
		Signature:      "width, depth",
		SourceLocation: "src/shelf_unit.xml",
		DefinitionText: "<ParamSection/>",
	}}

	text := FormatForPrompt(records)
	assert.Contains(t, text, "## Available Macros")
	assert.Contains(t, text, "### shelf_unit")
	assert.Contains(t, text, "Parameters: width, depth")
	assert.Contains(t, text, "src/shelf_unit.xml")
}
