package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partforge/internal/preflight"
)

const cabinetFixture = `<?xml version="1.0" encoding="UTF-8"?>
<Symbol Version="46">
	<ParamSection>
		<Parameters>
			<Length Name="shelfWidth">
				<Value>0.8</Value>
			</Length>
		</Parameters>
	</ParamSection>
	<Script_3D><![CDATA[
CALL "m_leg" PARAMETERS legHeight = 0.7
BLOCK shelfWidth, 0.4, 0.02
]]></Script_3D>
</Symbol>
`

const legMacroFixture = `<?xml version="1.0" encoding="UTF-8"?>
<Symbol Version="46">
	<ParamSection>
		<Parameters>
			<Length Name="legHeight">
				<Value>0.7</Value>
			</Length>
			<Length Name="legRadius">
				<Value>0.02</Value>
			</Length>
		</Parameters>
	</ParamSection>
	<Script_3D><![CDATA[
CYLIND legHeight, legRadius
]]></Script_3D>
</Symbol>
`

func writePartFixture(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func chdirTemp(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	originalDir, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { os.Chdir(originalDir) })

	require.NoError(t, os.Chdir(tmpDir))
	return tmpDir
}

func TestAnalyzeCommand_Feasible(t *testing.T) {
	tmpDir := chdirTemp(t)
	writePartFixture(t, filepath.Join(tmpDir, "src", "cabinet.xml"), cabinetFixture)
	writePartFixture(t, filepath.Join(tmpDir, "src", "m_leg.xml"), legMacroFixture)

	analyzeInstruction = "make the legs taller"
	analyzeSource = "src/cabinet.xml"

	output := captureOutput(func() {
		err := runAnalyze(analyzeCmd, []string{})
		require.NoError(t, err)
	})

	assert.Contains(t, output, "feasible: yes")
	assert.Contains(t, output, "complexity: trivial")
	assert.Contains(t, output, "summary:")
	assert.NotContains(t, output, "blocker:")
}

func TestAnalyzeCommand_BlockedByMissingInstructionMacro(t *testing.T) {
	tmpDir := chdirTemp(t)
	writePartFixture(t, filepath.Join(tmpDir, "src", "cabinet.xml"), cabinetFixture)
	writePartFixture(t, filepath.Join(tmpDir, "src", "m_leg.xml"), legMacroFixture)

	analyzeInstruction = `use macro "m_missing" for the legs`
	analyzeSource = "src/cabinet.xml"

	var err error
	output := captureOutput(func() {
		err = runAnalyze(analyzeCmd, []string{})
	})

	require.Error(t, err)
	assert.Contains(t, output, "feasible: no")
	assert.Contains(t, output, `macro "m_missing" is not defined in any source root`)
}

func TestAnalyzeCommand_UnresolvedDocumentMacroDoesNotBlock(t *testing.T) {
	tmpDir := chdirTemp(t)
	source := `<Symbol Version="46"><Script_3D><![CDATA[
CALL "m_ghost" PARAMETERS h = 1
]]></Script_3D></Symbol>`
	writePartFixture(t, filepath.Join(tmpDir, "src", "ghost.xml"), source)

	analyzeInstruction = "taller body"
	analyzeSource = "src/ghost.xml"

	output := captureOutput(func() {
		err := runAnalyze(analyzeCmd, []string{})
		require.NoError(t, err)
	})

	assert.Contains(t, output, "feasible: yes")
	assert.Contains(t, output, "unresolved macro: m_ghost")
	assert.Contains(t, output, "complexity: complex")
}

func TestAnalyzeCommand_MissingSourceIsNewFile(t *testing.T) {
	chdirTemp(t)

	analyzeInstruction = "a parametric bar stool"
	analyzeSource = "src/stool.xml"

	output := captureOutput(func() {
		err := runAnalyze(analyzeCmd, []string{})
		require.NoError(t, err)
	})

	assert.Contains(t, output, "feasible: yes")
}

func TestAnalyzeCommand_JSON(t *testing.T) {
	tmpDir := chdirTemp(t)
	writePartFixture(t, filepath.Join(tmpDir, "src", "cabinet.xml"), cabinetFixture)
	writePartFixture(t, filepath.Join(tmpDir, "src", "m_leg.xml"), legMacroFixture)

	analyzeInstruction = "make the legs taller"
	analyzeSource = "src/cabinet.xml"
	analyzeJSON = true
	defer func() { analyzeJSON = false }()

	output := captureOutput(func() {
		err := runAnalyze(analyzeCmd, []string{})
		require.NoError(t, err)
	})

	var analysis preflight.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(output), &analysis))
	assert.True(t, analysis.Feasible)
	assert.Empty(t, analysis.Blockers)
	assert.NotEmpty(t, analysis.Summary)
}
