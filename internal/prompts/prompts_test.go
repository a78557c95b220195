package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedDefaults(t *testing.T) {
	set := Load("")

	assert.Contains(t, set.System, "{knowledge}")
	assert.Contains(t, set.ErrorAnalysis, "{error}")
	assert.Contains(t, set.ErrorAnalysis, "{previous_code}")
	assert.Contains(t, set.SelfReview, "{generated_xml}")
	assert.Contains(t, set.SelfReview, "LGTM")
}

func TestLoadDirectoryOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, SystemFile),
		[]byte("custom system prompt\n\n{knowledge}"), 0644))

	set := Load(dir)

	assert.Contains(t, set.System, "custom system prompt")
	// Templates without overrides keep their embedded defaults.
	assert.Contains(t, set.ErrorAnalysis, "{error}")
	assert.Contains(t, set.SelfReview, "{generated_xml}")
}

func TestLoadMissingDirectoryFallsBack(t *testing.T) {
	set := Load(filepath.Join(t.TempDir(), "nope"))
	assert.NotEmpty(t, set.System)
	assert.NotEmpty(t, set.ErrorAnalysis)
	assert.NotEmpty(t, set.SelfReview)
}

func TestRenderSystem(t *testing.T) {
	set := &Set{System: "prefix\n{knowledge}\nsuffix"}
	assert.Equal(t, "prefix\nthe docs\nsuffix", set.RenderSystem("the docs"))
	assert.Equal(t, "prefix\n\nsuffix", set.RenderSystem(""))
}

func TestRenderErrorAnalysis(t *testing.T) {
	set := &Set{ErrorAnalysis: "attempt {attempt}/{max_attempts}: {error}\n{previous_code}"}

	out := set.RenderErrorAnalysis("GDL Error: bad IF", 2, 5, "<Symbol/>")
	assert.Equal(t, "attempt 2/5: GDL Error: bad IF\n<Symbol/>", out)
}

func TestRenderErrorAnalysisFallbacks(t *testing.T) {
	set := &Set{ErrorAnalysis: "{error}|{previous_code}"}
	assert.Equal(t, "Unknown error|(not available)", set.RenderErrorAnalysis("", 1, 1, ""))
}

func TestRenderSelfReview(t *testing.T) {
	set := &Set{SelfReview: "review this:\n{generated_xml}"}
	assert.Equal(t, "review this:\n<Symbol/>", set.RenderSelfReview("<Symbol/>"))
}
