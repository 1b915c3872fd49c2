package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateColor(t *testing.T) {
	valid := []string{"#fff", "#6364FF", "#6364FFCC", "rgba(219,219,219,0.8)", "rgb(0, 0, 0)", "hsl(120, 50%, 50%)", "HSLA(1,2%,3%,0.4)"}
	for _, c := range valid {
		assert.Equal(t, c, ValidateColor(c), "expected %q to be accepted", c)
	}

	assert.Equal(t, "transparent", ValidateColor("Transparent"))
	assert.Equal(t, "currentcolor", ValidateColor("currentColor"))

	invalid := []string{"red", "#ffff", "#ggg", "rgb 0 0 0", "url(x)", "expression(alert(1))", "rgb(0;} body{display:none)", ""}
	for _, c := range invalid {
		assert.Empty(t, ValidateColor(c), "expected %q to be rejected", c)
	}
}

func TestValidateLinkTarget(t *testing.T) {
	for _, target := range []string{"_blank", "_self", "_parent", "_top"} {
		assert.Equal(t, target, ValidateLinkTarget(target))
	}
	assert.Equal(t, "_blank", ValidateLinkTarget("_new"))
	assert.Equal(t, "_blank", ValidateLinkTarget(""))
}

func TestValidateBorderRadius(t *testing.T) {
	for _, v := range []string{"0", "4px", "0.25rem", "1.5em", "50%", "2vh", "3vmin", "1ch"} {
		assert.Equal(t, v, ValidateBorderRadius(v))
	}
	for _, v := range []string{"", "4", "px", "1px 2px", "-1px", "calc(1px)"} {
		assert.Equal(t, "0.25rem", ValidateBorderRadius(v), "value %q", v)
	}
}

func TestValidateTimezone(t *testing.T) {
	assert.Equal(t, "UTC", ValidateTimezone(""))
	assert.Equal(t, "UTC", ValidateTimezone("Not/AZone"))
	assert.Equal(t, "UTC", ValidateTimezone("UTC"))
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "No posts available", SanitizeText("  No posts   available \n"))
	assert.Equal(t, "boosted 🚀", SanitizeText("boosted 🚀"))
	assert.Equal(t, "bold", SanitizeText("<b>bold</b>"))
	assert.Equal(t, "Tom & Jerry", SanitizeText("Tom & Jerry"))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "feeds.db"), ExpandPath("~/feeds.db"))
	assert.Equal(t, "", ExpandPath(""))
	assert.True(t, filepath.IsAbs(ExpandPath("relative.db")))
}

func TestValidateDBPath(t *testing.T) {
	dir := t.TempDir()

	path, err := ValidateDBPath(filepath.Join(dir, "nested", "cache.db"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nested", "cache.db"), path)

	info, err := os.Stat(filepath.Join(dir, "nested"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = ValidateDBPath("")
	assert.Error(t, err)

	_, err = ValidateDBPath("../../etc/passwd")
	assert.Error(t, err)

	_, err = ValidateDBPath(dir)
	assert.Error(t, err)
}
