package flags

import (
	"flag"
	"testing"

	"github.com/forkchoice/beacon/testing/assert"
	"github.com/forkchoice/beacon/testing/require"
)

func TestEnumValue(t *testing.T) {
	var dest string
	e := &EnumValue{Name: "log-format", Destination: &dest, Enum: []string{"text", "json"}, Value: "text"}
	assert.Equal(t, "text", e.String())
	require.NoError(t, e.Set("json"))
	assert.Equal(t, "json", dest)
	assert.Equal(t, "json", e.String())
	require.ErrorContains(t, "allowed values are text, json", e.Set("xml"))
	assert.Equal(t, "json", dest)
}

func TestEnumValue_GenericFlag(t *testing.T) {
	f := EnumValue{Name: "log-format", Enum: []string{"text", "json"}, Value: "text"}.GenericFlag()
	assert.Equal(t, "log-format", f.Name)
	assert.Equal(t, "text", f.Value.String())
	require.NoError(t, f.Value.Set("json"))
	assert.Equal(t, "json", f.Value.String())
}

func TestEnumValue_GenericFlagParse(t *testing.T) {
	f := EnumValue{Name: "log-format", Enum: []string{"text", "json"}, Value: "text"}.GenericFlag()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	require.NoError(t, f.Apply(set))
	require.NoError(t, set.Parse([]string{"--log-format=json"}))
	assert.Equal(t, "json", set.Lookup("log-format").Value.String())

	set = flag.NewFlagSet("test", flag.ContinueOnError)
	require.NoError(t, f.Apply(set))
	assert.NotNil(t, set.Parse([]string{"--log-format=xml"}))
}
