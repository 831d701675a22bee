package command

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AumkarMali/backendVibeVideo/internal/mediaerr"
)

func TestResolvePhrases(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Token
	}{
		{name: "background noise", text: "please remove the background noise", want: RemoveBackground},
		{name: "trailing politeness", text: "remove background noise please", want: RemoveBackground},
		{name: "long silences", text: "cut out the long silences", want: RemoveSilence},
		{name: "merge clips", text: "can you merge these clips together", want: Merge},
		{name: "fillers", text: "remove the ums and uhs", want: RemoveFiller},
		{name: "mouth clicks", text: "remove mouth clicks", want: RemoveMouth},
		{name: "breathing", text: "get rid of my breathing", want: RemoveBreath},
		{name: "music beats noise", text: "keep the music but remove noise", want: PreserveMusic},
		{name: "volume", text: "normalize the volume", want: Normalize},
		{name: "studio quality", text: "make it sound studio quality", want: AIEnhance},
		{name: "transcript", text: "transcribe this interview", want: Transcribe},
		{name: "everything", text: "fix everything", want: Comprehensive},
		{name: "case folding", text: "REMOVE THE HISS", want: RemoveBackground},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, HasIntent(tt.text))
			got, ok := Resolve(tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBareTokensResolveToThemselves(t *testing.T) {
	for _, token := range All() {
		variants := []string{
			string(token),
			strings.ReplaceAll(string(token), "-", " "),
			strings.ReplaceAll(string(token), "-", "_"),
		}
		for _, v := range variants {
			assert.True(t, HasIntent(v), v)
			got, ok := Resolve(v)
			if assert.True(t, ok, v) {
				assert.Equal(t, token, got, v)
			}
		}
	}
}

func TestHasIntent(t *testing.T) {
	assert.False(t, HasIntent(""))
	assert.False(t, HasIntent("   "))
	assert.False(t, HasIntent("hello there"))
	assert.True(t, HasIntent("Could you tidy this up"))
	assert.True(t, HasIntent("trimming the start"))
}

func TestRulesAreRanked(t *testing.T) {
	rs := Rules()
	require.NotEmpty(t, rs)
	for i, r := range rs {
		assert.Equal(t, i, r.Rank)
		assert.True(t, r.Token.Valid(), r.Token)
	}

	rs[0].Token = "mutated"
	assert.Equal(t, RemoveMouth, Rules()[0].Token)
}

func TestParse(t *testing.T) {
	got, err := Parse("  RM-BG ")
	require.NoError(t, err)
	assert.Equal(t, RemoveBackground, got)

	_, err = Parse("explode")
	require.Error(t, err)
}

func TestInterpret(t *testing.T) {
	t.Run("override wins", func(t *testing.T) {
		got, err := Interpret("  rm-silence ", "hello there")
		require.NoError(t, err)
		assert.Equal(t, RemoveSilence, got)
	})

	t.Run("override is not validated here", func(t *testing.T) {
		got, err := Interpret("explode", "")
		require.NoError(t, err)
		assert.Equal(t, Token("explode"), got)
	})

	t.Run("no intent", func(t *testing.T) {
		_, err := Interpret("", "hello there")
		assert.True(t, mediaerr.Is(err, mediaerr.NoIntentDetected))
	})

	t.Run("unmapped", func(t *testing.T) {
		_, err := Interpret("", "please do something nice")
		assert.True(t, mediaerr.Is(err, mediaerr.UnmappedPhrase))
	})

	t.Run("message", func(t *testing.T) {
		got, err := Interpret("", "please remove the background noise")
		require.NoError(t, err)
		assert.Equal(t, RemoveBackground, got)
	})
}
