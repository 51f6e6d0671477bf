package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGenerationSettingsAreValid(t *testing.T) {
	t.Parallel()

	assert.NoError(t, DefaultGenerationSettings().Validate())
}

func TestGenerationSettingsValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		settings GenerationSettings
		wantErr  error
	}{
		{
			"valid settings",
			GenerationSettings{Temperature: 0.5, TopP: 0.9, MaxTokens: 256},
			nil,
		},
		{
			"temperature at upper bound",
			GenerationSettings{Temperature: 2.0, TopP: 1.0, MaxTokens: 1},
			nil,
		},
		{
			"temperature too high",
			GenerationSettings{Temperature: 2.1, TopP: 1.0, MaxTokens: 100},
			ErrTemperatureOutOfRange,
		},
		{
			"negative temperature",
			GenerationSettings{Temperature: -0.1, TopP: 1.0, MaxTokens: 100},
			ErrTemperatureOutOfRange,
		},
		{
			"top_p too high",
			GenerationSettings{Temperature: 0.7, TopP: 1.5, MaxTokens: 100},
			ErrTopPOutOfRange,
		},
		{
			"zero max tokens",
			GenerationSettings{Temperature: 0.7, TopP: 1.0, MaxTokens: 0},
			ErrMaxTokensNotPositive,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.settings.Validate()
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGenerationSettingsMerge(t *testing.T) {
	t.Parallel()

	base := DefaultGenerationSettings()

	t.Run("nil overrides return base unchanged", func(t *testing.T) {
		merged, err := base.Merge(nil)
		require.NoError(t, err)
		assert.Equal(t, base, merged)
	})

	t.Run("overrides apply without mutating base", func(t *testing.T) {
		temp := 0.2
		maxTokens := 64

		merged, err := base.Merge(&GenerationOverrides{
			Temperature: &temp,
			MaxTokens:   &maxTokens,
			Stop:        []string{"\n\n"},
		})
		require.NoError(t, err)

		assert.Equal(t, 0.2, merged.Temperature)
		assert.Equal(t, 64, merged.MaxTokens)
		assert.Equal(t, base.TopP, merged.TopP)
		assert.Equal(t, []string{"\n\n"}, merged.Stop)

		// Base stays untouched.
		assert.Equal(t, 0.7, base.Temperature)
		assert.Equal(t, 1024, base.MaxTokens)
		assert.Nil(t, base.Stop)
	})

	t.Run("invalid override is rejected", func(t *testing.T) {
		temp := 5.0
		_, err := base.Merge(&GenerationOverrides{Temperature: &temp})
		assert.ErrorIs(t, err, ErrTemperatureOutOfRange)
	})
}
