package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rewardzone/rewardzone/internal/rewardzone/models"
)

func TestLoadMissionCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missions.yaml")
	content := `missions:
  - title: Daily check-in
    description: Log in to your account
    reward: "5"
    xp: 10
    mission_type: daily
    action_type: login
  - title: Premium bonus round
    reward: "40.50"
    xp: 50
    mission_type: daily
    user_type: premium
    action_type: bonus_round
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	missions, err := LoadMissionCatalog(path)
	require.NoError(t, err)
	require.Len(t, missions, 2)

	require.Equal(t, "Daily check-in", missions[0].Title)
	require.True(t, missions[0].Reward.Equal(decimal.NewFromInt(5)))
	require.Equal(t, int64(10), missions[0].XP)
	require.Equal(t, models.MissionDaily, missions[0].MissionType)
	// user_type defaults to all.
	require.Equal(t, models.AudienceAll, missions[0].UserType)
	require.True(t, missions[0].IsActive)

	require.Equal(t, models.AudiencePremium, missions[1].UserType)
	require.True(t, missions[1].Reward.Equal(decimal.RequireFromString("40.50")))
}

func TestLoadMissionCatalogBadReward(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missions.yaml")
	content := `missions:
  - title: Broken
    reward: "not-a-number"
    mission_type: daily
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadMissionCatalog(path)
	require.Error(t, err)
}

func TestLoadMissionCatalogMissingFile(t *testing.T) {
	_, err := LoadMissionCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_DECIMAL", "12.5")
	require.True(t, envDecimal("TEST_DECIMAL", "0").Equal(decimal.RequireFromString("12.5")))
	require.True(t, envDecimal("TEST_DECIMAL_ABSENT", "7").Equal(decimal.NewFromInt(7)))

	t.Setenv("TEST_DECIMAL_BAD", "oops")
	require.True(t, envDecimal("TEST_DECIMAL_BAD", "7").Equal(decimal.NewFromInt(7)))

	t.Setenv("TEST_INT", "42")
	require.Equal(t, 42, envInt("TEST_INT", 0))
	require.Equal(t, 9, envInt("TEST_INT_ABSENT", 9))

	t.Setenv("TEST_INT_BAD", "oops")
	require.Equal(t, 9, envInt("TEST_INT_BAD", 9))
}
