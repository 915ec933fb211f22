package site

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluebird-io/portal/internal/config"
)

func TestNew_Defaults(t *testing.T) {
	content := New(config.DefaultConfig())

	info := content.Info()
	assert.Equal(t, "青鸟", info.Name)
	assert.Equal(t, "更便捷连接全世界", info.Description)
	assert.Equal(t, config.DefaultAPIBaseURL, info.APIBaseURL)
	assert.True(t, info.Features.Registration)
	assert.Contains(t, info.EmailSuffixes, "qq.com")

	plans := content.Plans()
	require.Len(t, plans, 3)
	assert.Equal(t, "¥19", plans[0].Price)
	assert.Equal(t, "¥99", plans[2].Price)

	popular, ok := content.PopularPlan()
	require.True(t, ok)
	assert.Equal(t, "专业版", popular.Name)

	assert.Len(t, content.FAQ(), 6)
}

func TestNew_Overrides(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Site.Name = "Bluebird"
	cfg.Site.Plans = []config.PlanConfig{
		{Name: "Solo", Price: "$3", Period: "/mo", Features: []string{"1 device"}},
	}
	cfg.Site.FAQ = []config.FAQConfig{
		{Question: "Refunds?", Answer: "Within 7 days."},
	}

	content := New(cfg)

	assert.Equal(t, "Bluebird", content.Info().Name)
	require.Len(t, content.Plans(), 1)
	assert.Equal(t, "Solo", content.Plans()[0].Name)
	require.Len(t, content.FAQ(), 1)
	assert.Equal(t, "Refunds?", content.FAQ()[0].Question)

	_, ok := content.PopularPlan()
	assert.False(t, ok)
}

func TestContent_ReturnsCopies(t *testing.T) {
	content := New(config.DefaultConfig())

	plans := content.Plans()
	plans[0].Name = "changed"
	plans[0].Features[0] = "changed"

	info := content.Info()
	info.EmailSuffixes[0] = "changed"

	assert.Equal(t, "基础版", content.Plans()[0].Name)
	assert.Equal(t, "100GB 月流量", content.Plans()[0].Features[0])
	assert.Equal(t, "qq.com", content.Info().EmailSuffixes[0])
}
